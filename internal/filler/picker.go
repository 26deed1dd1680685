// Package filler implements the two-level weighted lottery that fills an
// offline gap in a channel's schedule with a filler clip.
package filler

import (
	"math"
	"math/rand/v2"

	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/playback"
	"github.com/lanestream/broadcastcore/internal/store"
)

// SLACK mirrors lineup.SLACK; duplicated rather than imported so this
// package has no dependency on lineup, matching the spec's own framing
// of SLACK as a single constant used by unrelated components.
const SLACK int64 = 9900

// neverPlayedMs is substituted for "never played" when computing
// timeSince, per spec §4.3's "treating never as D = 7 days".
const neverPlayedMs int64 = 7 * 24 * 3600 * 1000

// fiveHoursMs caps the timeSince term in the clip-lottery weight.
const fiveHoursMs int64 = 5 * 3600 * 1000

// firstJoinLeadMs is subtracted (along with R and SLACK) from a clip's
// duration to bound the first-join shuffle offset, so a fresh tune-in
// never lands with less than this much of the clip left to play.
const firstJoinLeadMs int64 = 15000

// Result is what Pick returns: either a selected filler item, or a
// minimum-wait hint the caller should shrink the offline gap to before
// trying again.
type Result struct {
	Item          *models.StreamLineupItem
	MinimumWaitMs int64
}

// noWaitKnown marks MinimumWaitMs as having no useful value: nothing in
// the candidate set recorded a shortfall, so there is nothing to shrink
// the gap to.
const noWaitKnown int64 = math.MaxInt64

// finalFallbackCapMs is spec §4.3's final fallback: when the weighted
// lottery and the static offlineMode=clip fallback both come up empty,
// the caller shrinks the gap to at most this instead of riding out
// whatever duration the offline item originally carried — the schedule
// may change, so it re-resolves sooner rather than later.
const finalFallbackCapMs int64 = 600000

// Pick runs the two-level weighted lottery described in spec §4.3:
// gate and draw a collection, then gate and draw a clip inside it.
// remainingGapMs is R, the time left in the offline gap being filled.
func Pick(channel *models.Channel, collections []store.FillerCollection, cache *playback.Cache, nowMs int64, remainingGapMs int64, isFirstJoin bool) Result {
	now := models.FromEpochMillis(nowMs)
	minimumWait := noWaitKnown

	eligible := make([]store.FillerCollection, 0, len(collections))
	for _, col := range collections {
		lastPlayed, ok := cache.CollectionLastPlayed(channel.ID, col.FillerShowID)
		if !ok {
			eligible = append(eligible, col)
			continue
		}
		timeSince := nowMs - lastPlayed.UnixMilli()
		if timeSince >= col.CooldownMs {
			eligible = append(eligible, col)
			continue
		}
		shortfall := col.CooldownMs - timeSince
		minimumWait = minInt64(minimumWait, shortfall)
	}

	chosen, ok := weightedPick(eligible, func(c store.FillerCollection) float64 { return c.Weight })
	if !ok {
		return fallback(channel, minimumWait)
	}

	type clipCandidate struct {
		clip      models.FillerClip
		timeSince int64
	}
	eligibleClips := make([]clipCandidate, 0, len(chosen.Clips))
	for _, clip := range chosen.Clips {
		if clip.DurationMs > remainingGapMs+SLACK {
			continue
		}
		lastPlayed, played := cache.ItemLastPlayed(channel.ID, models.ItemKey(clip.ID.String()))
		timeSince := neverPlayedMs
		if played {
			timeSince = nowMs - lastPlayed.UnixMilli()
		}
		if timeSince < channel.FillerRepeatCooldownMs-SLACK {
			shortfall := channel.FillerRepeatCooldownMs - SLACK - timeSince
			if clip.DurationMs+shortfall <= remainingGapMs+SLACK {
				minimumWait = minInt64(minimumWait, shortfall)
			}
			continue
		}
		eligibleClips = append(eligibleClips, clipCandidate{clip: clip, timeSince: timeSince})
	}

	if len(eligibleClips) == 0 {
		return fallback(channel, minimumWait)
	}

	type weighted struct {
		clipCandidate
		weight float64
	}
	weightedClips := make([]weighted, len(eligibleClips))
	for i, c := range eligibleClips {
		weightedClips[i] = weighted{
			clipCandidate: c,
			weight:        normS(minInt64(c.timeSince, fiveHoursMs)) + normD(c.clip.DurationMs),
		}
	}

	pickedClip, ok := weightedPick(weightedClips, func(w weighted) float64 { return w.weight })
	if !ok {
		return fallback(channel, minimumWait)
	}

	cache.RecordCollectionPicked(channel.ID, chosen.FillerShowID, now)
	cache.RecordItemPlayed(channel.ID, models.ItemKey(pickedClip.clip.ID.String()), now)

	var startMs int64
	if isFirstJoin {
		maxOffset := pickedClip.clip.DurationMs - remainingGapMs - firstJoinLeadMs - SLACK
		if maxOffset > 0 {
			startMs = rand.Int64N(maxOffset + 1)
		}
	}

	item := &models.StreamLineupItem{
		LineupItem: models.LineupItem{
			ChannelID:  channel.ID,
			Type:       models.LineupItemOffline,
			DurationMs: pickedClip.clip.DurationMs,
		},
		StartMs:          startMs,
		StreamDurationMs: pickedClip.clip.DurationMs - startMs,
		Title:            pickedClip.clip.Title,
		SourceURL:        pickedClip.clip.FilePath,
		IsFiller:         true,
		FillerShowID:     chosen.FillerShowID,
	}

	return Result{Item: item, MinimumWaitMs: minimumWait}
}

// fallback applies the offlineMode=clip static fallback when the
// weighted lottery produces no eligible candidate; if that fallback
// also doesn't apply, it is the final fallback, so minimumWait is
// capped at finalFallbackCapMs rather than left at whatever shortfall
// (or noWaitKnown) the lottery recorded.
func fallback(channel *models.Channel, minimumWait int64) Result {
	if channel.OfflinePolicy.Mode == models.OfflineModeClip && channel.OfflinePolicy.FallbackClipPath != "" {
		return Result{
			Item: &models.StreamLineupItem{
				LineupItem: models.LineupItem{
					ChannelID: channel.ID,
					Type:      models.LineupItemOffline,
				},
				SourceURL: channel.OfflinePolicy.FallbackClipPath,
				IsFiller:  true,
			},
			MinimumWaitMs: minimumWait,
		}
	}
	return Result{Item: nil, MinimumWaitMs: minInt64(minimumWait, finalFallbackCapMs)}
}

// weightedPick runs the running-sum reservoir draw spec §4.3 describes
// for both the collection and clip lotteries: accumulate L += w, accept
// the current candidate with probability w/L. Returns ok=false if items
// is empty or every weight is non-positive.
func weightedPick[T any](items []T, weight func(T) float64) (T, bool) {
	var chosen T
	var ok bool
	var l float64
	for _, item := range items {
		w := weight(item)
		if w <= 0 {
			continue
		}
		l += w
		if rand.Float64() < w/l {
			chosen = item
			ok = true
		}
	}
	return chosen, ok
}

// normD is the duration term of the clip-lottery weight.
func normD(durationMs int64) float64 {
	x := float64(durationMs) / 60000.0
	if x >= 3 {
		x = 3 + math.Log(x)
	}
	return math.Ceil((10000*math.Ceil(1000*x)+10000)/1e6) + 1
}

// normS is the recency term of the clip-lottery weight.
func normS(sinceMs int64) float64 {
	return math.Ceil(math.Pow(math.Ceil(float64(sinceMs)/600)+1, 2)/1e6) + 1
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

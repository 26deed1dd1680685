// Package redirect walks a chain of redirect lineup items to the
// first non-redirect item, detecting cycles and clamping the final
// item's stream duration to whatever the redirect chain would have
// allowed.
package redirect

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lanestream/broadcastcore/internal/lineup"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

// cycleOfflineMs is the fixed duration of the synthetic offline item
// surfaced in place of a detected cycle.
const cycleOfflineMs int64 = 60000

// Walk follows resolved's redirect chain starting from startChannel,
// loading each hop's channel and lineup through st and re-resolving at
// nowMs, until a non-redirect item is reached or a cycle is detected.
//
// If resolved is not itself a redirect, it is returned unchanged.
func Walk(ctx context.Context, st store.Store, startChannel *models.Channel, resolved *models.ResolvedItem, nowMs int64) (*models.ResolvedItem, error) {
	if resolved.Item.Type != models.LineupItemRedirect {
		return resolved, nil
	}

	visited := map[uuid.UUID]struct{}{startChannel.ID: {}}
	var bounds []int64
	current := resolved
	var lastHop uuid.UUID = startChannel.ID

	for current.Item.Type == models.LineupItemRedirect {
		if current.Item.TargetChannelID == nil {
			return nil, models.NewStreamError(models.KindRedirectCycle, "redirect item has no target channel")
		}
		bounds = append(bounds, current.Item.StreamDurationMs)
		target := *current.Item.TargetChannelID

		if _, seen := visited[target]; seen {
			return cycleItem(lastHop, target), models.NewStreamError(models.KindRedirectCycle,
				fmt.Sprintf("redirect cycle detected between channel %s and channel %s", lastHop, target))
		}
		visited[target] = struct{}{}

		nextChannel, nextLineup, err := st.LoadChannelAndLineup(ctx, target)
		if err != nil {
			return nil, err
		}
		nextResolved, err := lineup.Resolve(nextChannel, nextLineup, nowMs)
		if err != nil {
			return nil, err
		}
		current = nextResolved
		lastHop = target
	}

	// Walk bounds from innermost (most recently pushed) to outermost,
	// clamping streamDuration so the client leaves no later than the
	// outermost redirect item would have ended.
	beginningOffset := current.Item.BeginningOffsetMs
	for i := len(bounds) - 1; i >= 0; i-- {
		if candidate := bounds[i] + beginningOffset; candidate < current.Item.StreamDurationMs {
			current.Item.StreamDurationMs = candidate
		}
	}

	return current, nil
}

// cycleItem builds the 60s offline substitute surfaced when a cycle is
// detected, bearing both channel ids in its error text.
func cycleItem(a, b uuid.UUID) *models.ResolvedItem {
	item := models.StreamLineupItem{
		LineupItem: models.LineupItem{
			Type:       models.LineupItemOffline,
			DurationMs: cycleOfflineMs,
		},
		StreamDurationMs: cycleOfflineMs,
		Error:            fmt.Sprintf("redirect cycle detected between channel %s and channel %s", a, b),
	}
	return &models.ResolvedItem{Item: item, TimeIntoItem: 0, Index: -1}
}

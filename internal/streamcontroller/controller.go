// Package streamcontroller is the top-level request handler: it validates
// a stream request, walks LineupResolver and RedirectWalker to a playable
// item, folds in short-offline skipping, permanent-offline substitution,
// and FillerPicker, and records the playback timestamps the rest of the
// core depends on.
package streamcontroller

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/lanestream/broadcastcore/internal/clock"
	"github.com/lanestream/broadcastcore/internal/concat"
	"github.com/lanestream/broadcastcore/internal/filler"
	"github.com/lanestream/broadcastcore/internal/lineup"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/playback"
	"github.com/lanestream/broadcastcore/internal/redirect"
	"github.com/lanestream/broadcastcore/internal/store"
)

// maxSkipRecursionDepth bounds the short-offline skip recursion (step 6).
// Store has no "count all channels" call to derive the redirect-cycle
// bound from directly, so this mirrors that bound with a fixed constant
// instead: a channel whose schedule is nothing but a run of sub-SLACK
// offline gaps longer than this is indistinguishable from permanently
// offline anyway.
const maxSkipRecursionDepth = 64

// loadingItemDurationMs is the synthetic item's duration injected on a
// session's first request, before any real resolve has happened.
const loadingItemDurationMs int64 = 40

// permanentOfflineDurationMs is substituted when a channel's lineup is
// nothing but a single offline item.
const permanentOfflineDurationMs int64 = 365 * 24 * 3600 * 1000

// Controller is StreamController: the orchestration glue over
// LineupResolver, RedirectWalker, FillerPicker, PlaybackCache, and a
// per-process concat.Generator.
type Controller struct {
	Store    store.Store
	Cache    *playback.Cache
	Clock    clock.Clock
	Sessions *concat.Generator

	hwaccel *hwaccelCache
}

// New builds a Controller over st, sharing cache across every request it
// serves.
func New(st store.Store, cache *playback.Cache, clk clock.Clock) *Controller {
	return &Controller{Store: st, Cache: cache, Clock: clk, Sessions: concat.NewGenerator(), hwaccel: &hwaccelCache{}}
}

// ParseChannelRef parses the channel query parameter, which is either a
// positive channel number or a channel UUID (step 1/2). Returns
// KindBadRequest if raw is neither.
func ParseChannelRef(raw string) (number int, id uuid.UUID, isNumber bool, err error) {
	if raw == "" {
		return 0, uuid.Nil, false, models.NewStreamError(models.KindBadRequest, "channel is required")
	}
	if n, convErr := strconv.Atoi(raw); convErr == nil && n > 0 {
		return n, uuid.Nil, true, nil
	}
	if parsed, convErr := uuid.Parse(raw); convErr == nil {
		return 0, parsed, false, nil
	}
	return 0, uuid.Nil, false, models.NewStreamError(models.KindBadRequest, fmt.Sprintf("invalid channel %q", raw))
}

// LookupChannel resolves the channel query parameter to a Channel (step
// 1/2): KindBadRequest if raw doesn't parse, KindNotFound if it parses
// but names no channel.
func (c *Controller) LookupChannel(ctx context.Context, raw string) (*models.Channel, error) {
	number, id, isNumber, err := ParseChannelRef(raw)
	if err != nil {
		return nil, err
	}

	var channel *models.Channel
	if isNumber {
		channel, err = c.Store.GetChannelByNumber(ctx, number)
	} else {
		channel, err = c.Store.GetChannel(ctx, id)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NewStreamError(models.KindNotFound, fmt.Sprintf("channel %q not found", raw))
		}
		return nil, err
	}
	return channel, nil
}

// CheckEncoderAvailable verifies the configured encoder executable exists
// on disk (step 3).
func (c *Controller) CheckEncoderAvailable(settings *store.FFmpegSettings) error {
	return checkBinaryExists(settings.BinaryPath)
}

// LoadingItem is the synthetic item injected in place of a real resolve
// on a session's first request (step 4), stabilising the first concat
// splice by giving it something trivially short to play immediately.
func LoadingItem() *models.ResolvedItem {
	item := models.StreamLineupItem{
		LineupItem: models.LineupItem{
			Type:       models.LineupItemOffline,
			DurationMs: loadingItemDurationMs,
		},
		StreamDurationMs: loadingItemDurationMs,
		Title:            "loading",
	}
	return &models.ResolvedItem{Item: item, TimeIntoItem: 0, Index: -1}
}

// setupItemDurationMs is how long the /setup placeholder plays before
// the encoder exits, in the absence of any configured channel.
const setupItemDurationMs int64 = 60000

// SetupItem is the static "no channels configured" placeholder served
// at /setup, before any channel exists for a real resolve to run
// against. Its Error text drives EncoderPlanBuilder's ScreenText mode
// the same way a failed redirect hop or throttled session does.
func SetupItem() *models.ResolvedItem {
	item := models.StreamLineupItem{
		LineupItem: models.LineupItem{
			Type:       models.LineupItemOffline,
			DurationMs: setupItemDurationMs,
		},
		StreamDurationMs: setupItemDurationMs,
		Error:            "No channels configured",
	}
	return &models.ResolvedItem{Item: item, TimeIntoItem: 0, Index: -1}
}

// Resolve runs steps 5 through 9 for one request: resolve, walk
// redirects, skip short offline gaps, substitute permanent-offline,
// attach filler, and record playback timestamps. sessionID is used for
// the redirect-restart playback-record clear in step 6 and may be empty
// for requests with no session (e.g. /video, /radio).
func (c *Controller) Resolve(ctx context.Context, channel *models.Channel, nowMs int64, sessionID string, isFirstJoin bool) (*models.ResolvedItem, error) {
	if sessionID != "" && concat.ShouldThrottle(c.Cache, sessionID, nowMs) {
		return concat.ThrottleItem(), nil
	}

	resolved, err := c.resolveAt(ctx, channel, nowMs, sessionID, true, 0)
	if err != nil {
		return nil, err
	}

	return c.attachFillerAndRecord(ctx, channel, resolved, nowMs, isFirstJoin)
}

// resolveAt implements steps 5-7: resolve, redirect-walk, and the
// short-offline skip recursion, hard-capped at maxSkipRecursionDepth.
func (c *Controller) resolveAt(ctx context.Context, channel *models.Channel, nowMs int64, sessionID string, allowSkip bool, depth int) (*models.ResolvedItem, error) {
	channelLineup, err := c.Store.LoadLineup(ctx, channel.ID)
	if err != nil {
		return nil, err
	}

	if isSingleOfflineLineup(channelLineup) {
		// The lineup is nothing but one offline item: treat the channel
		// as permanently offline rather than resolving and re-skipping
		// the same gap forever (step 7).
		return permanentOfflineItem(), nil
	}

	resolved, err := lineup.Resolve(channel, channelLineup, nowMs)
	if err != nil {
		return nil, err
	}

	resolved, err = redirect.Walk(ctx, c.Store, channel, resolved, nowMs)
	if err != nil {
		var streamErr *models.StreamError
		if errors.As(err, &streamErr) && streamErr.Kind == models.KindRedirectCycle {
			// Contained within the item: redirect.Walk already
			// substituted the 60s offline placeholder.
			return resolved, nil
		}
		return nil, err
	}

	if resolved.Item.Type == models.LineupItemOffline && resolved.Item.Error == "" {
		remaining := resolved.Item.StreamDurationMs
		if allowSkip && remaining <= lineup.SLACK+1 && depth < maxSkipRecursionDepth {
			if sessionID != "" {
				c.Cache.ClearSession(sessionID)
			}
			return c.resolveAt(ctx, channel, nowMs+remaining+1, sessionID, allowSkip, depth+1)
		}
	}

	return resolved, nil
}

// isSingleOfflineLineup reports whether lineup is exactly one offline
// item, the shape step 7 treats as "permanently offline."
func isSingleOfflineLineup(l *models.Lineup) bool {
	return len(l.Items) == 1 && l.Items[0].Type == models.LineupItemOffline
}

// permanentOfflineItem is the 365-day offline substitute for a
// permanently offline channel.
func permanentOfflineItem() *models.ResolvedItem {
	item := models.StreamLineupItem{
		LineupItem: models.LineupItem{
			Type:       models.LineupItemOffline,
			DurationMs: permanentOfflineDurationMs,
		},
		StreamDurationMs: permanentOfflineDurationMs,
	}
	return &models.ResolvedItem{Item: item, TimeIntoItem: 0, Index: -1}
}

// attachFillerAndRecord implements steps 8-9: if resolved is a genuine
// offline gap (not a redirect-cycle/throttle placeholder, which already
// carry their own Error text), run FillerPicker over it; hydrate a
// content item's source from its Program; then record playback
// timestamps.
func (c *Controller) attachFillerAndRecord(ctx context.Context, channel *models.Channel, resolved *models.ResolvedItem, nowMs int64, isFirstJoin bool) (*models.ResolvedItem, error) {
	now := models.FromEpochMillis(nowMs)

	if resolved.Item.Type == models.LineupItemOffline && resolved.Item.Error == "" && resolved.Item.SourceURL == "" {
		collections, err := c.Store.GetFillerCollections(ctx, channel)
		if err != nil {
			return nil, err
		}
		if len(collections) > 0 {
			remaining := resolved.Item.StreamDurationMs
			result := filler.Pick(channel, collections, c.Cache, nowMs, remaining, isFirstJoin)
			switch {
			case result.Item != nil:
				resolved = &models.ResolvedItem{Item: *result.Item, TimeIntoItem: 0, Index: resolved.Index}
			case result.MinimumWaitMs < remaining:
				// FillerExhausted: shrink the gap to the wait hint
				// instead of surfacing an error. The concat loop's next
				// reopen re-resolves and tries the lottery again with
				// cooldowns that have since cleared.
				resolved.Item.DurationMs = result.MinimumWaitMs
				resolved.Item.StreamDurationMs = result.MinimumWaitMs
			}
		}
	}

	if err := c.hydrateContent(ctx, &resolved.Item); err != nil {
		return nil, err
	}

	if !resolved.Item.IsFiller && resolved.Item.ID != uuid.Nil {
		c.Cache.RecordItemPlayed(channel.ID, models.ItemKey(resolved.Item.ID.String()), now)
	}

	return resolved, nil
}

// hydrateContent fills a content item's SourceURL/Title from its
// Program, the step LineupResolver itself can't do since it only ever
// sees the bare LineupItem, not what it references.
func (c *Controller) hydrateContent(ctx context.Context, item *models.StreamLineupItem) error {
	if item.Type != models.LineupItemContent || item.SourceURL != "" || item.ProgramID == nil {
		return nil
	}
	program, err := c.Store.GetProgram(ctx, *item.ProgramID)
	if err != nil {
		return err
	}
	item.SourceURL = program.FilePath
	item.Title = program.Title
	return nil
}

// checkBinaryExists is step 3's encoder-executable check.
func checkBinaryExists(path string) error {
	if path == "" {
		return models.NewStreamError(models.KindEncoderMissing, "no encoder binary configured")
	}
	info, err := os.Stat(path)
	if err != nil {
		return models.WrapStreamError(models.KindEncoderMissing, fmt.Sprintf("encoder binary %q", path), err)
	}
	if info.IsDir() {
		return models.NewStreamError(models.KindEncoderMissing, fmt.Sprintf("encoder path %q is a directory", path))
	}
	return nil
}

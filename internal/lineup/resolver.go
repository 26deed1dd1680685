// Package lineup resolves a channel's looping schedule against a point
// in wall-clock time: which item is airing, how far into it, and at
// what lineup position.
package lineup

import (
	"fmt"

	"github.com/lanestream/broadcastcore/internal/models"
)

// SLACK is the tolerance used for boundary smoothing, duration-mismatch
// detection, and filler cooldown fuzzing.
const SLACK int64 = 9900

// StartSnapMs is the threshold below which a resolved position inside an
// item is snapped to 0 rather than handed to the encoder as a mid-file
// seek; encoders and container probes routinely lose the first seconds
// of a seek, so clients are better served starting fresh.
const StartSnapMs int64 = 30000

// Resolve walks channel's lineup to the item airing at nowMs, applying
// boundary smoothing and start-snap. Fails with a *models.StreamError of
// kind KindLineupEmpty or KindLineupDurationMismatch if the lineup is
// malformed.
func Resolve(channel *models.Channel, lineup *models.Lineup, nowMs int64) (*models.ResolvedItem, error) {
	if len(lineup.Items) == 0 {
		return nil, models.NewStreamError(models.KindLineupEmpty,
			fmt.Sprintf("channel %s has no lineup items", channel.ID))
	}

	total := lineup.TotalDurationMs()
	if diff := total - channel.DurationMs; diff > SLACK || diff < -SLACK {
		return nil, models.NewStreamError(models.KindLineupDurationMismatch,
			fmt.Sprintf("lineup sums to %dms, channel duration is %dms", total, channel.DurationMs))
	}

	if nowMs < channel.StartTimeMs {
		offline := models.StreamLineupItem{
			LineupItem: models.LineupItem{
				ChannelID:  channel.ID,
				Position:   -1,
				Type:       models.LineupItemOffline,
				DurationMs: channel.StartTimeMs - nowMs,
			},
			StreamDurationMs: channel.StartTimeMs - nowMs,
		}
		return &models.ResolvedItem{Item: offline, TimeIntoItem: 0, Index: -1}, nil
	}

	elapsed := mod(nowMs-channel.StartTimeMs, channel.DurationMs)

	var accumulated int64
	index := 0
	var timeIntoItem int64
	for i, item := range lineup.Items {
		if accumulated+item.DurationMs > elapsed {
			index = i
			timeIntoItem = elapsed - accumulated
			break
		}
		accumulated += item.DurationMs
		index = i
		timeIntoItem = elapsed - accumulated
	}

	item := lineup.Items[index]

	// Boundary smoothing: don't hand the client a program with less than
	// SLACK left to run.
	if item.DurationMs > 2*SLACK && timeIntoItem > item.DurationMs-SLACK {
		index = (index + 1) % len(lineup.Items)
		item = lineup.Items[index]
		timeIntoItem = 0
	}

	// Start-snap: a seek landing inside the first StartSnapMs is clamped
	// to 0 and the true offset is preserved separately.
	var beginningOffset int64
	if timeIntoItem < StartSnapMs {
		beginningOffset = timeIntoItem
		timeIntoItem = 0
	}

	streamItem := models.StreamLineupItem{
		LineupItem:        item,
		StartMs:           timeIntoItem,
		StreamDurationMs:  item.DurationMs - timeIntoItem,
		BeginningOffsetMs: beginningOffset,
	}

	return &models.ResolvedItem{Item: streamItem, TimeIntoItem: timeIntoItem, Index: index}, nil
}

// mod is Euclidean modulo: always non-negative for a positive divisor.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

package filler

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/playback"
	"github.com/lanestream/broadcastcore/internal/store"
)

func TestPick_S4_OfflinePlusFiller(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()}, FillerRepeatCooldownMs: 0}
	clip := models.FillerClip{ID: uuid.New(), DurationMs: 30000, Title: "Bumper"}
	collections := []store.FillerCollection{
		{FillerShowID: uuid.New(), Weight: 1, CooldownMs: 0, Clips: []models.FillerClip{clip}},
	}
	cache := playback.New()

	result := Pick(channel, collections, cache, 0, 300000, false)
	require.NotNil(t, result.Item)
	assert.Equal(t, int64(30000), result.Item.StreamDurationMs)
	assert.True(t, result.Item.IsFiller)
	assert.Equal(t, clip.Title, result.Item.Title)
}

func TestPick_NoCollections_ReturnsNilWithCappedWait(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()} }
	cache := playback.New()

	result := Pick(channel, nil, cache, 0, 60000, false)
	assert.Nil(t, result.Item)
	assert.Equal(t, finalFallbackCapMs, result.MinimumWaitMs)
}

func TestPick_FinalFallback_CapsMinimumWaitAtTenMinutes(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()}, FillerRepeatCooldownMs: 0}
	collections := []store.FillerCollection{
		{FillerShowID: uuid.New(), Weight: 1, CooldownMs: 0, Clips: []models.FillerClip{
			// Clip is far too long for the gap, so it's never eligible and
			// records no shortfall either (duration+shortfall would still
			// exceed remainingGapMs+SLACK at any shortfall worth trying).
			{ID: uuid.New(), DurationMs: 24 * 3600 * 1000},
		}},
	}
	cache := playback.New()

	result := Pick(channel, collections, cache, 0, 3600000, false)
	assert.Nil(t, result.Item)
	assert.Equal(t, finalFallbackCapMs, result.MinimumWaitMs)
}

func TestPick_FallbackClip_WhenLotteryEmpty(t *testing.T) {
	channel := &models.Channel{
		BaseModel: models.BaseModel{ID: uuid.New()},
		OfflinePolicy: models.OfflinePolicy{
			Mode:             models.OfflineModeClip,
			FallbackClipPath: "/filler/static.mp4",
		},
	}
	cache := playback.New()

	result := Pick(channel, nil, cache, 0, 60000, false)
	require.NotNil(t, result.Item)
	assert.Equal(t, "/filler/static.mp4", result.Item.SourceURL)
}

func TestPick_CollectionCooldownGate_RecordsMinimumWait(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()} }
	showID := uuid.New()
	clip := models.FillerClip{ID: uuid.New(), DurationMs: 30000}
	collections := []store.FillerCollection{
		{FillerShowID: showID, Weight: 1, CooldownMs: 60000, Clips: []models.FillerClip{clip}},
	}
	cache := playback.New()
	cache.RecordCollectionPicked(channel.ID, showID, time.Unix(0, 0))

	result := Pick(channel, collections, cache, 10000, 300000, false)
	assert.Nil(t, result.Item)
	assert.Equal(t, int64(50000), result.MinimumWaitMs)
}

func TestPick_ClipTooLongForGap_Ineligible(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()} }
	collections := []store.FillerCollection{
		{FillerShowID: uuid.New(), Weight: 1, CooldownMs: 0, Clips: []models.FillerClip{
			{ID: uuid.New(), DurationMs: 600000},
		}},
	}
	cache := playback.New()

	result := Pick(channel, collections, cache, 0, 10000, false)
	assert.Nil(t, result.Item)
}

func TestPick_Invariant4_FillerCooldown(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()}, FillerRepeatCooldownMs: 3600000}
	clipID := uuid.New()
	collections := []store.FillerCollection{
		{FillerShowID: uuid.New(), Weight: 1, CooldownMs: 0, Clips: []models.FillerClip{
			{ID: clipID, DurationMs: 30000},
		}},
	}
	cache := playback.New()
	cache.RecordItemPlayed(channel.ID, models.ItemKey(clipID.String()), models.FromEpochMillis(0))

	result := Pick(channel, collections, cache, 1000, 300000, false)
	if result.Item != nil {
		assert.NotEqual(t, clipID, result.Item.LineupItem.ID)
	}
}

func TestPick_Invariant5_FillerFit(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()} }
	collections := []store.FillerCollection{
		{FillerShowID: uuid.New(), Weight: 1, CooldownMs: 0, Clips: []models.FillerClip{
			{ID: uuid.New(), DurationMs: 20000},
			{ID: uuid.New(), DurationMs: 50000},
		}},
	}
	cache := playback.New()
	remainingGapMs := int64(25000)

	result := Pick(channel, collections, cache, 0, remainingGapMs, false)
	require.NotNil(t, result.Item)
	assert.LessOrEqual(t, result.Item.LineupItem.DurationMs, remainingGapMs+SLACK)
}

func TestPick_FirstJoinShuffle_StartsWithinBounds(t *testing.T) {
	channel := &models.Channel{BaseModel: models.BaseModel{ID: uuid.New()} }
	collections := []store.FillerCollection{
		{FillerShowID: uuid.New(), Weight: 1, CooldownMs: 0, Clips: []models.FillerClip{
			{ID: uuid.New(), DurationMs: 600000},
		}},
	}
	cache := playback.New()

	// A clip is only eligible when it fits the gap (duration <= R+SLACK),
	// so the offset bound duration-R-firstJoinLeadMs-SLACK clamps to 0.
	result := Pick(channel, collections, cache, 0, 600000, true)
	require.NotNil(t, result.Item)
	maxOffset := max(0, int64(600000-600000-firstJoinLeadMs-SLACK))
	assert.GreaterOrEqual(t, result.Item.StartMs, int64(0))
	assert.LessOrEqual(t, result.Item.StartMs, maxOffset)
}

func TestNormD_MonotonicBelowThreeMinutes(t *testing.T) {
	assert.Less(t, normD(60000), normD(120000))
}

func TestNormS_NeverNegative(t *testing.T) {
	assert.GreaterOrEqual(t, normS(0), 0.0)
	assert.GreaterOrEqual(t, normS(neverPlayedMs), 0.0)
}

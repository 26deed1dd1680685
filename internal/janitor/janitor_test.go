package janitor

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/playback"
)

func TestJanitor_RunOnce_PrunesStaleEntries(t *testing.T) {
	cache := playback.New()
	channelID := uuid.New()
	stale := time.Now().Add(-time.Hour)

	cache.RecordItemPlayed(channelID, "clip-1", stale)

	j := New(cache, 10*time.Minute, nil)
	j.runOnce()

	_, ok := cache.ItemLastPlayed(channelID, "clip-1")
	assert.False(t, ok)
}

func TestJanitor_StartStop(t *testing.T) {
	cache := playback.New()
	j := New(cache, time.Hour, nil)

	require.NoError(t, j.Start("@every 1h"))
	j.Stop()
}

func TestJanitor_Start_InvalidCronExpr(t *testing.T) {
	j := New(playback.New(), time.Hour, nil)
	err := j.Start("not a cron expression")
	require.Error(t, err)
}

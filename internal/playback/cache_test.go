package playback

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCache_ItemLastPlayed_Unrecorded(t *testing.T) {
	c := New()
	_, ok := c.ItemLastPlayed(uuid.New(), "clip-1")
	assert.False(t, ok)
}

func TestCache_RecordAndReadItemLastPlayed(t *testing.T) {
	c := New()
	channelID := uuid.New()
	now := time.Now()

	c.RecordItemPlayed(channelID, "clip-1", now)
	got, ok := c.ItemLastPlayed(channelID, "clip-1")
	assert.True(t, ok)
	assert.True(t, got.Equal(now))
}

func TestCache_RecordItemPlayed_MonotonicNonDecreasing(t *testing.T) {
	c := New()
	channelID := uuid.New()
	later := time.Now()
	earlier := later.Add(-time.Hour)

	c.RecordItemPlayed(channelID, "clip-1", later)
	c.RecordItemPlayed(channelID, "clip-1", earlier)

	got, ok := c.ItemLastPlayed(channelID, "clip-1")
	assert.True(t, ok)
	assert.True(t, got.Equal(later))
}

func TestCache_CollectionLastPlayed(t *testing.T) {
	c := New()
	channelID := uuid.New()
	showID := uuid.New()
	now := time.Now()

	_, ok := c.CollectionLastPlayed(channelID, showID)
	assert.False(t, ok)

	c.RecordCollectionPicked(channelID, showID, now)
	got, ok := c.CollectionLastPlayed(channelID, showID)
	assert.True(t, ok)
	assert.True(t, got.Equal(now))
}

func TestCache_SessionAttempts(t *testing.T) {
	c := New()
	sessionID := "session-1"
	base := time.Now()

	assert.Equal(t, 0, c.AttemptsSince(sessionID, base.Add(-time.Minute)))

	c.RecordAttempt(sessionID, base)
	c.RecordAttempt(sessionID, base.Add(time.Second))

	assert.Equal(t, 2, c.AttemptsSince(sessionID, base.Add(-time.Minute)))
	assert.Equal(t, 1, c.AttemptsSince(sessionID, base.Add(500*time.Millisecond)))
}

func TestCache_ClearSession(t *testing.T) {
	c := New()
	sessionID := "session-1"
	c.RecordAttempt(sessionID, time.Now())
	assert.Equal(t, 1, c.AttemptsSince(sessionID, time.Time{}))

	c.ClearSession(sessionID)
	assert.Equal(t, 0, c.AttemptsSince(sessionID, time.Time{}))
}

func TestCache_ConcurrentAccessAcrossChannels(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	channels := make([]uuid.UUID, 32)
	for i := range channels {
		channels[i] = uuid.New()
	}

	for _, ch := range channels {
		wg.Add(1)
		go func(channelID uuid.UUID) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.RecordItemPlayed(channelID, "clip", time.Now())
				c.ItemLastPlayed(channelID, "clip")
			}
		}(ch)
	}
	wg.Wait()

	for _, ch := range channels {
		_, ok := c.ItemLastPlayed(ch, "clip")
		assert.True(t, ok)
	}
}

func TestCache_Prune_RemovesStaleItemsAndSessions(t *testing.T) {
	c := New()
	channelID := uuid.New()
	fillerShowID := uuid.New()
	now := time.Now()
	stale := now.Add(-48 * time.Hour)

	c.RecordItemPlayed(channelID, "stale-clip", stale)
	c.RecordItemPlayed(channelID, "fresh-clip", now)
	c.RecordCollectionPicked(channelID, fillerShowID, stale)
	c.RecordAttempt("stale-session", stale)
	c.RecordAttempt("fresh-session", now)

	items, collections, sessions := c.Prune(now.Add(-time.Hour))
	assert.Equal(t, 1, items)
	assert.Equal(t, 1, collections)
	assert.Equal(t, 1, sessions)

	_, ok := c.ItemLastPlayed(channelID, "stale-clip")
	assert.False(t, ok)
	_, ok = c.ItemLastPlayed(channelID, "fresh-clip")
	assert.True(t, ok)
	assert.Equal(t, 0, c.AttemptsSince("stale-session", time.Time{}))
	assert.Equal(t, 1, c.AttemptsSince("fresh-session", time.Time{}))
}

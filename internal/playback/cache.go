// Package playback holds the in-memory, per-channel record of what was
// last played where, the state FillerPicker's cooldown gates and
// StreamController's session-attempt throttling read and write.
package playback

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lanestream/broadcastcore/internal/models"
)

// stripes is the number of locks the cache shards channels across.
// Picked as a small power of two; this core expects tens, not millions,
// of concurrently-active channels, so a fixed shard count beats the
// bookkeeping of a growable one.
const stripes = 16

// Cache is PlaybackCache: an in-memory, striped-lock-protected record of
// per-channel item/collection last-played timestamps and per-session
// failed-attempt history. Reads and writes are O(1); safe for
// concurrent use by many request-scoped callers at once.
type Cache struct {
	channelLocks [stripes]sync.RWMutex
	channels     [stripes]map[uuid.UUID]*models.ChannelPlayback

	sessionsMu sync.RWMutex
	sessions   map[string]*models.SessionAttempt
}

// New returns an empty Cache ready for concurrent use.
func New() *Cache {
	c := &Cache{
		sessions: make(map[string]*models.SessionAttempt),
	}
	for i := range c.channels {
		c.channels[i] = make(map[uuid.UUID]*models.ChannelPlayback)
	}
	return c
}

func (c *Cache) shard(channelID uuid.UUID) int {
	var h uint64
	for _, b := range channelID {
		h = h*31 + uint64(b)
	}
	return int(h % stripes)
}

// channelPlayback returns the ChannelPlayback for channelID, creating it
// on first access.
func (c *Cache) channelPlayback(channelID uuid.UUID) *models.ChannelPlayback {
	shard := c.shard(channelID)
	lock := &c.channelLocks[shard]

	lock.RLock()
	cp, ok := c.channels[shard][channelID]
	lock.RUnlock()
	if ok {
		return cp
	}

	lock.Lock()
	defer lock.Unlock()
	if cp, ok = c.channels[shard][channelID]; ok {
		return cp
	}
	cp = models.NewChannelPlayback()
	c.channels[shard][channelID] = cp
	return cp
}

// ItemLastPlayed returns when itemKey was last selected on channelID,
// and whether it has ever been selected at all.
func (c *Cache) ItemLastPlayed(channelID uuid.UUID, itemKey models.ItemKey) (time.Time, bool) {
	shard := c.shard(channelID)
	lock := &c.channelLocks[shard]

	lock.RLock()
	defer lock.RUnlock()
	cp, ok := c.channels[shard][channelID]
	if !ok {
		return time.Time{}, false
	}
	t, ok := cp.ItemLastPlayed[itemKey]
	return t, ok
}

// RecordItemPlayed marks itemKey as played on channelID at at. Writes
// are monotonically non-decreasing: an out-of-order call with an older
// timestamp than what's already recorded is dropped rather than
// clobbering a newer record.
func (c *Cache) RecordItemPlayed(channelID uuid.UUID, itemKey models.ItemKey, at time.Time) {
	cp := c.channelPlayback(channelID)
	shard := c.shard(channelID)
	lock := &c.channelLocks[shard]

	lock.Lock()
	defer lock.Unlock()
	if existing, ok := cp.ItemLastPlayed[itemKey]; ok && existing.After(at) {
		return
	}
	cp.ItemLastPlayed[itemKey] = at
}

// CollectionLastPlayed returns when the filler collection owned by
// fillerShowID was last picked on channelID, and whether it has ever
// been picked at all.
func (c *Cache) CollectionLastPlayed(channelID uuid.UUID, fillerShowID uuid.UUID) (time.Time, bool) {
	shard := c.shard(channelID)
	lock := &c.channelLocks[shard]

	lock.RLock()
	defer lock.RUnlock()
	cp, ok := c.channels[shard][channelID]
	if !ok {
		return time.Time{}, false
	}
	t, ok := cp.CollectionLastPlayed[fillerShowID.String()]
	return t, ok
}

// RecordCollectionPicked marks fillerShowID's collection as picked on
// channelID at at, with the same monotonicity guarantee as
// RecordItemPlayed.
func (c *Cache) RecordCollectionPicked(channelID uuid.UUID, fillerShowID uuid.UUID, at time.Time) {
	cp := c.channelPlayback(channelID)
	shard := c.shard(channelID)
	lock := &c.channelLocks[shard]

	lock.Lock()
	defer lock.Unlock()
	key := fillerShowID.String()
	if existing, ok := cp.CollectionLastPlayed[key]; ok && existing.After(at) {
		return
	}
	cp.CollectionLastPlayed[key] = at
}

// RecordAttempt appends a failed-to-produce-bytes attempt timestamp for
// sessionID.
func (c *Cache) RecordAttempt(sessionID string, at time.Time) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	sa, ok := c.sessions[sessionID]
	if !ok {
		sa = &models.SessionAttempt{}
		c.sessions[sessionID] = sa
	}
	sa.Timestamps = append(sa.Timestamps, at)
}

// AttemptsSince returns how many attempts sessionID has recorded at or
// after since.
func (c *Cache) AttemptsSince(sessionID string, since time.Time) int {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()
	sa, ok := c.sessions[sessionID]
	if !ok {
		return 0
	}
	return sa.CountSince(since)
}

// ClearSession discards all recorded attempts for sessionID, used when
// a redirect restart clears the playback records for the hops it walked.
func (c *Cache) ClearSession(sessionID string) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	delete(c.sessions, sessionID)
}

// Prune discards every record across the cache untouched since before
// olderThan: item/collection timestamps that have aged out of any
// plausible cooldown window, and session attempt histories whose most
// recent entry is stale. The cache never shrinks on its own otherwise,
// since channels and sessions are created lazily but never removed.
func (c *Cache) Prune(olderThan time.Time) (itemsPruned, collectionsPruned, sessionsPruned int) {
	for shard := range c.channels {
		lock := &c.channelLocks[shard]
		lock.Lock()
		for _, cp := range c.channels[shard] {
			for key, t := range cp.ItemLastPlayed {
				if t.Before(olderThan) {
					delete(cp.ItemLastPlayed, key)
					itemsPruned++
				}
			}
			for key, t := range cp.CollectionLastPlayed {
				if t.Before(olderThan) {
					delete(cp.CollectionLastPlayed, key)
					collectionsPruned++
				}
			}
		}
		lock.Unlock()
	}

	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	for id, sa := range c.sessions {
		if len(sa.Timestamps) == 0 {
			delete(c.sessions, id)
			sessionsPruned++
			continue
		}
		latest := sa.Timestamps[0]
		for _, t := range sa.Timestamps[1:] {
			if t.After(latest) {
				latest = t
			}
		}
		if latest.Before(olderThan) {
			delete(c.sessions, id)
			sessionsPruned++
		}
	}

	return itemsPruned, collectionsPruned, sessionsPruned
}

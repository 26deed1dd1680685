// Package janitor runs the background schedule that keeps PlaybackCache
// from growing without bound: channels and sessions are created lazily
// on first use and never removed by the request path itself, so
// something has to periodically sweep out entries nothing has touched
// in a long time.
package janitor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lanestream/broadcastcore/internal/playback"
)

// Janitor periodically prunes a playback.Cache on a cron schedule.
type Janitor struct {
	cache      *playback.Cache
	staleAfter time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New builds a Janitor pruning cache of any entry untouched for longer
// than staleAfter, each time the schedule passed to Start fires.
func New(cache *playback.Cache, staleAfter time.Duration, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{cache: cache, staleAfter: staleAfter, logger: logger}
}

// Start schedules the prune job under cronExpr and begins running it in
// the background. Returns an error if cronExpr doesn't parse.
func (j *Janitor) Start(cronExpr string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	c := cron.New()
	if _, err := c.AddFunc(cronExpr, j.runOnce); err != nil {
		return err
	}
	c.Start()
	j.cron = c

	j.logger.Info("janitor started",
		slog.String("cron", cronExpr),
		slog.Duration("stale_after", j.staleAfter))

	return nil
}

// Stop halts the schedule, waiting for any in-flight prune to finish.
func (j *Janitor) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// runOnce performs a single prune pass, invoked by the cron schedule.
func (j *Janitor) runOnce() {
	cutoff := time.Now().Add(-j.staleAfter)
	items, collections, sessions := j.cache.Prune(cutoff)
	if items > 0 || collections > 0 || sessions > 0 {
		j.logger.Info("janitor pruned playback cache",
			slog.Int("items", items),
			slog.Int("collections", collections),
			slog.Int("sessions", sessions))
	}
}

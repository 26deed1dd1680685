// Package concat generates the ffconcat manifest that makes a
// /playlist request look like one infinite file to the concat
// demuxer, and assigns the per-process session identifiers each
// /stream request is tagged with.
package concat

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/playback"
)

// Session is an incrementing-per-process identifier distinguishing one
// client's concat-driven playlist lifetime from another's.
type Session int64

// String renders a Session the way it appears in a /stream URL's
// session query parameter.
func (s Session) String() string {
	return fmt.Sprintf("%d", int64(s))
}

// Generator issues Sessions, strictly increasing for the life of the
// process.
type Generator struct {
	next atomic.Int64
}

// NewGenerator creates a Generator starting at session 1.
func NewGenerator() *Generator {
	return &Generator{}
}

// New issues the next Session.
func (g *Generator) New() Session {
	return Session(g.next.Add(1))
}

// WriteManifest writes the two-entry ffconcat v1.0 manifest that
// drives the infinite-stream illusion: both entries point at
// streamURL, and ffmpeg's -stream_loop -1 keeps reopening it as each
// /stream request EOFs at the end of one program.
func WriteManifest(w io.Writer, streamURL string) error {
	_, err := fmt.Fprintf(w, "ffconcat version 1.0\nfile '%s'\nfile '%s'\n", streamURL, streamURL)
	return err
}

// ThrottleWindow and MaxAttempts bound the hot-loop guard: a session
// that fails to produce bytes more than MaxAttempts times within
// ThrottleWindow is forced to a 60s offline substitute on its next
// resolve rather than re-entering StreamController immediately.
const (
	ThrottleWindow          = 60 * time.Second
	MaxAttempts             = 5
	throttleOfflineDuration = 60000
)

// ShouldThrottle reports whether sessionID has exceeded MaxAttempts
// failed-to-produce-bytes attempts within ThrottleWindow of nowMs.
func ShouldThrottle(cache *playback.Cache, sessionID string, nowMs int64) bool {
	since := models.FromEpochMillis(nowMs - ThrottleWindow.Milliseconds())
	return cache.AttemptsSince(sessionID, since) > MaxAttempts
}

// ThrottleItem builds the 60s offline substitute StreamController
// resolves to once ShouldThrottle reports true.
func ThrottleItem() *models.ResolvedItem {
	item := models.StreamLineupItem{
		LineupItem: models.LineupItem{
			Type:       models.LineupItemOffline,
			DurationMs: throttleOfflineDuration,
		},
		StreamDurationMs: throttleOfflineDuration,
		Error:            "Too many attempts, throttling",
	}
	return &models.ResolvedItem{Item: item, TimeIntoItem: 0, Index: -1}
}

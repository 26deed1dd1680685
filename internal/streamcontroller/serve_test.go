package streamcontroller

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/encoder"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

// TestServe_MissingBinary_ReportsNoBytesProduced exercises the early
// return Serve takes when the encoder binary can't even be spawned:
// bytesProduced must come back false, not depend on a Process that was
// never created.
func TestServe_MissingBinary_ReportsNoBytesProduced(t *testing.T) {
	fs := &fakeStore{}
	c := New(fs, nil, nil)
	channel := &models.Channel{Name: "Demo"}
	resolved := &models.ResolvedItem{Item: models.StreamLineupItem{
		LineupItem:       models.LineupItem{Type: models.LineupItemOffline},
		StreamDurationMs: 60000,
	}}
	settings := &store.FFmpegSettings{BinaryPath: "/no/such/ffmpeg-binary"}

	var buf bytes.Buffer
	bytesProduced, err := c.Serve(context.Background(), channel, resolved, settings, false, &buf)

	require.Error(t, err)
	assert.False(t, bytesProduced)
}

// TestServe_BytesProducedTracksProcess mirrors Serve's own tail end
// (start a Process, pump it, report proc.BytesProduced() alongside the
// pump's error) against a process that writes data and then fails, the
// exact "streamed something, then crashed" case the RecordAttempt gate
// must not treat as a zero-byte failure.
func TestServe_BytesProducedTracksProcess(t *testing.T) {
	proc := encoder.New("sh", []string{"-c", "printf hi; exit 1"})
	require.NoError(t, proc.Start(context.Background()))

	var buf bytes.Buffer
	err := PumpToWriter(context.Background(), proc, &buf)

	require.Error(t, err)
	assert.True(t, proc.BytesProduced())
	assert.Equal(t, "hi", buf.String())
}

func TestServe_BytesProducedFalse_WhenProcessNeverWrites(t *testing.T) {
	proc := encoder.New("sh", []string{"-c", "exit 1"})
	require.NoError(t, proc.Start(context.Background()))

	var buf bytes.Buffer
	err := PumpToWriter(context.Background(), proc, &buf)

	require.Error(t, err)
	assert.False(t, proc.BytesProduced())
}

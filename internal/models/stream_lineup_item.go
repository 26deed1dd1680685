package models

import "github.com/google/uuid"

// StreamLineupItem is the runtime-only result of resolving a lineup
// position to something playable: LineupResolver, RedirectWalker, and
// FillerPicker each produce or refine one of these before it reaches
// EncoderPlanBuilder. It is never persisted.
type StreamLineupItem struct {
	LineupItem

	// StartMs is how far into the source to seek before playing.
	StartMs int64 `json:"start_ms"`
	// StreamDurationMs is how long to play starting at StartMs; this is
	// what bounds the encoder's -t flag.
	StreamDurationMs int64 `json:"stream_duration_ms"`
	// BeginningOffsetMs is how much of the logical program had already
	// elapsed before the client joined, even if StartMs was snapped to 0.
	BeginningOffsetMs int64 `json:"beginning_offset_ms"`

	Title     string `json:"title,omitempty"`
	SourceURL string `json:"source_url,omitempty"`

	// Error, if non-empty, is a human-readable explanation attached when
	// this item is standing in for a failure (e.g. a redirect cycle) —
	// §7 requires these be surfaced in-stream, never as an HTTP error.
	Error string `json:"error,omitempty"`

	// IsFiller marks an item FillerPicker selected to fill an offline gap.
	// FillerPicker records the clip's playback itself (keyed by clip ID),
	// so StreamController does not record a lineup-item entry for it.
	IsFiller bool `json:"is_filler,omitempty"`
	// FillerShowID identifies the owning FillerShow when IsFiller is set,
	// so PlaybackCache can record the per-collection cooldown timestamp.
	FillerShowID uuid.UUID `json:"filler_show_id,omitempty"`
}

// ResolvedItem is what LineupResolver returns: the item itself, how far
// into it the requested wall-clock time falls, and its lineup position.
// Index is -1 for the synthetic offline item returned when
// now < channel.StartTimeMs.
type ResolvedItem struct {
	Item         StreamLineupItem
	TimeIntoItem int64
	Index        int
}

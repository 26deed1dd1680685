package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OfflineMode selects what fills an offline/flex gap when no filler
// clip is eligible: a static clip or a generated picture slide.
type OfflineMode string

const (
	OfflineModeClip OfflineMode = "clip"
	OfflineModePic  OfflineMode = "pic"
)

// WatermarkPosition is one of the four corner anchors a watermark overlay
// can be placed at.
type WatermarkPosition string

const (
	WatermarkTopLeft     WatermarkPosition = "top-left"
	WatermarkTopRight    WatermarkPosition = "top-right"
	WatermarkBottomLeft  WatermarkPosition = "bottom-left"
	WatermarkBottomRight WatermarkPosition = "bottom-right"
)

// Watermark describes an optional overlay burned into a channel's output.
type Watermark struct {
	Enabled bool `json:"enabled"`
	// URL or Icon identifies the overlay image/animation source; exactly
	// one is expected to be set.
	URL  string `json:"url,omitempty"`
	Icon string `json:"icon,omitempty"`

	WidthPercent           float64           `json:"width_percent"`
	VerticalMarginPercent  float64           `json:"vertical_margin_percent"`
	HorizontalMarginPercent float64          `json:"horizontal_margin_percent"`
	Position               WatermarkPosition `json:"position"`

	// DurationSeconds is how long the watermark is shown per item;
	// 0 means "forever" (shown for the whole item).
	DurationSeconds int  `json:"duration_seconds"`
	FixedSize       bool `json:"fixed_size"`
	Animated        bool `json:"animated"`
}

// TranscodingOverrides carries per-channel encoder targets that override
// any global ffmpeg defaults. Zero values mean "use the global default."
type TranscodingOverrides struct {
	TargetWidth  int `json:"target_width,omitempty"`
	TargetHeight int `json:"target_height,omitempty"`
	BitrateKbps  int `json:"bitrate_kbps,omitempty"`
	BufferSizeKb int `json:"buffer_size_kb,omitempty"`
	// CustomOutputArgs is a raw string of extra ffmpeg output flags,
	// appended to the plan after codec selection. Validated against
	// ffmpeg.ValidateCustomFlags before use; rejected strings are
	// dropped rather than failing the stream.
	CustomOutputArgs string `json:"custom_output_args,omitempty"`
	// TargetAudioSampleRate and TargetAudioChannels force an audio
	// filter graph (resample/remix) independently of codec selection
	// when the probed source doesn't already match. 0 means "keep
	// whatever the source has."
	TargetAudioSampleRate int `json:"target_audio_sample_rate,omitempty"`
	TargetAudioChannels   int `json:"target_audio_channels,omitempty"`
}

// OfflinePolicy governs what plays when a channel has no program airing.
type OfflinePolicy struct {
	Mode OfflineMode `json:"mode"`
	// FallbackSoundtrackPath is looped under a generated picture/clip
	// slide when Mode is OfflineModePic.
	FallbackSoundtrackPath string `json:"fallback_soundtrack_path,omitempty"`
	// FallbackPicturePath is the still image shown when Mode is
	// OfflineModePic.
	FallbackPicturePath string `json:"fallback_picture_path,omitempty"`
	// FallbackClipPath is used when Mode is OfflineModeClip and the
	// weighted filler lottery returns no eligible candidate.
	FallbackClipPath string `json:"fallback_clip_path,omitempty"`
}

// FillerCollectionRef is a channel's weighted reference to a FillerShow,
// with a per-channel repeat cooldown for clips drawn from that show.
type FillerCollectionRef struct {
	FillerShowID uuid.UUID `json:"filler_show_id"`
	Weight       float64   `json:"weight"`
	// CooldownMs is the minimum time between two picks of this collection
	// on the owning channel.
	CooldownMs int64 `json:"cooldown_ms"`
}

// Channel is an ordered, looping schedule of programs served as one
// infinite live stream. StartTime anchors the schedule to the wall
// clock; Duration is the sum of every LineupItem's duration and is the
// modulus the schedule loops over.
type Channel struct {
	BaseModel

	Name       string `gorm:"not null;size:512" json:"name"`
	Number     int    `gorm:"not null;uniqueIndex" json:"number"`
	GroupTitle string `gorm:"size:255" json:"group_title,omitempty"`

	// StartTimeMs is the epoch-millisecond anchor of the lineup: the
	// wall-clock instant at which item 0 began (or will begin, for a
	// channel scheduled in the future).
	StartTimeMs int64 `gorm:"not null" json:"start_time_ms"`
	// DurationMs is the sum of every lineup item's duration; the modulus
	// of the loop (see Clock & Time Math).
	DurationMs int64 `gorm:"not null" json:"duration_ms"`

	IconURL string `gorm:"size:2048" json:"icon_url,omitempty"`

	Watermark     Watermark     `gorm:"embedded;embeddedPrefix:watermark_" json:"watermark"`
	OfflinePolicy OfflinePolicy `gorm:"embedded;embeddedPrefix:offline_" json:"offline_policy"`
	Transcoding   TranscodingOverrides `gorm:"embedded;embeddedPrefix:transcode_" json:"transcoding"`

	// TranscodingProfileID optionally names a reusable EncodingProfile
	// this channel's plan is built from; Transcoding's own non-zero
	// fields still override whatever the profile sets, per field.
	TranscodingProfileID *uuid.UUID `gorm:"type:uuid" json:"transcoding_profile_id,omitempty"`

	// FillerRepeatCooldownMs is how long a filler clip must rest before
	// it can be picked again on this channel.
	FillerRepeatCooldownMs int64 `gorm:"default:0" json:"filler_repeat_cooldown_ms"`
	// FillerCollections is stored as JSON; GORM's serializer tag keeps
	// this a single column rather than a join table, since ordering and
	// weight are channel-owned, not FillerShow-owned.
	FillerCollections []FillerCollectionRef `gorm:"serializer:json" json:"filler_collections,omitempty"`

	// Stealth hides the channel from program guides without disabling
	// the stream itself.
	Stealth bool `gorm:"default:false" json:"stealth"`
	// DisableFillerOverlay suppresses the watermark during filler/offline
	// playback even if Watermark.Enabled is true.
	DisableFillerOverlay bool `gorm:"default:false" json:"disable_filler_overlay"`
}

// TableName returns the table name for Channel.
func (Channel) TableName() string {
	return "channels"
}

// Validate performs basic validation on the channel.
func (c *Channel) Validate() error {
	if c.Name == "" {
		return ErrNameRequired
	}
	if c.Number <= 0 {
		return ErrChannelNumberRequired
	}
	if c.DurationMs <= 0 {
		return ErrChannelDurationRequired
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the channel and generates
// its UUID.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if err := c.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	return c.Validate()
}

// BeforeUpdate is a GORM hook that validates the channel before update.
func (c *Channel) BeforeUpdate(_ *gorm.DB) error {
	return c.Validate()
}

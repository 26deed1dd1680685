// Package store declares the minimal persistence contract the streaming
// core reads through, and ships a GORM-backed reference implementation of
// it so the core is runnable standalone. Channels, programs, lineups,
// filler shows, and settings are all owned by Store; the core itself
// never writes to it.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lanestream/broadcastcore/internal/models"
)

// Store is the read-only contract the streaming core consults per request.
// getChannel(id|number), loadLineup(channelId), loadChannelAndLineup(id),
// and FFmpegSettings are the four calls named in the core's design; this
// interface adds GetProgram and GetFillerCollections alongside them
// because FillerPicker and EncoderPlanBuilder need to hydrate a resolved
// LineupItem's program or filler content from somewhere Store owns, and
// "settings" in the core's design already covers more than one struct
// (encoder tuning here, channel-scoped policy on Channel itself).
type Store interface {
	// GetChannel returns the channel with the given ID, or ErrNotFound.
	GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error)
	// GetChannelByNumber returns the channel with the given number, or ErrNotFound.
	GetChannelByNumber(ctx context.Context, number int) (*models.Channel, error)
	// LoadLineup returns channelID's lineup, ordered by Position.
	LoadLineup(ctx context.Context, channelID uuid.UUID) (*models.Lineup, error)
	// LoadChannelAndLineup returns a channel and its lineup together, the
	// shape RedirectWalker needs at every hop.
	LoadChannelAndLineup(ctx context.Context, id uuid.UUID) (*models.Channel, *models.Lineup, error)
	// GetProgram returns the program a content LineupItem references.
	GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error)
	// GetFillerCollections resolves channel's FillerCollectionRefs into
	// their owning FillerShows, in the shape FillerPicker's weighted
	// lottery operates on.
	GetFillerCollections(ctx context.Context, channel *models.Channel) ([]FillerCollection, error)
	// FFmpegSettings returns the process-wide encoder tuning EncoderPlanBuilder
	// consults (frame-rate cap, deinterlace policy, binary paths, HLS tuning).
	FFmpegSettings(ctx context.Context) (*FFmpegSettings, error)
	// GetEncodingProfile resolves a channel's TranscodingProfileID into
	// the reusable profile EncoderPlanBuilder layers channel-level
	// TranscodingOverrides on top of.
	GetEncodingProfile(ctx context.Context, id uuid.UUID) (*models.EncodingProfile, error)
}

// FillerCollection is a channel's FillerCollectionRef resolved against its
// owning FillerShow, the unit FillerPicker's per-collection gate and
// weighted lottery operate on.
type FillerCollection struct {
	FillerShowID uuid.UUID
	Weight       float64
	CooldownMs   int64
	Clips        []models.FillerClip
}

// ScanType is the probed interlace state EncoderPlanBuilder's deinterlace
// rule keys off.
type ScanType string

const (
	ScanProgressive ScanType = "progressive"
	ScanInterlaced  ScanType = "interlaced"
)

// DeinterlaceFilter names the ffmpeg filter EncoderPlanBuilder inserts when
// the probed source is interlaced. "none" disables deinterlacing.
type DeinterlaceFilter string

const (
	DeinterlaceNone   DeinterlaceFilter = "none"
	DeinterlaceYadif  DeinterlaceFilter = "yadif"
	DeinterlaceBwdif  DeinterlaceFilter = "bwdif"
)

// FFmpegSettings is the encoder-wide tuning EncoderPlanBuilder consults
// alongside a channel's own transcoding overrides and encoding profile.
type FFmpegSettings struct {
	BinaryPath        string
	ProbePath         string
	HWAccelPriority    []string
	MaxFPS            float64
	DeinterlaceFilter DeinterlaceFilter
	HLSDeleteThreshold int
	StartupWait       time.Duration
}

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lanestream/broadcastcore/internal/config"
	"github.com/lanestream/broadcastcore/internal/db"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/util"
	"gorm.io/gorm"
)

// gormStore implements Store against the reference GORM-backed schema.
type gormStore struct {
	db       *db.DB
	ffmpeg   config.FFmpegConfig
}

// New returns a Store backed by the given connection and the process's
// ffmpeg configuration (the piece of "settings" that FFmpegSettings serves).
func New(conn *db.DB, ffmpegCfg config.FFmpegConfig) Store {
	return &gormStore{db: conn, ffmpeg: ffmpegCfg}
}

func (s *gormStore) GetChannel(ctx context.Context, id uuid.UUID) (*models.Channel, error) {
	var ch models.Channel
	if err := s.db.WithContext(ctx).First(&ch, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("getting channel by id: %w", err)
	}
	return &ch, nil
}

func (s *gormStore) GetChannelByNumber(ctx context.Context, number int) (*models.Channel, error) {
	var ch models.Channel
	if err := s.db.WithContext(ctx).First(&ch, "number = ?", number).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("getting channel by number: %w", err)
	}
	return &ch, nil
}

func (s *gormStore) LoadLineup(ctx context.Context, channelID uuid.UUID) (*models.Lineup, error) {
	var items []models.LineupItem
	if err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("loading lineup: %w", err)
	}
	return &models.Lineup{ChannelID: channelID, Items: items}, nil
}

func (s *gormStore) LoadChannelAndLineup(ctx context.Context, id uuid.UUID) (*models.Channel, *models.Lineup, error) {
	ch, err := s.GetChannel(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	lineup, err := s.LoadLineup(ctx, ch.ID)
	if err != nil {
		return nil, nil, err
	}
	return ch, lineup, nil
}

func (s *gormStore) GetProgram(ctx context.Context, id uuid.UUID) (*models.Program, error) {
	var p models.Program
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("getting program: %w", err)
	}
	return &p, nil
}

func (s *gormStore) GetFillerCollections(ctx context.Context, channel *models.Channel) ([]FillerCollection, error) {
	if len(channel.FillerCollections) == 0 {
		return nil, nil
	}

	collections := make([]FillerCollection, 0, len(channel.FillerCollections))
	for _, ref := range channel.FillerCollections {
		var show models.FillerShow
		if err := s.db.WithContext(ctx).First(&show, "id = ?", ref.FillerShowID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				continue
			}
			return nil, fmt.Errorf("getting filler show %s: %w", ref.FillerShowID, err)
		}
		collections = append(collections, FillerCollection{
			FillerShowID: show.ID,
			Weight:       ref.Weight,
			CooldownMs:   ref.CooldownMs,
			Clips:        show.Clips,
		})
	}
	return collections, nil
}

// FFmpegSettings resolves the process's ffmpeg configuration, auto-
// detecting the ffmpeg/ffprobe binaries via util.FindBinary when
// BinaryPath/ProbePath are left empty, matching the "empty =
// auto-detect" contract config.FFmpegConfig documents.
func (s *gormStore) FFmpegSettings(ctx context.Context) (*FFmpegSettings, error) {
	binaryPath := s.ffmpeg.BinaryPath
	if binaryPath == "" {
		if found, err := util.FindBinary("ffmpeg", "BROADCASTCORE_FFMPEG_BINARY"); err == nil {
			binaryPath = found
		}
	}

	probePath := s.ffmpeg.ProbePath
	if probePath == "" {
		if found, err := util.FindBinary("ffprobe", "BROADCASTCORE_FFPROBE_BINARY"); err == nil {
			probePath = found
		}
	}

	return &FFmpegSettings{
		BinaryPath:         binaryPath,
		ProbePath:          probePath,
		HWAccelPriority:    s.ffmpeg.HWAccelPriority,
		MaxFPS:             60,
		DeinterlaceFilter:  DeinterlaceYadif,
		HLSDeleteThreshold: s.ffmpeg.HLSDeleteThreshold,
		StartupWait:        s.ffmpeg.StartupWait,
	}, nil
}

// GetEncodingProfile returns the encoding profile with the given ID, or
// ErrNotFound.
func (s *gormStore) GetEncodingProfile(ctx context.Context, id uuid.UUID) (*models.EncodingProfile, error) {
	var p models.EncodingProfile
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("getting encoding profile: %w", err)
	}
	return &p, nil
}

var _ Store = (*gormStore)(nil)

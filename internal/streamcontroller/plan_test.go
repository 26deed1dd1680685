package streamcontroller

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/encoderplan"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/playback"
	"github.com/lanestream/broadcastcore/internal/store"
)

func TestBuildEncoderInput_EncodingProfile_SetsTargets(t *testing.T) {
	profileID := uuid.New()
	fs := &fakeStore{
		profiles: map[uuid.UUID]*models.EncodingProfile{
			profileID: {
				TargetVideoCodec: models.VideoCodecH265,
				TargetAudioCodec: models.AudioCodecAC3,
				AudioSampleRate:  48000,
				AudioChannels:    6,
				HWAccel:          models.HWAccelNone,
			},
		},
	}
	c := New(fs, playback.New(), nil)
	channel := &models.Channel{Name: "Demo", TranscodingProfileID: &profileID}
	item := &models.StreamLineupItem{LineupItem: models.LineupItem{}, StreamDurationMs: 60000}

	in := c.BuildEncoderInput(context.Background(), channel, item, &store.FFmpegSettings{}, encoderplan.OutputMPEGTS, "", false)

	assert.Equal(t, "h265", in.TargetVideoCodec)
	assert.Equal(t, "ac3", in.TargetAudioCodec)
	assert.Equal(t, 48000, in.TargetAudioSampleRate)
	assert.Equal(t, 6, in.TargetAudioChannels)
}

func TestBuildEncoderInput_ChannelOverride_WinsOverProfile(t *testing.T) {
	profileID := uuid.New()
	fs := &fakeStore{
		profiles: map[uuid.UUID]*models.EncodingProfile{
			profileID: {AudioChannels: 6, AudioSampleRate: 48000},
		},
	}
	c := New(fs, playback.New(), nil)
	channel := &models.Channel{
		Name:                "Demo",
		TranscodingProfileID: &profileID,
		Transcoding:          models.TranscodingOverrides{TargetAudioChannels: 2},
	}
	item := &models.StreamLineupItem{StreamDurationMs: 60000}

	in := c.BuildEncoderInput(context.Background(), channel, item, &store.FFmpegSettings{}, encoderplan.OutputMPEGTS, "", false)

	assert.Equal(t, 2, in.TargetAudioChannels, "per-channel override takes precedence over the profile")
	assert.Equal(t, 48000, in.TargetAudioSampleRate, "profile value survives when the channel doesn't override it")
}

func TestBuildEncoderInput_UnknownProfile_FallsBackToDefaults(t *testing.T) {
	fs := &fakeStore{}
	c := New(fs, playback.New(), nil)
	missing := uuid.New()
	channel := &models.Channel{Name: "Demo", TranscodingProfileID: &missing}
	item := &models.StreamLineupItem{StreamDurationMs: 60000}

	in := c.BuildEncoderInput(context.Background(), channel, item, &store.FFmpegSettings{}, encoderplan.OutputMPEGTS, "", false)

	assert.Equal(t, defaultVideoCodec, in.TargetVideoCodec)
	assert.Equal(t, defaultAudioCodec, in.TargetAudioCodec)
	require.NotNil(t, in.Channel)
}

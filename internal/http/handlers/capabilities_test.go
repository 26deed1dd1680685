package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/ffmpeg"
	pkgffmpeg "github.com/lanestream/broadcastcore/pkg/ffmpeg"
)

type fakeCapabilitiesProvider struct {
	info *ffmpeg.BinaryInfo
	err  error
}

func (f *fakeCapabilitiesProvider) Detect(_ context.Context) (*ffmpeg.BinaryInfo, error) {
	return f.info, f.err
}

func TestGetCapabilities_DetectorError_ReturnsUnavailable(t *testing.T) {
	h := NewCapabilitiesHandler(&fakeCapabilitiesProvider{err: errors.New("ffmpeg not found")})

	out, err := h.getCapabilities(context.Background(), &capabilitiesInput{})

	require.NoError(t, err)
	assert.False(t, out.Body.Available)
	assert.Empty(t, out.Body.FFmpegPath)
}

func TestGetCapabilities_ReportsDetectedBinaryAndRecommendation(t *testing.T) {
	info := &ffmpeg.BinaryInfo{
		FFmpegPath:   "/usr/bin/ffmpeg",
		FFprobePath:  "/usr/bin/ffprobe",
		Version:      "6.0",
		MajorVersion: 6,
		Encoders:     []string{"libx264", "aac", "h264_nvenc"},
		Formats: []ffmpeg.FormatInfo{
			{Name: "mpegts", CanMux: true, CanDemux: true},
		},
		HWAccels: []ffmpeg.HWAccelInfo{
			{Type: pkgffmpeg.HWAccelNVENC, Name: "NVIDIA NVENC", Available: true, Encoders: []string{"h264_nvenc"}},
			{Type: pkgffmpeg.HWAccelQSV, Name: "Intel Quick Sync", Available: false},
		},
	}
	h := NewCapabilitiesHandler(&fakeCapabilitiesProvider{info: info})

	out, err := h.getCapabilities(context.Background(), &capabilitiesInput{})
	require.NoError(t, err)

	body := out.Body
	assert.True(t, body.Available)
	assert.Equal(t, "/usr/bin/ffmpeg", body.FFmpegPath)
	assert.True(t, body.SupportsMPEGTS)

	require.Len(t, body.HWAccels, 1, "only the available accelerator should be reported")
	assert.Equal(t, "NVIDIA NVENC", body.HWAccels[0].Name)

	require.NotNil(t, body.Recommended)
	assert.Equal(t, "h264_nvenc", body.Recommended.VideoEncoder)
	assert.Equal(t, "aac", body.Recommended.AudioEncoder)
}

package streamcontroller

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lanestream/broadcastcore/internal/codec"
	"github.com/lanestream/broadcastcore/internal/encoderplan"
	"github.com/lanestream/broadcastcore/internal/ffmpeg"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

// Default target resolution and codecs for channels that don't carry an
// encoding-profile override. Store has no encoding-profile default row
// of its own (TranscodingOverrides only ever overrides these), so a
// fixed sane default lives here.
const (
	defaultTargetWidth  = 1280
	defaultTargetHeight = 720
	defaultVideoCodec   = "h264"
	defaultAudioCodec   = "aac"
)

// BuildEncoderInput maps a resolved item and its channel onto the flat
// input EncoderPlanBuilder consumes (step 10's first half). audioOnly
// strips the video stream, for /radio and /stream?audioOnly=1. It
// probes item.SourceURL with ffprobe when present, and consults
// settings.HWAccelPriority to pick a hardware-accelerated video
// encoder when the source needs a real transcode.
func (c *Controller) BuildEncoderInput(ctx context.Context, channel *models.Channel, item *models.StreamLineupItem, settings *store.FFmpegSettings, output encoderplan.OutputTarget, segmentDir string, audioOnly bool) encoderplan.Input {
	width, height := defaultTargetWidth, defaultTargetHeight
	targetVideoCodec, targetAudioCodec := defaultVideoCodec, defaultAudioCodec
	var targetAudioSampleRate, targetAudioChannels int
	var profileVideoEncoder, profileAudioEncoder string

	if profile := c.loadEncodingProfile(ctx, channel); profile != nil {
		if profile.TargetVideoCodec != "" {
			targetVideoCodec = string(profile.TargetVideoCodec)
		}
		if profile.TargetAudioCodec != "" {
			targetAudioCodec = string(profile.TargetAudioCodec)
		}
		targetAudioSampleRate = profile.AudioSampleRate
		targetAudioChannels = profile.AudioChannels
		if profile.UsesHardwareAccel() {
			profileVideoEncoder = profile.GetVideoEncoder()
		}
		if profile.TargetAudioCodec != "" {
			profileAudioEncoder = profile.GetAudioEncoder()
		}
	}

	if channel.Transcoding.TargetWidth > 0 {
		width = channel.Transcoding.TargetWidth
	}
	if channel.Transcoding.TargetHeight > 0 {
		height = channel.Transcoding.TargetHeight
	}
	if channel.Transcoding.TargetAudioSampleRate > 0 {
		targetAudioSampleRate = channel.Transcoding.TargetAudioSampleRate
	}
	if channel.Transcoding.TargetAudioChannels > 0 {
		targetAudioChannels = channel.Transcoding.TargetAudioChannels
	}

	in := encoderplan.Input{
		Item:                  item,
		Channel:                channel,
		Settings:               settings,
		TargetWidth:            width,
		TargetHeight:           height,
		TargetVideoCodec:       targetVideoCodec,
		TargetAudioCodec:       targetAudioCodec,
		TargetAudioSampleRate:  targetAudioSampleRate,
		TargetAudioChannels:    targetAudioChannels,
		AudioEncoder:           profileAudioEncoder,
		Output:                 output,
		SegmentDir:             segmentDir,
		AudioOnly:              audioOnly,
	}

	if channel.Watermark.Enabled && !(item.Type == models.LineupItemOffline && channel.DisableFillerOverlay) {
		in.Watermark = &channel.Watermark
	}

	if result := ffmpeg.ValidateCustomFlags(channel.Transcoding.CustomOutputArgs); result.Valid {
		in.CustomArgs = ffmpeg.ParseCustomArgs(channel.Transcoding.CustomOutputArgs)
	} else if channel.Transcoding.CustomOutputArgs != "" {
		slog.Warn("dropping channel custom output args",
			slog.String("channel", channel.Name),
			slog.Any("errors", result.Errors))
	}

	if item.SourceURL != "" {
		in.Probe = c.probeSource(ctx, settings, item.SourceURL, audioOnly)
		if in.Probe.HasVideo {
			if profileVideoEncoder != "" {
				in.VideoEncoder = profileVideoEncoder
			} else {
				hwaccel := c.hwaccel.selectHWAccel(ctx, settings.BinaryPath, settings.HWAccelPriority)
				in.VideoEncoder = codecVideoEncoder(in.TargetVideoCodec, hwaccel)
			}
		}
		return in
	}

	applyScreenMode(&in, channel, item)
	return in
}

// loadEncodingProfile resolves channel's reusable encoding profile, if
// any. A lookup failure other than "not configured/not found" is logged
// and treated the same as no profile, so a dangling reference degrades
// to the channel's own defaults rather than failing the stream.
func (c *Controller) loadEncodingProfile(ctx context.Context, channel *models.Channel) *models.EncodingProfile {
	if channel.TranscodingProfileID == nil {
		return nil
	}
	profile, err := c.Store.GetEncodingProfile(ctx, *channel.TranscodingProfileID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			slog.Warn("loading channel's encoding profile failed",
				slog.String("channel", channel.Name), slog.Any("error", err))
		}
		return nil
	}
	return profile
}

// probeSource runs ffprobe against url via settings.ProbePath. A probe
// failure (unreachable source, ffprobe missing) falls back to
// unknownProbe so the plan still forces a safe transcode instead of
// failing the request outright.
func (c *Controller) probeSource(ctx context.Context, settings *store.FFmpegSettings, url string, audioOnly bool) *encoderplan.ProbeStats {
	probePath := settings.ProbePath
	if probePath == "" {
		return unknownProbe(audioOnly)
	}

	info, err := ffmpeg.NewProber(probePath).Probe(ctx, url)
	if err != nil {
		slog.Warn("probing source failed, forcing transcode", slog.String("url", url), slog.Any("error", err))
		return unknownProbe(audioOnly)
	}

	scan := store.ScanProgressive
	if info.Interlaced {
		scan = store.ScanInterlaced
	}

	return &encoderplan.ProbeStats{
		HasVideo:   info.HasVideo && !audioOnly,
		Width:      info.Width,
		Height:     info.Height,
		SARNum:     info.SARNum,
		SARDen:     info.SARDen,
		FPS:        info.FPS,
		Scan:       scan,
		VideoCodec: info.VideoCodec,
		HasAudio:   info.HasAudio,
		AudioCodec: info.AudioCodec,
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	}
}

// unknownProbe stands in for a real source probe that failed or
// couldn't run: codecs reported empty so normalizeVideoCodec/
// normalizeAudioCodec always force a transcode rather than risk an
// unverified codec-copy, and dimensions reported zero so the
// resolution-fit chain always normalizes against the target box.
func unknownProbe(audioOnly bool) *encoderplan.ProbeStats {
	return &encoderplan.ProbeStats{
		HasVideo: !audioOnly,
		HasAudio: true,
		Scan:     store.ScanProgressive,
	}
}

// codecVideoEncoder resolves the ffmpeg encoder name for targetCodec
// under hwaccel, deferring to internal/codec's encoder table.
func codecVideoEncoder(targetCodec string, hwaccel codec.HWAccel) string {
	return codec.GetVideoEncoder(codec.Video(targetCodec), hwaccel)
}

// applyScreenMode fills in the synthetic-source fields of in for an
// item with no real media to play: a genuine offline gap with no
// eligible filler, or an error standing in for a failed upstream.
func applyScreenMode(in *encoderplan.Input, channel *models.Channel, item *models.StreamLineupItem) {
	if item.Error != "" {
		in.ScreenMode = encoderplan.ScreenText
		in.ScreenText = item.Error
		in.AudioMode = encoderplan.AudioSynthSilence
		return
	}

	if channel.OfflinePolicy.Mode == models.OfflineModePic {
		in.ScreenMode = encoderplan.ScreenPic
		if channel.OfflinePolicy.FallbackSoundtrackPath != "" {
			in.AudioMode = encoderplan.AudioSynthSoundtrack
			in.SoundtrackPath = channel.OfflinePolicy.FallbackSoundtrackPath
		} else {
			in.AudioMode = encoderplan.AudioSynthSilence
		}
		return
	}

	in.ScreenMode = encoderplan.ScreenText
	in.ScreenText = "offline"
	in.AudioMode = encoderplan.AudioSynthSilence
}

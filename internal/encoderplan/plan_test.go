package encoderplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

func baseSettings() *store.FFmpegSettings {
	return &store.FFmpegSettings{
		MaxFPS:             30,
		DeinterlaceFilter:  store.DeinterlaceNone,
		HLSDeleteThreshold: 3,
	}
}

func syntheticInput(mode ScreenMode) Input {
	return Input{
		Item:             &models.StreamLineupItem{Title: "Off Air", StreamDurationMs: 60000},
		Channel:          &models.Channel{},
		Settings:         baseSettings(),
		TargetWidth:      1280,
		TargetHeight:     720,
		ScreenMode:       mode,
		ScreenText:       "Off Air",
		AudioMode:        AudioSynthSilence,
		TargetVideoCodec: "h264",
		TargetAudioCodec: "aac",
		VideoEncoder:     "libx264",
		AudioEncoder:     "aac",
		Output:           OutputMPEGTS,
	}
}

func probedInput() Input {
	return Input{
		Item:     &models.StreamLineupItem{Title: "Show", SourceURL: "/media/show.mp4", StreamDurationMs: 120000},
		Channel:  &models.Channel{},
		Settings: baseSettings(),
		Probe: &ProbeStats{
			HasVideo:   true,
			Width:      1920,
			Height:     1080,
			SARNum:     1,
			SARDen:     1,
			FPS:        30,
			Scan:       store.ScanProgressive,
			VideoCodec: "h264",
			HasAudio:   true,
			AudioCodec: "aac",
		},
		TargetWidth:      1280,
		TargetHeight:     720,
		TargetVideoCodec: "h264",
		TargetAudioCodec: "aac",
		VideoEncoder:     "libx264",
		AudioEncoder:     "aac",
		Output:           OutputMPEGTS,
	}
}

func TestBuild_Determinism(t *testing.T) {
	in := probedInput()
	p1, err := Build(in)
	require.NoError(t, err)
	p2, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, p1.Args, p2.Args)
}

func TestBuild_KillMode_ReturnsError(t *testing.T) {
	in := syntheticInput(ScreenKill)
	_, err := Build(in)
	require.Error(t, err)
	var streamErr *models.StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.Equal(t, models.KindEncoderMissing, streamErr.Kind)
}

func assertFilterComplexWellFormed(t *testing.T, args []string) {
	t.Helper()
	for i, a := range args {
		if a == "-filter_complex" {
			require.Less(t, i+1, len(args))
			fc := args[i+1]
			require.NotEmpty(t, fc)
			assert.False(t, strings.HasPrefix(fc, ";"), "filter_complex must not start with ';'")

			defined := map[string]int{}
			used := map[string]int{}
			for _, step := range strings.Split(fc, ";") {
				for _, out := range extractPads(step, true) {
					defined[out]++
				}
				for _, in := range extractPads(step, false) {
					used[in]++
				}
			}
			for pad, n := range defined {
				assert.Equal(t, 1, n, "pad %s defined %d times, want exactly once", pad, n)
			}
			for pad := range used {
				_, ok := defined[pad]
				assert.True(t, ok, "pad %s used but never defined upstream", pad)
			}
			return
		}
	}
}

// extractPads pulls bracketed pad names out of a single filter_complex
// step. wantOutputs selects trailing "[pad]" occurrences (filter
// outputs); otherwise leading "[pad]" occurrences (filter inputs).
func extractPads(step string, wantOutputs bool) []string {
	var pads []string
	depth := 0
	var cur strings.Builder
	var collected []string
	for _, r := range step {
		switch r {
		case '[':
			depth++
			cur.Reset()
		case ']':
			depth--
			collected = append(collected, cur.String())
		default:
			if depth > 0 {
				cur.WriteRune(r)
			}
		}
	}
	if len(collected) == 0 {
		return nil
	}
	if wantOutputs {
		pads = append(pads, collected[len(collected)-1])
	} else {
		pads = append(pads, collected[:len(collected)-1]...)
	}
	return pads
}

func TestBuild_FilterComplexWellFormed_AllScreenModes(t *testing.T) {
	for _, mode := range []ScreenMode{ScreenPic, ScreenStatic, ScreenTestsrc, ScreenText} {
		in := syntheticInput(mode)
		in.Watermark = &models.Watermark{
			Enabled:                 true,
			WidthPercent:            10,
			HorizontalMarginPercent: 5,
			VerticalMarginPercent:   5,
			Position:                models.WatermarkTopRight,
		}
		p, err := Build(in)
		require.NoError(t, err)
		assertFilterComplexWellFormed(t, p.Args)
	}
}

func TestBuild_FilterComplexWellFormed_Probed(t *testing.T) {
	in := probedInput()
	p, err := Build(in)
	require.NoError(t, err)
	assertFilterComplexWellFormed(t, p.Args)
}

func TestBuild_PicMode_StillimageTune(t *testing.T) {
	in := syntheticInput(ScreenPic)
	in.VideoEncoder = "libx264"
	p, err := Build(in)
	require.NoError(t, err)
	assert.Contains(t, p.Args, "-tune")
	idx := indexOf(p.Args, "-tune")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "stillimage", p.Args[idx+1])
}

func TestBuild_StaticMode_NoStillimageTune(t *testing.T) {
	in := syntheticInput(ScreenStatic)
	p, err := Build(in)
	require.NoError(t, err)
	assert.NotContains(t, p.Args, "-tune")
}

func TestBuild_PicMode_UnsupportedEncoder_NoStillimageTune(t *testing.T) {
	in := syntheticInput(ScreenPic)
	in.VideoEncoder = "h264_nvenc"
	p, err := Build(in)
	require.NoError(t, err)
	assert.NotContains(t, p.Args, "-tune")
}

func TestBuild_CodecCopy_WhenCodecsMatch(t *testing.T) {
	in := probedInput()
	p, err := Build(in)
	require.NoError(t, err)
	idx := indexOf(p.Args, "-c:v")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "copy", p.Args[idx+1])

	idx = indexOf(p.Args, "-c:a")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "copy", p.Args[idx+1])
}

func TestBuild_CodecTranscode_WhenFamilyMismatch(t *testing.T) {
	in := probedInput()
	in.Probe.VideoCodec = "mpeg2video"
	in.Probe.AudioCodec = "mp3"
	p, err := Build(in)
	require.NoError(t, err)

	idx := indexOf(p.Args, "-c:v")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "libx264", p.Args[idx+1])

	idx = indexOf(p.Args, "-c:a")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "aac", p.Args[idx+1])
}

func TestBuild_HLSOutput_WritesPlaylistPath(t *testing.T) {
	in := probedInput()
	in.Output = OutputHLS
	in.SegmentDir = "/tmp/seg"
	p, err := Build(in)
	require.NoError(t, err)
	assert.Contains(t, p.Args, "/tmp/seg/index.m3u8")
	assert.Contains(t, p.Args, "hls")
}

func TestBuild_DashOutput_WritesManifestPath(t *testing.T) {
	in := probedInput()
	in.Output = OutputDASH
	in.SegmentDir = "/tmp/seg"
	p, err := Build(in)
	require.NoError(t, err)
	assert.Contains(t, p.Args, "/tmp/seg/manifest.mpd")
}

func TestBuild_MPEGTSOutput_WritesToStdout(t *testing.T) {
	in := probedInput()
	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, "-", p.Args[len(p.Args)-1])
}

func TestBuild_GlobalFlagsComeFirst(t *testing.T) {
	in := probedInput()
	p, err := Build(in)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(p.Args), 4)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-y"}, p.Args[:4])
}

func TestFitWithinPreservingAspect_EvenDimensions(t *testing.T) {
	w, h := fitWithinPreservingAspect(1920, 1080, 1, 1, 1280, 720)
	assert.Equal(t, 0, w%2)
	assert.Equal(t, 0, h%2)
}

func TestNormalizeVideoCodec_SameFamilyNoTranscode(t *testing.T) {
	assert.False(t, normalizeVideoCodec("h264", "h264"))
	assert.False(t, normalizeVideoCodec("hevc", "h265"))
}

func TestNormalizeVideoCodec_DifferentFamilyTranscode(t *testing.T) {
	assert.True(t, normalizeVideoCodec("mpeg2video", "h264"))
}

func TestNormalizeAudioCodec_AliasFamilies(t *testing.T) {
	assert.False(t, normalizeAudioCodec("libmp3lame", "mp3"))
	assert.True(t, normalizeAudioCodec("flac", "aac"))
}

func TestBuild_StartMs_EmitsSeekBeforeInput(t *testing.T) {
	in := probedInput()
	in.Item.StartMs = 90500

	p, err := Build(in)
	require.NoError(t, err)

	ssIdx := indexOf(p.Args, "-ss")
	require.GreaterOrEqual(t, ssIdx, 0)
	assert.Equal(t, "90.500", p.Args[ssIdx+1])

	iIdx := indexOf(p.Args, "-i")
	require.GreaterOrEqual(t, iIdx, 0)
	assert.Less(t, ssIdx, iIdx, "-ss must precede -i for input seeking")

	tIdx := indexOf(p.Args, "-t")
	require.GreaterOrEqual(t, tIdx, 0)
	assert.Equal(t, "120.000", p.Args[tIdx+1], "StreamDurationMs still bounds -t independently of StartMs")
}

func TestBuild_ZeroStartMs_NoSeekFlag(t *testing.T) {
	in := probedInput()
	in.Item.StartMs = 0

	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, -1, indexOf(p.Args, "-ss"))
}

func TestBuild_StartMs_IgnoredForSyntheticSource(t *testing.T) {
	in := syntheticInput(ScreenText)
	in.Item.StartMs = 5000

	p, err := Build(in)
	require.NoError(t, err)
	assert.Equal(t, -1, indexOf(p.Args, "-ss"), "a seek offset is meaningless against a synthesized source")
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}

func TestBuild_AudioOnly_DropsVideo(t *testing.T) {
	in := probedInput()
	in.AudioOnly = true
	p, err := Build(in)
	require.NoError(t, err)

	assert.Contains(t, p.Args, "-vn")
	assert.Equal(t, -1, indexOf(p.Args, "0:v"))
	assert.NotContains(t, p.Args, "-c:v")

	if i := indexOf(p.Args, "-filter_complex"); i >= 0 {
		assert.False(t, strings.Contains(p.Args[i+1], "[v"), "audio-only plan must not build a video filter chain")
	}
}

func TestBuild_AudioOnly_SyntheticSource(t *testing.T) {
	in := syntheticInput(ScreenText)
	in.AudioOnly = true
	p, err := Build(in)
	require.NoError(t, err)

	assert.Contains(t, p.Args, "-vn")
	assertFilterComplexWellFormed(t, p.Args)
}

func TestBuild_SampleRateMismatch_ForcesFilterGraphNotCodec(t *testing.T) {
	in := probedInput()
	in.Probe.SampleRate = 48000
	in.TargetAudioSampleRate = 44100

	p, err := Build(in)
	require.NoError(t, err)

	assert.True(t, p.NeedsAudioFilterGraph)
	assert.False(t, p.NeedsAudioTranscode, "codec families still match, only the sample rate differs")

	idx := indexOf(p.Args, "-c:a")
	require.GreaterOrEqual(t, idx, 0)
	assert.NotEqual(t, "copy", p.Args[idx+1], "a forced resample can't ride on -c:a copy")

	fcIdx := indexOf(p.Args, "-filter_complex")
	require.GreaterOrEqual(t, fcIdx, 0)
	assert.Contains(t, p.Args[fcIdx+1], "aformat=sample_rates=44100")
}

func TestBuild_ChannelsMismatch_ForcesFilterGraph(t *testing.T) {
	in := probedInput()
	in.Probe.Channels = 6
	in.TargetAudioChannels = 2

	p, err := Build(in)
	require.NoError(t, err)

	assert.True(t, p.NeedsAudioFilterGraph)
	fcIdx := indexOf(p.Args, "-filter_complex")
	require.GreaterOrEqual(t, fcIdx, 0)
	assert.Contains(t, p.Args[fcIdx+1], "aformat=channel_layouts=stereo")
}

func TestBuild_SampleRateMatches_NoFilterGraph(t *testing.T) {
	in := probedInput()
	in.Probe.SampleRate = 48000
	in.TargetAudioSampleRate = 48000

	p, err := Build(in)
	require.NoError(t, err)
	assert.False(t, p.NeedsAudioFilterGraph)

	idx := indexOf(p.Args, "-c:a")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "copy", p.Args[idx+1])
}

func TestBuild_CodecMismatchAlone_DoesNotForceFilterGraph(t *testing.T) {
	in := probedInput()
	in.Probe.AudioCodec = "mp3"

	p, err := Build(in)
	require.NoError(t, err)
	assert.True(t, p.NeedsAudioTranscode)
	assert.False(t, p.NeedsAudioFilterGraph, "codec mismatch alone is not a channel/sample-rate trigger")
}

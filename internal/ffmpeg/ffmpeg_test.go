package ffmpeg

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not installed.
func skipIfNoFFmpeg(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	return path
}

// skipIfNoFFprobe skips the test if ffprobe is not installed.
func skipIfNoFFprobe(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}
	return path
}

func TestBinaryDetector_Detect(t *testing.T) {
	skipIfNoFFmpeg(t)
	skipIfNoFFprobe(t)

	ctx := context.Background()
	detector := NewBinaryDetector()

	info, err := detector.Detect(ctx)
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.NotEmpty(t, info.FFmpegPath)
	assert.NotEmpty(t, info.FFprobePath)
	assert.NotEmpty(t, info.Version)
	assert.Greater(t, info.MajorVersion, 0)
}

func TestBinaryDetector_Caching(t *testing.T) {
	skipIfNoFFmpeg(t)
	skipIfNoFFprobe(t)

	ctx := context.Background()
	detector := NewBinaryDetector().WithCacheTTL(1 * time.Hour)

	info1, err := detector.Detect(ctx)
	require.NoError(t, err)

	info2, err := detector.Detect(ctx)
	require.NoError(t, err)

	assert.Equal(t, info1.FFmpegPath, info2.FFmpegPath)
	assert.Equal(t, info1.Version, info2.Version)
}

func TestBinaryDetector_Clear(t *testing.T) {
	skipIfNoFFmpeg(t)
	skipIfNoFFprobe(t)

	ctx := context.Background()
	detector := NewBinaryDetector()

	_, err := detector.Detect(ctx)
	require.NoError(t, err)

	detector.Clear()

	assert.Nil(t, detector.info)
}

func TestBinaryInfo_HasEncoder(t *testing.T) {
	info := &BinaryInfo{
		Encoders: []string{"libx264", "libx265", "aac", "libmp3lame"},
	}

	assert.True(t, info.HasEncoder("libx264"))
	assert.True(t, info.HasEncoder("aac"))
	assert.False(t, info.HasEncoder("h264_nvenc"))
}

func TestBinaryInfo_HasDecoder(t *testing.T) {
	info := &BinaryInfo{
		Decoders: []string{"h264", "hevc", "aac", "mp3"},
	}

	assert.True(t, info.HasDecoder("h264"))
	assert.True(t, info.HasDecoder("aac"))
	assert.False(t, info.HasDecoder("vp9"))
}

func TestBinaryInfo_HasFormat(t *testing.T) {
	info := &BinaryInfo{
		Formats: []FormatInfo{
			{Name: "mpegts", CanMux: true, CanDemux: true},
			{Name: "hls", CanMux: true, CanDemux: true},
			{Name: "rawvideo", CanMux: false, CanDemux: true},
		},
	}

	assert.True(t, info.HasFormat("mpegts"))
	assert.True(t, info.HasFormat("hls"))
	assert.False(t, info.HasFormat("rawvideo"))
	assert.False(t, info.HasFormat("nonexistent"))
}

func TestBinaryInfo_SupportsMinVersion(t *testing.T) {
	info := &BinaryInfo{
		MajorVersion: 6,
		MinorVersion: 1,
	}

	assert.True(t, info.SupportsMinVersion(5, 0))
	assert.True(t, info.SupportsMinVersion(6, 0))
	assert.True(t, info.SupportsMinVersion(6, 1))
	assert.False(t, info.SupportsMinVersion(6, 2))
	assert.False(t, info.SupportsMinVersion(7, 0))
}

func TestBinaryInfo_JSON(t *testing.T) {
	info := &BinaryInfo{
		FFmpegPath:   "/usr/bin/ffmpeg",
		FFprobePath:  "/usr/bin/ffprobe",
		Version:      "6.0",
		MajorVersion: 6,
		MinorVersion: 0,
	}

	jsonStr := info.JSON()
	assert.Contains(t, jsonStr, "ffmpeg_path")
	assert.Contains(t, jsonStr, "/usr/bin/ffmpeg")
}

func TestBinaryInfo_HasHWAccel(t *testing.T) {
	info := &BinaryInfo{
		HWAccels: []HWAccelInfo{
			{Type: HWAccelType("vaapi"), Available: true},
			{Type: HWAccelType("cuda"), Available: false},
		},
	}

	assert.True(t, info.HasHWAccel(HWAccelType("vaapi")))
	assert.False(t, info.HasHWAccel(HWAccelType("cuda")))
	assert.False(t, info.HasHWAccel(HWAccelType("qsv")))
}

func TestBinaryInfo_GetAvailableHWAccels(t *testing.T) {
	info := &BinaryInfo{
		HWAccels: []HWAccelInfo{
			{Type: HWAccelType("vaapi"), Available: true},
			{Type: HWAccelType("cuda"), Available: false},
			{Type: HWAccelType("qsv"), Available: true},
		},
	}

	available := info.GetAvailableHWAccels()
	assert.Len(t, available, 2)
}

func TestParseSAR(t *testing.T) {
	tests := []struct {
		in      string
		wantN   int
		wantD   int
		wantOK  bool
	}{
		{"1:1", 1, 1, true},
		{"4:3", 4, 3, true},
		{"0:1", 1, 1, false},
		{"", 1, 1, false},
		{"bad", 1, 1, false},
	}

	for _, tt := range tests {
		n, d, ok := parseSAR(tt.in)
		assert.Equal(t, tt.wantN, n, tt.in)
		assert.Equal(t, tt.wantD, d, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestParseFramerate(t *testing.T) {
	assert.Equal(t, 25.0, parseFramerate("25/1"))
	assert.Equal(t, 29.97, parseFramerate("2997/100"))
	assert.Equal(t, 0.0, parseFramerate("0/0"))
	assert.Equal(t, 0.0, parseFramerate(""))
	assert.Equal(t, 30.0, parseFramerate("30"))
}

func TestSummarize_PicksFirstVideoAndAudioTrack(t *testing.T) {
	r := &probeResult{
		Format: probeFormat{Duration: "120.5"},
		Streams: []probeStream{
			{CodecType: "video", CodecName: "h264", Width: 1920, Height: 1080, SampleAspectRatio: "1:1", AvgFrameRate: "25/1"},
			{CodecType: "video", CodecName: "h264", Width: 640, Height: 480},
			{CodecType: "audio", CodecName: "aac"},
			{CodecType: "audio", CodecName: "mp3"},
		},
	}

	info := summarize(r)
	require.True(t, info.HasVideo)
	assert.Equal(t, "h264", info.VideoCodec)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.Equal(t, 25.0, info.FPS)
	require.True(t, info.HasAudio)
	assert.Equal(t, "aac", info.AudioCodec)
	assert.Equal(t, int64(120500), info.DurationMs)
}

func TestSummarize_AudioOnly(t *testing.T) {
	r := &probeResult{
		Streams: []probeStream{
			{CodecType: "audio", CodecName: "mp3"},
		},
	}

	info := summarize(r)
	assert.False(t, info.HasVideo)
	assert.True(t, info.HasAudio)
	assert.Equal(t, "mp3", info.AudioCodec)
}

func TestIntegration_Prober_Probe(t *testing.T) {
	ffprobePath := skipIfNoFFprobe(t)
	skipIfNoFFmpeg(t)

	prober := NewProber(ffprobePath)
	_, err := prober.Probe(context.Background(), "does-not-exist.mkv")
	assert.Error(t, err)
}

func TestValidateCustomFlags_BlocksDangerousPatterns(t *testing.T) {
	result := ValidateCustomFlags("-b:v 2M; rm -rf /")
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)
}

func TestValidateCustomFlags_BlocksControlledFlags(t *testing.T) {
	result := ValidateCustomFlags("-c:v libx264 -preset fast")
	assert.False(t, result.Valid)
	assert.Contains(t, result.Flags, "-c:v")
}

func TestValidateCustomFlags_AllowsBenignFlags(t *testing.T) {
	result := ValidateCustomFlags("-preset fast -crf 23")
	assert.True(t, result.Valid)
	assert.Contains(t, result.Flags, "-preset")
	assert.Contains(t, result.Flags, "-crf")
}

func TestValidateCustomFlags_WarnsOnThreads(t *testing.T) {
	result := ValidateCustomFlags("-threads 4")
	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidateCustomFlags_Empty(t *testing.T) {
	result := ValidateCustomFlags("")
	assert.True(t, result.Valid)
	assert.Empty(t, result.Flags)
}

func TestCheckQuoteBalance(t *testing.T) {
	assert.Empty(t, checkQuoteBalance(`-metadata title="ok"`))
	assert.NotEmpty(t, checkQuoteBalance(`-metadata title="unterminated`))
	assert.NotEmpty(t, checkQuoteBalance(`-metadata title='broken`))
}

func TestParseFlags_RespectsQuotes(t *testing.T) {
	flags := parseFlags(`-metadata title="hello world" -preset fast`)
	assert.Equal(t, []string{"-metadata", `title="hello world"`, "-preset", "fast"}, flags)
}

func TestParseCustomArgs(t *testing.T) {
	assert.Equal(t, []string{"-preset", "fast"}, ParseCustomArgs("-preset fast"))
	assert.Nil(t, ParseCustomArgs(""))
}

func TestContainsDangerousPipe(t *testing.T) {
	assert.True(t, containsDangerousPipe("foo | bar"))
	assert.False(t, containsDangerousPipe("foo || bar"))
	assert.False(t, containsDangerousPipe("-preset fast"))
}

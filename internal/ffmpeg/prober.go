package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// probeFormat mirrors the "format" object of ffprobe's JSON output.
type probeFormat struct {
	Duration string `json:"duration"`
}

// probeStream mirrors one entry of ffprobe's "streams" array, trimmed to
// the fields a primary video/audio track selection needs.
type probeStream struct {
	CodecType         string `json:"codec_type"`
	CodecName         string `json:"codec_name"`
	Width             int    `json:"width,omitempty"`
	Height            int    `json:"height,omitempty"`
	SampleAspectRatio string `json:"sample_aspect_ratio,omitempty"`
	RFrameRate        string `json:"r_frame_rate,omitempty"`
	AvgFrameRate      string `json:"avg_frame_rate,omitempty"`
	FieldOrder        string `json:"field_order,omitempty"`
	SampleRate        string `json:"sample_rate,omitempty"`
	Channels          int    `json:"channels,omitempty"`
}

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

// SourceInfo is the primary video/audio track summary a source probe
// produces, shaped for encoderplan.ProbeStats consumption.
type SourceInfo struct {
	HasVideo   bool
	Width      int
	Height     int
	SARNum     int
	SARDen     int
	FPS        float64
	Interlaced bool
	VideoCodec string

	HasAudio   bool
	AudioCodec string
	SampleRate int
	Channels   int

	DurationMs int64
}

// Prober runs ffprobe against a source URL and summarizes its primary
// video and audio tracks.
type Prober struct {
	ffprobePath string
	timeout     time.Duration
}

// NewProber returns a Prober that invokes the ffprobe binary at path.
func NewProber(ffprobePath string) *Prober {
	return &Prober{ffprobePath: ffprobePath, timeout: 10 * time.Second}
}

// WithTimeout overrides the default probe timeout.
func (p *Prober) WithTimeout(d time.Duration) *Prober {
	p.timeout = d
	return p
}

// Probe runs ffprobe against url and returns its primary track summary.
// A source that fails to probe (unreachable, unsupported) returns an
// error rather than a zero-value SourceInfo, since the caller needs to
// tell "probed and found nothing" apart from "couldn't probe."
func (p *Prober) Probe(ctx context.Context, url string) (*SourceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
	}
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, p.ffprobePath, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("running ffprobe: %w", err)
	}

	var r probeResult
	if err := json.Unmarshal(out, &r); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	return summarize(&r), nil
}

func summarize(r *probeResult) *SourceInfo {
	info := &SourceInfo{SARNum: 1, SARDen: 1}

	if d, err := strconv.ParseFloat(r.Format.Duration, 64); err == nil && d > 0 {
		info.DurationMs = int64(d * 1000)
	}

	for _, s := range r.Streams {
		switch s.CodecType {
		case "video":
			if info.HasVideo {
				continue
			}
			info.HasVideo = true
			info.VideoCodec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			if n, d, ok := parseSAR(s.SampleAspectRatio); ok {
				info.SARNum, info.SARDen = n, d
			}
			info.FPS = parseFramerate(s.AvgFrameRate)
			if info.FPS == 0 {
				info.FPS = parseFramerate(s.RFrameRate)
			}
			info.Interlaced = s.FieldOrder != "" && s.FieldOrder != "progressive"
		case "audio":
			if info.HasAudio {
				continue
			}
			info.HasAudio = true
			info.AudioCodec = s.CodecName
			if rate, err := strconv.Atoi(s.SampleRate); err == nil {
				info.SampleRate = rate
			}
			info.Channels = s.Channels
		}
	}

	return info
}

// parseSAR parses a "N:D" sample aspect ratio string.
func parseSAR(s string) (num, den int, ok bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 1, 1, false
	}
	n, err1 := strconv.Atoi(parts[0])
	d, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 1, 1, false
	}
	return n, d, true
}

// parseFramerate parses a "N/D" rational framerate or a plain decimal.
func parseFramerate(fr string) float64 {
	if fr == "" || fr == "0/0" {
		return 0
	}
	if parts := strings.SplitN(fr, "/", 2); len(parts) == 2 {
		n, err1 := strconv.ParseFloat(parts[0], 64)
		d, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}
	v, err := strconv.ParseFloat(fr, 64)
	if err != nil {
		return 0
	}
	return v
}

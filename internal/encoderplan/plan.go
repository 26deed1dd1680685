// Package encoderplan turns a resolved lineup item, its owning channel,
// process-wide encoder tuning, and a source probe into the flat
// argument list the external encoder process is spawned with. Build is
// a pure function: identical inputs must produce byte-identical
// arglists.
package encoderplan

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lanestream/broadcastcore/internal/codec"
	"github.com/lanestream/broadcastcore/internal/ffmpeg"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

// ScreenMode selects how a synthetic video source is generated when
// there is no real input to play — an offline gap with no eligible
// filler, or an error standing in for a failed upstream.
type ScreenMode string

const (
	ScreenPic     ScreenMode = "pic"
	ScreenStatic  ScreenMode = "static"
	ScreenTestsrc ScreenMode = "testsrc"
	ScreenText    ScreenMode = "text"
	ScreenKill    ScreenMode = "kill"
)

// AudioSynthMode selects the synthetic audio track paired with a
// synthetic video source.
type AudioSynthMode string

const (
	AudioSynthSoundtrack AudioSynthMode = "soundtrack"
	AudioSynthSine       AudioSynthMode = "sine"
	AudioSynthWhitenoise AudioSynthMode = "whitenoise"
	AudioSynthSilence    AudioSynthMode = "silence"
)

// OutputTarget selects the output muxer.
type OutputTarget string

const (
	OutputMPEGTS OutputTarget = "mpegts"
	OutputHLS    OutputTarget = "hls"
	OutputDASH   OutputTarget = "dash"
)

// stillimageEncoders is the set of video encoders that accept ffmpeg's
// -tune stillimage option, per spec §4.6's pic-mode rule.
var stillimageEncoders = map[string]bool{
	"mpeg2video": true,
	"libx264":    true,
	"h264_videotoolbox": true,
}

// ProbeStats is the subset of a source probe EncoderPlanBuilder reasons
// about: dimensions, pixel aspect ratio, frame rate, interlace state,
// and the codecs actually found on the stream.
type ProbeStats struct {
	HasVideo bool
	Width    int
	Height   int
	// SARNum/SARDen is the sample (pixel) aspect ratio; 1/1 for square pixels.
	SARNum int
	SARDen int
	FPS    float64
	Scan   store.ScanType
	VideoCodec string

	HasAudio   bool
	AudioCodec string
	// SampleRate and Channels are 0 when ffprobe didn't report them
	// (synthetic or unprobed sources); 0 never triggers a filter graph.
	SampleRate int
	Channels   int
}

// Input bundles everything Build needs to construct one encoder plan.
type Input struct {
	Item     *models.StreamLineupItem
	Channel  *models.Channel
	Settings *store.FFmpegSettings
	// Probe is nil when Item has no real media source to read from
	// (an offline/error screen is being synthesized instead).
	Probe *ProbeStats
	// Watermark is nil when no overlay should be burned in.
	Watermark *models.Watermark

	TargetWidth  int
	TargetHeight int

	// ScreenMode governs synthetic video when Probe is nil.
	ScreenMode ScreenMode
	ScreenText string

	AudioMode      AudioSynthMode
	SoundtrackPath string

	VolumePercent int // 100 = unchanged; ignored if 0
	Apad          bool
	ApadWholeMs   int64

	TargetVideoCodec string // configured target, e.g. "h264"
	TargetAudioCodec string // configured target, e.g. "aac"
	VideoEncoder     string // ffmpeg encoder name for TargetVideoCodec+hwaccel
	AudioEncoder     string // ffmpeg encoder name for TargetAudioCodec

	// TargetAudioSampleRate and TargetAudioChannels are an independent
	// transcode trigger from codec selection: a mismatch against Probe
	// forces an audio filter graph (and a real encoder, never "copy")
	// even when the codec families already match. 0 means "don't care."
	TargetAudioSampleRate int
	TargetAudioChannels   int

	Output    OutputTarget
	SegmentDir string

	// AudioOnly drops the video stream entirely, for the /radio and
	// /stream?audioOnly=1 surfaces.
	AudioOnly bool

	// CustomArgs are extra output flags from the channel's transcoding
	// overrides, already validated and tokenized. Appended just before
	// the MPEG-TS stdout sink, after codec selection; HLS and DASH
	// output do not include them.
	CustomArgs []string
}

// Plan is the flat argument list Build produces, ready to hand to
// exec.Command alongside Settings.BinaryPath. NeedsAudioFilterGraph and
// NeedsAudioTranscode are recorded as two independent triggers per
// spec's "audioComplex vs transcodeAudio" open question: a channel/
// sample-rate mismatch forces the filter graph without forcing a codec
// change, and either one alone is enough to rule out "-c:a copy".
type Plan struct {
	Args                  []string
	NeedsAudioFilterGraph bool
	NeedsAudioTranscode   bool
}

// filterGraph assembles a chain of named pads, each filter appending
// ";[prev]filter[next]" and advancing the cursor — the shape spec §4.6
// describes for filter_complex construction.
type filterGraph struct {
	steps        []string
	currentVideo string
	currentAudio string
	padCounter   int
}

func (g *filterGraph) nextPad(prefix string) string {
	g.padCounter++
	return fmt.Sprintf("%s%d", prefix, g.padCounter)
}

func (g *filterGraph) appendVideo(filter string) {
	out := g.nextPad("v")
	if g.currentVideo == "" {
		g.steps = append(g.steps, fmt.Sprintf("%s[%s]", filter, out))
	} else {
		g.steps = append(g.steps, fmt.Sprintf("[%s]%s[%s]", g.currentVideo, filter, out))
	}
	g.currentVideo = out
}

func (g *filterGraph) appendAudio(filter string) {
	out := g.nextPad("a")
	if g.currentAudio == "" {
		g.steps = append(g.steps, fmt.Sprintf("%s[%s]", filter, out))
	} else {
		g.steps = append(g.steps, fmt.Sprintf("[%s]%s[%s]", g.currentAudio, filter, out))
	}
	g.currentAudio = out
}

// complex renders the accumulated steps as a single -filter_complex
// value, each step separated by ';'. Never begins with ';' since the
// first step never has a leading "[prev]" reference of its own.
func (g *filterGraph) complex() string {
	return strings.Join(g.steps, ";")
}

// Build constructs the canonical global -> input -> filter_complex ->
// output mapping -> output muxer argument list for in.
func Build(in Input) (*Plan, error) {
	if in.Probe == nil && in.ScreenMode == ScreenKill {
		return nil, models.NewStreamError(models.KindEncoderMissing, "kill screen mode: encoder must not be spawned")
	}

	var args []string
	args = append(args, "-hide_banner", "-loglevel", "error", "-y")

	args = appendInputArgs(args, in)

	graph := &filterGraph{}
	if !in.AudioOnly {
		buildVideoChain(graph, in)
	}
	buildAudioChain(graph, in)

	if len(graph.steps) > 0 {
		args = append(args, "-filter_complex", graph.complex())
		if graph.currentVideo != "" {
			args = append(args, "-map", "["+graph.currentVideo+"]")
		}
		if graph.currentAudio != "" {
			args = append(args, "-map", "["+graph.currentAudio+"]")
		}
	} else if in.Probe != nil {
		if in.AudioOnly {
			args = append(args, "-map", "0:a?")
		} else {
			args = append(args, "-map", "0:v", "-map", "0:a?")
		}
	}

	args = appendCodecArgs(args, in)
	args = appendOutputArgs(args, in)

	return &Plan{
		Args:                  args,
		NeedsAudioFilterGraph: needsAudioFilterGraph(in),
		NeedsAudioTranscode:   audioNeedsTranscode(in),
	}, nil
}

func appendInputArgs(args []string, in Input) []string {
	if in.Probe != nil {
		if in.Item.StartMs > 0 {
			args = append(args, "-ss", msToSeconds(in.Item.StartMs))
		}
		args = append(args, "-i", in.Item.SourceURL)
		if in.AudioMode == AudioSynthSoundtrack && in.SoundtrackPath != "" {
			args = append(args, "-stream_loop", "-1", "-i", in.SoundtrackPath)
		}
		return args
	}

	w, h := in.TargetWidth, in.TargetHeight
	switch in.ScreenMode {
	case ScreenTestsrc:
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("testsrc=size=%dx%d", w, h))
	default:
		// pic, static, and text modes all synthesize a blank/looping
		// canvas as their base video input; the filter chain shapes it.
		args = append(args, "-f", "lavfi", "-i", fmt.Sprintf("color=c=black:s=%dx%d", w, h))
	}

	switch in.AudioMode {
	case AudioSynthSoundtrack:
		if in.SoundtrackPath != "" {
			args = append(args, "-stream_loop", "-1", "-i", in.SoundtrackPath)
		}
	}

	return args
}

func buildVideoChain(g *filterGraph, in Input) {
	if in.Probe != nil {
		applyProbedVideoRules(g, in)
		return
	}

	switch in.ScreenMode {
	case ScreenPic:
		g.appendVideo("format=yuv420p")
		g.appendVideo(scaleFilter(in.TargetWidth, in.TargetHeight))
		g.appendVideo(padFilter(in.TargetWidth, in.TargetHeight))
		g.appendVideo("loop=loop=-1:size=1:start=0")
	case ScreenStatic:
		g.appendVideo("geq=random(1)*255:128:128")
		g.appendVideo(scaleFilter(in.TargetWidth, in.TargetHeight))
	case ScreenTestsrc:
		// testsrc is produced directly by the input; no filter needed
		// beyond whatever downstream steps (watermark, volume) apply.
	case ScreenText:
		titleSize := int(math.Ceil(float64(in.TargetHeight) / 22))
		subtitleSize := int(math.Ceil(float64(in.TargetHeight) / 33))
		title := in.ScreenText
		g.appendVideo(fmt.Sprintf("drawtext=text='%s':fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2-%d:fontcolor=white",
			escapeDrawtext(title), titleSize, subtitleSize))
		g.appendVideo(fmt.Sprintf("drawtext=text='%s':fontsize=%d:x=(w-text_w)/2:y=(h-text_h)/2+%d:fontcolor=gray",
			escapeDrawtext(in.Item.Title), subtitleSize, titleSize))
	}

	if in.ScreenMode != ScreenKill {
		g.appendVideo("realtime")
	}

	applyWatermark(g, in)
}

func applyProbedVideoRules(g *filterGraph, in Input) {
	probe := in.Probe

	if probe.FPS > in.Settings.MaxFPS+0.001 {
		g.appendVideo(fmt.Sprintf("fps=%s", trimFloat(in.Settings.MaxFPS)))
	}

	if probe.Scan == store.ScanInterlaced && in.Settings.DeinterlaceFilter != store.DeinterlaceNone {
		g.appendVideo(string(in.Settings.DeinterlaceFilter))
	}

	if needsResolutionNormalization(in) {
		cw, ch := fitWithinPreservingAspect(probe.Width, probe.Height, probe.SARNum, probe.SARDen, in.TargetWidth, in.TargetHeight)
		g.appendVideo(scaleFilter(cw, ch))
		g.appendVideo(padFilter(in.TargetWidth, in.TargetHeight))
		g.appendVideo("setsar=1")
	} else if (probe.Width%2 != 0 || probe.Height%2 != 0) && videoNeedsTranscode(in) {
		evenW, evenH := probe.Width+probe.Width%2, probe.Height+probe.Height%2
		g.appendVideo(padFilter(evenW, evenH))
	}

	applyWatermark(g, in)
}

// needsResolutionNormalization decides whether the scale+pad+setsar
// chain runs at all: skipped when neither dimension normalisation nor
// codec transcoding is required and the source already fits.
func needsResolutionNormalization(in Input) bool {
	if videoNeedsTranscode(in) {
		return true
	}
	if in.TargetWidth <= 0 || in.TargetHeight <= 0 {
		return false
	}
	return in.Probe.Width != in.TargetWidth || in.Probe.Height != in.TargetHeight
}

func videoNeedsTranscode(in Input) bool {
	if in.Probe == nil {
		return true
	}
	return normalizeVideoCodec(in.Probe.VideoCodec, in.TargetVideoCodec)
}

func audioNeedsTranscode(in Input) bool {
	if in.Probe == nil {
		return true
	}
	return normalizeAudioCodec(in.Probe.AudioCodec, in.TargetAudioCodec)
}

// needsAudioFilterGraph is audioNeedsTranscode's independent counterpart:
// a configured target sample rate or channel count that doesn't match
// what was probed forces a resample/remix filter graph regardless of
// whether the codec families already match. Never fires against a nil
// probe or an unprobed (0) rate/channel count on either side.
func needsAudioFilterGraph(in Input) bool {
	if in.Probe == nil || !in.Probe.HasAudio {
		return false
	}
	if in.TargetAudioSampleRate > 0 && in.Probe.SampleRate > 0 && in.Probe.SampleRate != in.TargetAudioSampleRate {
		return true
	}
	if in.TargetAudioChannels > 0 && in.Probe.Channels > 0 && in.Probe.Channels != in.TargetAudioChannels {
		return true
	}
	return false
}

// normalizeVideoCodec reports whether a transcode is required: the
// probed codec's family doesn't match the configured target's, by the
// substring rules spec §4.6 names (h264<->"264", hevc<->"265"/"hevc",
// mpeg2<->"mpeg2"). Unknown pairings default to requiring a transcode.
func normalizeVideoCodec(probed, target string) bool {
	probed, target = strings.ToLower(probed), strings.ToLower(target)
	if probed == "" || target == "" {
		return true
	}
	families := []struct {
		needles []string
	}{
		{[]string{"264"}},
		{[]string{"265", "hevc"}},
		{[]string{"mpeg2"}},
	}
	for _, f := range families {
		probedIn := containsAny(probed, f.needles)
		targetIn := containsAny(target, f.needles)
		if probedIn || targetIn {
			return !(probedIn && targetIn)
		}
	}
	return !codec.VideoMatch(probed, target)
}

// normalizeAudioCodec is normalizeVideoCodec's audio counterpart, per
// spec §4.6's mp3<->"mp3"/"lame", aac<->"aac", ac3<->"ac3",
// flac<->"flac" rules.
func normalizeAudioCodec(probed, target string) bool {
	probed, target = strings.ToLower(probed), strings.ToLower(target)
	if probed == "" || target == "" {
		return true
	}
	families := []struct {
		needles []string
	}{
		{[]string{"mp3", "lame"}},
		{[]string{"aac"}},
		{[]string{"ac3"}},
		{[]string{"flac"}},
	}
	for _, f := range families {
		probedIn := containsAny(probed, f.needles)
		targetIn := containsAny(target, f.needles)
		if probedIn || targetIn {
			return !(probedIn && targetIn)
		}
	}
	return !codec.AudioMatch(probed, target)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func buildAudioChain(g *filterGraph, in Input) {
	if in.Probe != nil {
		if in.Probe.HasAudio {
			applyVolumeOnlyAudio(g, in)
			return
		}
		// Video source with no audio track falls through to the same
		// synthetic-audio rules a fully synthetic screen would use.
	}

	switch in.AudioMode {
	case AudioSynthSoundtrack:
		g.appendAudio("aloop=-1:size=2147483647")
	case AudioSynthSine:
		g.appendAudio(fmt.Sprintf("sine=f=440:duration=%s", msToSeconds(in.Item.StreamDurationMs)))
		clampVolume(g, in, 70)
	case AudioSynthWhitenoise:
		g.appendAudio(fmt.Sprintf("aevalsrc=random(0):duration=%s", msToSeconds(in.Item.StreamDurationMs)))
		clampVolume(g, in, 70)
	default:
		g.appendAudio(fmt.Sprintf("aevalsrc=0:duration=%s", msToSeconds(in.Item.StreamDurationMs)))
	}
}

func applyVolumeOnlyAudio(g *filterGraph, in Input) {
	if in.VolumePercent != 0 && in.VolumePercent != 100 {
		g.appendAudio(fmt.Sprintf("volume=%.2f", float64(in.VolumePercent)/100))
	}
	if needsAudioFilterGraph(in) {
		g.appendAudio(audioFormatFilter(in))
	}
	if in.Apad {
		g.appendAudio(fmt.Sprintf("apad=whole_dur=%dms", in.ApadWholeMs))
	}
}

// audioFormatFilter builds the aformat filter needsAudioFilterGraph's
// resample/remix forces, omitting whichever of rate/channels the target
// didn't actually constrain.
func audioFormatFilter(in Input) string {
	var parts []string
	if in.TargetAudioSampleRate > 0 {
		parts = append(parts, fmt.Sprintf("sample_rates=%d", in.TargetAudioSampleRate))
	}
	if in.TargetAudioChannels > 0 {
		parts = append(parts, fmt.Sprintf("channel_layouts=%s", channelLayoutName(in.TargetAudioChannels)))
	}
	return "aformat=" + strings.Join(parts, ":")
}

// channelLayoutName maps a channel count onto the ffmpeg layout names
// aformat accepts; uncommon counts fall back to ffmpeg's own "<n>c" form.
func channelLayoutName(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%dc", channels)
	}
}

func clampVolume(g *filterGraph, in Input, maxPercent int) {
	vp := in.VolumePercent
	if vp <= 0 || vp > maxPercent {
		vp = maxPercent
	}
	g.appendAudio(fmt.Sprintf("volume=%.2f", float64(vp)/100))
}

func applyWatermark(g *filterGraph, in Input) {
	if in.Watermark == nil || !in.Watermark.Enabled {
		return
	}
	w := in.Watermark

	scaleArg := ""
	if !w.FixedSize {
		scaleArg = fmt.Sprintf("scale=w=%d:h=-1", int(float64(in.TargetWidth)*w.WidthPercent/100))
	}
	if scaleArg != "" {
		g.appendVideo(scaleArg)
	}

	x, y := watermarkPosition(w, in.TargetWidth, in.TargetHeight)
	overlay := fmt.Sprintf("overlay=shortest=1:x=%d:y=%d", x, y)
	if w.DurationSeconds > 0 {
		overlay += fmt.Sprintf(":enable='between(t,0,%d)'", w.DurationSeconds)
	}
	g.appendVideo(overlay)
}

func watermarkPosition(w *models.Watermark, frameW, frameH int) (int, int) {
	marginX := int(float64(frameW) * w.HorizontalMarginPercent / 100)
	marginY := int(float64(frameH) * w.VerticalMarginPercent / 100)

	switch w.Position {
	case models.WatermarkTopLeft:
		return marginX, marginY
	case models.WatermarkBottomLeft:
		return marginX, frameH - marginY
	case models.WatermarkBottomRight:
		return frameW - marginX, frameH - marginY
	default: // top-right
		return frameW - marginX, marginY
	}
}

func scaleFilter(w, h int) string {
	return fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=1", w, h)
}

func padFilter(w, h int) string {
	return fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h)
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}

func msToSeconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 3, 64)
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// fitWithinPreservingAspect scales a source's pixel-aspect-corrected
// dimensions to fit within (wantedW, wantedH) while preserving aspect,
// per spec §4.6: p = iW*SARNum, q = iH*SARDen, reduced by gcd, then
// scaled to fit the target box.
func fitWithinPreservingAspect(iw, ih, sarNum, sarDen, wantedW, wantedH int) (int, int) {
	if sarNum <= 0 {
		sarNum = 1
	}
	if sarDen <= 0 {
		sarDen = 1
	}
	p := iw * sarNum
	q := ih * sarDen
	if g := gcd(p, q); g > 0 {
		p /= g
		q /= g
	}
	if p == 0 || q == 0 {
		return wantedW, wantedH
	}

	scale := math.Min(float64(wantedW)/float64(p), float64(wantedH)/float64(q))
	cw := int(math.Round(float64(p) * scale))
	ch := int(math.Round(float64(q) * scale))
	if cw%2 != 0 {
		cw++
	}
	if ch%2 != 0 {
		ch++
	}
	return cw, ch
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// outputFormatFor maps an OutputTarget to the codec package's container
// identity, which GetBitstreamFilters keys its conversion rules on.
func outputFormatFor(o OutputTarget) codec.OutputFormat {
	switch o {
	case OutputHLS:
		return codec.FormatHLS
	case OutputDASH:
		return codec.FormatFMP4
	default:
		return codec.FormatMPEGTS
	}
}

func appendCodecArgs(args []string, in Input) []string {
	var videoEncoder, audioEncoder string
	videoCopying := true

	if in.AudioOnly {
		args = append(args, "-vn")
	} else if videoNeedsTranscode(in) {
		videoCopying = false
		videoEncoder = in.VideoEncoder
		if videoEncoder == "" {
			videoEncoder = codec.GetVideoEncoder(codec.Video(in.TargetVideoCodec), codec.HWAccelNone)
		}
		args = append(args, "-c:v", videoEncoder)
		if in.Probe == nil && in.ScreenMode == ScreenPic && stillimageEncoders[videoEncoder] {
			args = append(args, "-tune", "stillimage")
		}
	} else if in.Probe != nil {
		videoEncoder = in.Probe.VideoCodec
		args = append(args, "-c:v", "copy")
	}

	if audioNeedsTranscode(in) || needsAudioFilterGraph(in) {
		audioEncoder = in.AudioEncoder
		if audioEncoder == "" {
			audioEncoder = codec.GetAudioEncoder(codec.Audio(in.TargetAudioCodec))
		}
		args = append(args, "-c:a", audioEncoder)
	} else {
		if in.Probe != nil {
			audioEncoder = in.Probe.AudioCodec
		}
		args = append(args, "-c:a", "copy")
	}

	if !in.AudioOnly && videoEncoder != "" {
		bsf := ffmpeg.GetBitstreamFilters(
			ffmpeg.GetCodecFamily(videoEncoder),
			ffmpeg.GetCodecFamily(audioEncoder),
			outputFormatFor(in.Output),
			videoCopying,
		)
		if bsf.VideoBSF != "" {
			args = append(args, "-bsf:v", bsf.VideoBSF)
		}
		if bsf.AudioBSF != "" {
			args = append(args, "-bsf:a", bsf.AudioBSF)
		}
	}

	return args
}

func appendOutputArgs(args []string, in Input) []string {
	args = append(args, "-t", msToSeconds(in.Item.StreamDurationMs))

	switch in.Output {
	case OutputHLS:
		args = append(args,
			"-f", "hls",
			"-hls_time", "6",
			"-hls_delete_threshold", strconv.Itoa(in.Settings.HLSDeleteThreshold),
			"-hls_flags", "delete_segments",
		)
		args = append(args, in.SegmentDir+"/index.m3u8")
	case OutputDASH:
		args = append(args, "-f", "dash")
		args = append(args, in.SegmentDir+"/manifest.mpd")
	default:
		args = append(args,
			"-f", "mpegts",
			"-mpegts_copyts", "1",
			"-avoid_negative_ts", "disabled",
		)
		args = append(args, in.CustomArgs...)
		args = append(args, "-")
	}

	return args
}

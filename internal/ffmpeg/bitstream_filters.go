package ffmpeg

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"

	"github.com/lanestream/broadcastcore/internal/codec"
)

// OutputFormatType is an alias for the canonical output format enum in
// internal/codec, kept so existing call sites in this package don't need
// an import-qualified name everywhere.
type OutputFormatType = codec.OutputFormat

// CodecFamily is an alias for the canonical video/audio codec identity in
// internal/codec. The bitstream-filter tables below only need to compare
// codec families, not produce encoder names, so Video and Audio share
// this alias interchangeably via their shared string values ("h264",
// "aac", etc).
type CodecFamily = codec.Video

const (
	FormatMPEGTS  = codec.FormatMPEGTS
	FormatHLS     = codec.FormatHLS
	FormatFLV     = codec.FormatFLV
	FormatMP4     = codec.FormatMP4
	FormatMKV     = codec.FormatMKV
	FormatWebM    = codec.FormatWebM
	FormatUnknown = codec.FormatUnknown

	CodecFamilyH264    CodecFamily = codec.Video(codec.VideoH264)
	CodecFamilyHEVC    CodecFamily = codec.Video(codec.VideoH265)
	CodecFamilyVP9     CodecFamily = codec.Video(codec.VideoVP9)
	CodecFamilyAV1     CodecFamily = codec.Video(codec.VideoAV1)
	CodecFamilyAAC     CodecFamily = codec.Video(codec.AudioAAC)
	CodecFamilyAC3     CodecFamily = codec.Video(codec.AudioAC3)
	CodecFamilyEAC3    CodecFamily = codec.Video(codec.AudioEAC3)
	CodecFamilyMP3     CodecFamily = codec.Video(codec.AudioMP3)
	CodecFamilyOpus    CodecFamily = codec.Video(codec.AudioOpus)
	CodecFamilyUnknown CodecFamily = ""
)

// BitstreamFilterInfo contains information about a bitstream filter to apply
type BitstreamFilterInfo struct {
	VideoBSF string // Bitstream filter for video (e.g., "h264_mp4toannexb")
	AudioBSF string // Bitstream filter for audio (e.g., "aac_adtstoasc")
	Reason   string // Why this filter is needed
}

// encoderToCodecFamily maps encoder names to their codec families
var encoderToCodecFamily = map[string]CodecFamily{
	// H.264 encoders
	"libx264":           CodecFamilyH264,
	"h264_nvenc":        CodecFamilyH264,
	"h264_qsv":          CodecFamilyH264,
	"h264_vaapi":        CodecFamilyH264,
	"h264_videotoolbox": CodecFamilyH264,
	"h264_amf":          CodecFamilyH264,
	"h264_mf":           CodecFamilyH264,
	"h264_omx":          CodecFamilyH264,
	"h264_v4l2m2m":      CodecFamilyH264,
	"copy":              CodecFamilyUnknown, // Need to detect source

	// HEVC/H.265 encoders
	"libx265":           CodecFamilyHEVC,
	"hevc_nvenc":        CodecFamilyHEVC,
	"hevc_qsv":          CodecFamilyHEVC,
	"hevc_vaapi":        CodecFamilyHEVC,
	"hevc_videotoolbox": CodecFamilyHEVC,
	"hevc_amf":          CodecFamilyHEVC,
	"hevc_mf":           CodecFamilyHEVC,

	// VP9 encoders
	"libvpx-vp9": CodecFamilyVP9,
	"vp9_vaapi":  CodecFamilyVP9,
	"vp9_qsv":    CodecFamilyVP9,

	// AV1 encoders
	"libaom-av1":  CodecFamilyAV1,
	"libsvtav1":   CodecFamilyAV1,
	"av1_nvenc":   CodecFamilyAV1,
	"av1_qsv":     CodecFamilyAV1,
	"av1_vaapi":   CodecFamilyAV1,
	"librav1e":    CodecFamilyAV1,

	// Audio encoders
	"aac":        CodecFamilyAAC,
	"libfdk_aac": CodecFamilyAAC,
	"ac3":        CodecFamilyAC3,
	"eac3":       CodecFamilyEAC3,
	"libmp3lame": CodecFamilyMP3,
	"libopus":    CodecFamilyOpus,
}

// GetCodecFamily returns the codec family for an FFmpeg encoder name
// (e.g. "h264_nvenc" -> h264). Falls back to codec.Normalize's substring
// rules for encoder names this package's table doesn't list explicitly.
func GetCodecFamily(encoder string) CodecFamily {
	encoder = strings.ToLower(encoder)
	if family, ok := encoderToCodecFamily[encoder]; ok {
		return family
	}
	if normalized := codec.Normalize(encoder); normalized != "" {
		return codec.Video(normalized)
	}
	return CodecFamilyUnknown
}

// GetVideoBitstreamFilter returns the appropriate video bitstream filter
// for converting from a source codec to a target output format.
//
// IMPORTANT: The isCopying parameter determines whether video is being copied or transcoded:
// - When COPYING (isCopying=true): BSF may be needed to convert between container formats
//   (e.g., h264_mp4toannexb converts AVCC from MP4 to Annex B for MPEG-TS)
// - When TRANSCODING (isCopying=false): The encoder outputs the correct format directly,
//   and FFmpeg's muxer handles it. Adding BSF would corrupt the stream.
func GetVideoBitstreamFilter(codecFamily CodecFamily, outputFormat OutputFormatType, isCopying bool) BitstreamFilterInfo {
	// When transcoding (encoding), the encoder and muxer handle format correctly.
	// BSF is only needed when copying to convert between container formats.
	if !isCopying {
		return BitstreamFilterInfo{
			Reason: "Transcoding: encoder outputs correct format for muxer",
		}
	}

	switch outputFormat {
	case FormatMPEGTS, FormatHLS:
		// Following m3u-proxy's approach: no bitstream filters for MPEG-TS.
		// FFmpeg's muxer handles the format conversion internally.
		// The -mpegts_copyts and -avoid_negative_ts flags handle timestamp preservation.
		return BitstreamFilterInfo{
			Reason: "MPEG-TS: no BSF needed (m3u-proxy proven approach)",
		}
	case FormatFLV, FormatMP4:
		// FLV and MP4 use AVCC format natively, no video BSF needed
		return BitstreamFilterInfo{
			Reason: "FLV/MP4 use AVCC format natively",
		}
	case FormatMKV, FormatWebM:
		// Matroska handles both formats, no BSF typically needed
		return BitstreamFilterInfo{
			Reason: "Matroska handles both AVCC and Annex B formats",
		}
	}

	return BitstreamFilterInfo{}
}

// GetAudioBitstreamFilter returns the appropriate audio bitstream filter
func GetAudioBitstreamFilter(codecFamily CodecFamily, outputFormat OutputFormatType) BitstreamFilterInfo {
	switch outputFormat {
	case FormatFLV, FormatMP4:
		// AAC in FLV/MP4 needs ASC format (convert from ADTS if coming from MPEG-TS)
		if codecFamily == CodecFamilyAAC {
			return BitstreamFilterInfo{
				AudioBSF: "aac_adtstoasc",
				Reason:   "Convert AAC from ADTS (MPEG-TS) to ASC (MP4/FLV) format",
			}
		}
	case FormatMPEGTS, FormatHLS:
		// MPEG-TS uses ADTS for AAC which is the FFmpeg default
		// No BSF needed
		return BitstreamFilterInfo{
			Reason: "MPEG-TS uses ADTS format for AAC which is default",
		}
	}

	return BitstreamFilterInfo{}
}

// GetBitstreamFilters returns both video and audio bitstream filters needed
// for a given codec and output format combination.
// isCopyingVideo indicates whether video is being copied (true) or transcoded (false).
func GetBitstreamFilters(videoCodecFamily, audioCodecFamily CodecFamily, outputFormat OutputFormatType, isCopyingVideo bool) BitstreamFilterInfo {
	videoBSF := GetVideoBitstreamFilter(videoCodecFamily, outputFormat, isCopyingVideo)
	audioBSF := GetAudioBitstreamFilter(audioCodecFamily, outputFormat)

	return BitstreamFilterInfo{
		VideoBSF: videoBSF.VideoBSF,
		AudioBSF: audioBSF.AudioBSF,
		Reason:   combineReasons(videoBSF.Reason, audioBSF.Reason),
	}
}

func combineReasons(video, audio string) string {
	if video != "" && audio != "" {
		return video + "; " + audio
	}
	if video != "" {
		return video
	}
	return audio
}

// RequiresAnnexBConversion returns true if the output format requires Annex B NAL format
func RequiresAnnexBConversion(outputFormat OutputFormatType) bool {
	switch outputFormat {
	case FormatMPEGTS, FormatHLS:
		return true
	default:
		return false
	}
}

// ParseOutputFormat converts a string to OutputFormatType. Delegates to
// internal/codec so the alias table has one source of truth.
func ParseOutputFormat(format string) OutputFormatType {
	return codec.ParseOutputFormat(format)
}

// IsHardwareEncoder returns true if the encoder is a hardware encoder
func IsHardwareEncoder(encoder string) bool {
	encoder = strings.ToLower(encoder)
	hwSuffixes := []string{"_nvenc", "_qsv", "_vaapi", "_videotoolbox", "_amf", "_mf", "_omx", "_v4l2m2m"}
	for _, suffix := range hwSuffixes {
		if strings.HasSuffix(encoder, suffix) {
			return true
		}
	}
	return false
}

// ValidateBitstreamFilterAvailable checks if a bitstream filter is available in FFmpeg
func ValidateBitstreamFilterAvailable(ctx context.Context, ffmpegPath, filterName string) bool {
	if filterName == "" {
		return true
	}

	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-bsfs")
	output, err := cmd.Output()
	if err != nil {
		slog.Warn("Failed to list bitstream filters", slog.Any("error", err))
		return true // Assume available
	}

	pattern := regexp.MustCompile(`(?m)^\s*` + regexp.QuoteMeta(filterName) + `\s*$`)
	return pattern.Match(output)
}

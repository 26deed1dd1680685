package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lanestream/broadcastcore/internal/ffmpeg"
	pkgffmpeg "github.com/lanestream/broadcastcore/pkg/ffmpeg"
)

// CapabilitiesProvider detects the encoder binary's capabilities.
// Satisfied by *ffmpeg.BinaryDetector.
type CapabilitiesProvider interface {
	Detect(ctx context.Context) (*ffmpeg.BinaryInfo, error)
}

// CapabilitiesHandler exposes the encoder binary's detected codecs,
// hardware accelerators and formats, so an operator can check what a
// deployment is actually capable of before pointing channels at it.
type CapabilitiesHandler struct {
	detector CapabilitiesProvider
}

// NewCapabilitiesHandler builds a CapabilitiesHandler over detector.
func NewCapabilitiesHandler(detector CapabilitiesProvider) *CapabilitiesHandler {
	return &CapabilitiesHandler{detector: detector}
}

// Register adds the capabilities endpoint to the API.
func (h *CapabilitiesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getCapabilities",
		Method:      "GET",
		Path:        "/capabilities",
		Summary:     "Get encoder capabilities",
		Description: "Detects the configured ffmpeg/ffprobe binaries and reports their version, codecs, hardware accelerators and formats.",
		Tags:        []string{"System"},
	}, h.getCapabilities)
}

type capabilitiesInput struct{}

type capabilitiesOutput struct {
	Body CapabilitiesResponse
}

// CapabilitiesResponse is the JSON shape of the /capabilities endpoint.
type CapabilitiesResponse struct {
	Available      bool                `json:"available" doc:"Whether an ffmpeg binary was found"`
	FFmpegPath     string              `json:"ffmpeg_path,omitempty" doc:"Resolved ffmpeg binary path"`
	FFprobePath    string              `json:"ffprobe_path,omitempty" doc:"Resolved ffprobe binary path"`
	Version        string              `json:"version,omitempty" doc:"ffmpeg version string"`
	MajorVersion   int                 `json:"major_version,omitempty"`
	MinorVersion   int                 `json:"minor_version,omitempty"`
	Configuration  string              `json:"configuration,omitempty" doc:"Build configuration flags"`
	Encoders       []string            `json:"encoders,omitempty"`
	Decoders       []string            `json:"decoders,omitempty"`
	HWAccels       []HWAccelResponse   `json:"hw_accels,omitempty" doc:"Hardware accelerators that probed as usable"`
	SupportsMPEGTS bool                `json:"supports_mpegts" doc:"Whether the mpegts muxer used by /stream, /video and /radio is available"`
	Recommended    *RecommendedEncoder `json:"recommended,omitempty"`
}

// HWAccelResponse describes one usable hardware accelerator.
type HWAccelResponse struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	DeviceName string   `json:"device_name,omitempty"`
	Encoders   []string `json:"encoders,omitempty"`
}

// RecommendedEncoder mirrors the video/audio encoder pair selectHWAccel
// would pick for a fresh channel, exposed so an operator doesn't have
// to infer it from the raw capability dump.
type RecommendedEncoder struct {
	HWAccel      string `json:"hw_accel,omitempty"`
	HWAccelName  string `json:"hw_accel_name,omitempty"`
	VideoEncoder string `json:"video_encoder,omitempty"`
	AudioEncoder string `json:"audio_encoder,omitempty"`
}

func (h *CapabilitiesHandler) getCapabilities(ctx context.Context, _ *capabilitiesInput) (*capabilitiesOutput, error) {
	info, err := h.detector.Detect(ctx)
	if err != nil {
		return &capabilitiesOutput{Body: CapabilitiesResponse{Available: false}}, nil
	}

	resp := CapabilitiesResponse{
		Available:      true,
		FFmpegPath:     info.FFmpegPath,
		FFprobePath:    info.FFprobePath,
		Version:        info.Version,
		MajorVersion:   info.MajorVersion,
		MinorVersion:   info.MinorVersion,
		Configuration:  info.Configuration,
		Encoders:       info.Encoders,
		Decoders:       info.Decoders,
		SupportsMPEGTS: info.HasFormat("mpegts"),
	}

	for _, accel := range info.GetAvailableHWAccels() {
		resp.HWAccels = append(resp.HWAccels, HWAccelResponse{
			Type:       string(accel.Type),
			Name:       accel.Name,
			DeviceName: accel.DeviceName,
			Encoders:   accel.Encoders,
		})
	}

	if recommended := pkgffmpeg.GetRecommendedHWAccel(info.HWAccels); recommended != nil {
		resp.Recommended = &RecommendedEncoder{
			HWAccel:     string(recommended.Type),
			HWAccelName: recommended.Name,
		}
		if len(recommended.Encoders) > 0 {
			resp.Recommended.VideoEncoder = recommended.Encoders[0]
		}
	}
	if info.HasEncoder("aac") {
		if resp.Recommended == nil {
			resp.Recommended = &RecommendedEncoder{}
		}
		resp.Recommended.AudioEncoder = "aac"
	}

	return &capabilitiesOutput{Body: resp}, nil
}

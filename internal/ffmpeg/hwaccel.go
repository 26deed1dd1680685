package ffmpeg

import (
	"context"

	pkgffmpeg "github.com/lanestream/broadcastcore/pkg/ffmpeg"
)

// HWAccelType and HWAccelInfo are re-exported from pkg/ffmpeg so callers
// of BinaryDetector don't need to import both packages.
type (
	HWAccelType = pkgffmpeg.HWAccelType
	HWAccelInfo = pkgffmpeg.HWAccelInfo
)

// HasHWAccel returns true if the accelType accelerator reported on info
// is available.
func (info *BinaryInfo) HasHWAccel(accelType HWAccelType) bool {
	return pkgffmpeg.HasHWAccel(info.HWAccels, accelType)
}

// GetAvailableHWAccels returns all available hardware accelerators.
func (info *BinaryInfo) GetAvailableHWAccels() []HWAccelInfo {
	var available []HWAccelInfo
	for _, accel := range info.HWAccels {
		if accel.Available {
			available = append(available, accel)
		}
	}
	return available
}

// getHWAccels retrieves hardware accelerator information by delegating to
// pkg/ffmpeg's detector, the single implementation shared with the
// stream controller's encoder-selection path.
func (d *BinaryDetector) getHWAccels(ctx context.Context, ffmpegPath string) ([]HWAccelInfo, error) {
	detector := pkgffmpeg.NewHWAccelDetector(ffmpegPath)
	return detector.Detect(ctx)
}

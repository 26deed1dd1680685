package streamcontroller

import (
	"context"
	"sync"
	"time"

	"github.com/lanestream/broadcastcore/internal/codec"
	pkgffmpeg "github.com/lanestream/broadcastcore/pkg/ffmpeg"
)

// hwaccelCacheTTL bounds how long a host's detected hardware
// accelerators are trusted before re-probing. Hardware availability on
// a given binary path essentially never changes at runtime, but a
// fixed TTL avoids caching a transient detection failure forever.
const hwaccelCacheTTL = 10 * time.Minute

// hwaccelTypeByPriority maps the config-facing hwaccel_priority names
// (matching codec.HWAccel string values where ffmpeg has a mature
// encoder) onto pkg/ffmpeg's detector type. Names that don't appear
// here (e.g. "amf", which internal/codec has no encoder table for)
// are skipped during selection rather than rejected at config time.
var hwaccelTypeByPriority = map[string]pkgffmpeg.HWAccelType{
	"vaapi":        pkgffmpeg.HWAccelVAAPI,
	"nvenc":        pkgffmpeg.HWAccelNVENC,
	"cuda":         pkgffmpeg.HWAccelNVENC,
	"qsv":          pkgffmpeg.HWAccelQSV,
	"videotoolbox": pkgffmpeg.HWAccelVideoToolbox,
}

// codecHWAccelByType maps a detected pkg/ffmpeg.HWAccelType back onto
// the internal/codec.HWAccel value GetVideoEncoder expects.
var codecHWAccelByType = map[pkgffmpeg.HWAccelType]codec.HWAccel{
	pkgffmpeg.HWAccelVAAPI:        codec.HWAccelVAAPI,
	pkgffmpeg.HWAccelNVENC:        codec.HWAccelCUDA,
	pkgffmpeg.HWAccelQSV:          codec.HWAccelQSV,
	pkgffmpeg.HWAccelVideoToolbox: codec.HWAccelVT,
}

// hwaccelCache detects and remembers which hardware accelerators a
// given ffmpeg binary actually supports, so every stream request
// doesn't re-spawn ffmpeg with -hwaccels plus a round of test encodes.
type hwaccelCache struct {
	mu         sync.Mutex
	ffmpegPath string
	detectedAt time.Time
	accels     []pkgffmpeg.HWAccelInfo
}

func (c *hwaccelCache) get(ctx context.Context, ffmpegPath string) []pkgffmpeg.HWAccelInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ffmpegPath == ffmpegPath && time.Since(c.detectedAt) < hwaccelCacheTTL {
		return c.accels
	}

	detector := pkgffmpeg.NewHWAccelDetector(ffmpegPath)
	accels, err := detector.Detect(ctx)
	if err != nil {
		// Detection failure (e.g. ffmpeg too old for -hwaccels) is
		// reported as "nothing available" rather than an error: the
		// caller always has a software-encode fallback.
		accels = nil
	}

	c.ffmpegPath = ffmpegPath
	c.detectedAt = time.Now()
	c.accels = accels
	return c.accels
}

// selectHWAccel walks priority in order and returns the codec.HWAccel
// for the first entry that both names a usable encoder family and is
// actually available on this host, falling back to codec.HWAccelNone
// when nothing in priority is available or configured.
func (c *hwaccelCache) selectHWAccel(ctx context.Context, ffmpegPath string, priority []string) codec.HWAccel {
	if len(priority) == 0 {
		return codec.HWAccelNone
	}

	accels := c.get(ctx, ffmpegPath)

	for _, name := range priority {
		accelType, ok := hwaccelTypeByPriority[name]
		if !ok {
			continue
		}
		if !pkgffmpeg.HasHWAccel(accels, accelType) {
			continue
		}
		if hw, ok := codecHWAccelByType[accelType]; ok {
			return hw
		}
	}

	return codec.HWAccelNone
}

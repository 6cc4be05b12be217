package engine

import (
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/zsiec/audiostream/internal/media"
)

// rawAudioCapsTemplate is the fixed capsfilter string every decode path
// converges on before its appsink: signed 32-bit little-endian, interleaved,
// at the stream's native channel count and rate. Converging on one wire
// format keeps the byte-transform table in internal/sink small; the actual
// bit-depth reported to callers still reflects the source (see
// specFromDiscovered).
const rawAudioCapsTemplate = "audio/x-raw,format=S32LE,layout=interleaved,channels=%d,rate=%d"

func rawAudioCaps(channels, rate int) *gst.Caps {
	return gst.NewCapsFromString(fmt.Sprintf(rawAudioCapsTemplate, channels, rate))
}

// specFromDiscovered builds a media.StreamSpec from the caps/tags the
// decodebin pipeline settled on for the selected stream, plus the duration
// queried from the pipeline once PAUSED. GStreamer negotiates the final
// sample format itself; this module always requests S32LE interleaved (see
// rawAudioCapsTemplate) and trusts the source's reported bit depth for the
// sub-sample padding the sink transform needs.
func specFromDiscovered(channels, rate, bitDepth int, durationNs int64) media.StreamSpec {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 32
	}
	return media.StreamSpec{
		Sample:     media.SampleS32,
		Layout:     media.Interleaved,
		Timebase:   media.Rational{Num: 1, Den: 1_000_000_000}, // GStreamer clock: nanoseconds
		Duration:   durationNs,
		BitDepth:   bitDepth,
		Channels:   channels,
		SampleRate: rate,
	}
}

// bitDepthFromCapsString extracts a "depth" or "width" field from a decoded
// audio caps string when present, defaulting to 32 (no sub-sample padding)
// when the source codec does not expose one — most lossy codecs decode to
// full-width samples.
func bitDepthFromCapsString(s string) int {
	for _, key := range []string{"depth=(int)", "width=(int)"} {
		if idx := strings.Index(s, key); idx >= 0 {
			rest := s[idx+len(key):]
			end := strings.IndexAny(rest, ", ")
			if end < 0 {
				end = len(rest)
			}
			var depth int
			if _, err := fmt.Sscanf(rest[:end], "%d", &depth); err == nil && depth > 0 {
				return depth
			}
		}
	}
	return 32
}

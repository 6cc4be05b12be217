package engine

import (
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/zsiec/audiostream/internal/streamerr"
)

// classifyGError buckets a GStreamer GError into one of the module's named
// error kinds, falling back to an opaque passthrough code when the message
// does not match a known category. GStreamer's GError does not expose a
// stable numeric domain through go-gst, so classification is done by
// keyword the same way the teacher's rtsp package does it.
func classifyGError(gerr *gst.GError) streamerr.Code {
	if gerr == nil {
		return streamerr.None
	}
	msg := strings.ToLower(gerr.Error())
	debug := strings.ToLower(gerr.DebugString())

	switch {
	case containsAny(msg, debug, "connection", "resolve", "timeout", "network", "refused"):
		return streamerr.NetConnectFail
	case containsAny(msg, debug, "decode", "codec", "format", "parse", "stream"):
		return streamerr.PcmCodecInvalid
	default:
		return streamerr.Passthrough(int32(gerr.Code()))
	}
}

func containsAny(msg, debug string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(msg, n) || strings.Contains(debug, n) {
			return true
		}
	}
	return false
}

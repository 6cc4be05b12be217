package engine

import (
	"sync"

	"github.com/tinyzimmer/go-gst/gst"
)

var initOnce sync.Once

// initGst runs gst.Init exactly once per process, the same guard the teacher
// applies before every pipeline construction since GStreamer's own init is
// not safe to skip but is safe to call redundantly upstream.
func initGst() {
	initOnce.Do(func() {
		gst.Init(nil)
	})
}

// Package engine adapts GStreamer (via go-gst) to the narrow Demuxer,
// Decoder, and Device interfaces defined by internal/streamctx and
// internal/sink. It is the only package in this module that imports
// gst/app/glib directly; every other package talks to the pipeline through
// those interfaces.
package engine

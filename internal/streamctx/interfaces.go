package streamctx

import "github.com/zsiec/audiostream/internal/media"

// Demuxer is the narrow surface Context needs from a demux/parse engine.
// internal/engine's GStreamer-backed adapter implements this; tests use
// fakes from internal/enginetest.
type Demuxer interface {
	// StreamIndex returns the index of the audio stream this demuxer
	// selected at open time.
	StreamIndex() int
	// Spec returns the immutable stream parameters discovered at open.
	Spec() media.StreamSpec
	// ReadPacket returns the next packet belonging to StreamIndex,
	// discarding any interleaved packets from other streams. Returns
	// (nil, nil) on end of stream.
	ReadPacket() (*media.Packet, error)
	// SeekTo seeks to pts (timebase units), using a backward keyframe
	// search when backward is true.
	SeekTo(pts int64, backward bool) error
	Close() error
}

// Decoder is the narrow surface Context needs from a decode engine.
type Decoder interface {
	// SendPacket submits compressed data for decoding. SendPacket does not
	// take ownership of pkt; the caller frees it.
	SendPacket(pkt *media.Packet) error
	// ReceiveFrame pulls the next decoded frame. ErrAgain indicates the
	// decoder needs more input before it can produce output; it is not a
	// failure.
	ReceiveFrame() (*media.Frame, error)
	// Flush discards any buffered input/output state, used by the seek
	// protocol.
	Flush() error
	Close() error
}

package enginetest

import (
	"errors"
	"sync"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamctx"
)

// Demuxer is a scripted streamctx.Demuxer backed by a fixed packet slice.
// Concurrent access is safe since Reader and any test-side inspection may
// race on Seeks.
type Demuxer struct {
	StreamIdx int
	StreamSpc media.StreamSpec

	mu      sync.Mutex
	packets []*media.Packet
	pos     int
	closed  bool
	Seeks   []int64 // recorded SeekTo(pts) calls, in order
}

// NewDemuxer returns a Demuxer that replays packets in order, then reports
// end of stream.
func NewDemuxer(spec media.StreamSpec, streamIndex int, packets []*media.Packet) *Demuxer {
	return &Demuxer{StreamIdx: streamIndex, StreamSpc: spec, packets: packets}
}

func (d *Demuxer) StreamIndex() int           { return d.StreamIdx }
func (d *Demuxer) Spec() media.StreamSpec     { return d.StreamSpc }
func (d *Demuxer) Close() error               { d.mu.Lock(); d.closed = true; d.mu.Unlock(); return nil }
func (d *Demuxer) Closed() bool               { d.mu.Lock(); defer d.mu.Unlock(); return d.closed }

// SeekTo records the seek and rewinds to the first packet whose PTS is >=
// pts, the same "nearest packet at or after target" semantics a real
// demuxer's keyframe search approximates.
func (d *Demuxer) SeekTo(pts int64, _ bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Seeks = append(d.Seeks, pts)
	for i, p := range d.packets {
		if p.PTS >= pts {
			d.pos = i
			return nil
		}
	}
	d.pos = len(d.packets)
	return nil
}

// ReadPacket returns (nil, nil) at end of stream, matching streamctx.Demuxer.
func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pos >= len(d.packets) {
		return nil, nil
	}
	p := d.packets[d.pos]
	d.pos++
	return p, nil
}

// Decoder is a streamctx.Decoder that echoes every submitted packet back as
// a one-sample-per-byte interleaved frame at the packet's PTS, enough to
// drive a Reader/Decoder/Sink pipeline end to end without a real codec.
type Decoder struct {
	Channels int

	mu      sync.Mutex
	pending []*media.Frame
	flushed int
	closed  bool
}

// NewDecoder returns a Decoder that produces interleaved frames with the
// given channel count.
func NewDecoder(channels int) *Decoder {
	return &Decoder{Channels: channels}
}

func (d *Decoder) SendPacket(pkt *media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("enginetest: decoder closed")
	}
	sampleCount := len(pkt.Data) / d.Channels
	if sampleCount == 0 {
		sampleCount = 1
	}
	data := make([]byte, sampleCount*d.Channels)
	copy(data, pkt.Data)
	d.pending = append(d.pending, media.NewInterleavedFrame(pkt.PTS, sampleCount, d.Channels, data, nil))
	return nil
}

func (d *Decoder) ReceiveFrame() (*media.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return nil, streamctx.ErrAgain
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	return f, nil
}

func (d *Decoder) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushed++
	d.pending = nil
	return nil
}

func (d *Decoder) FlushCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flushed
}

func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Device is a sink.Device that records every write instead of touching a
// real audio sink.
type Device struct {
	mu       sync.Mutex
	opened   string
	spec     media.StreamSpec
	latency  int
	Written  []byte
	drained  bool
	closed   bool
	recovers int
}

func (d *Device) Open(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = name
	return nil
}

func (d *Device) Configure(spec media.StreamSpec, latencyUs int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec = spec
	d.latency = latencyUs
	return nil
}

func (d *Device) WriteInterleaved(data []byte, sampleCount int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Written = append(d.Written, data...)
	return sampleCount, nil
}

func (d *Device) WritePlanar(planes [][]byte, sampleCount int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range planes {
		d.Written = append(d.Written, p...)
	}
	return sampleCount, nil
}

func (d *Device) Recover() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recovers++
	return nil
}

func (d *Device) Drain() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drained = true
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Device) BytesWritten() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Written)
}

package media

// Packet is an owning handle to one compressed transport unit pulled from
// the demuxer. A Packet is owned by exactly one of {producer, queue,
// consumer} at any time; Free must be called exactly once by whichever side
// ends up disposing of it (the consumer on normal drain, or a DBQ disposer
// on flush).
type Packet struct {
	StreamIndex int
	PTS         int64 // presentation timestamp, timebase units
	Duration    int64 // timebase units

	// Data is the compressed payload. Owned by the Packet; do not retain
	// a slice of it past Free.
	Data []byte

	// native is an opaque handle back into the demuxer library's own
	// packet representation, released by Free. nil for packets built by
	// tests or synthetic sources.
	native func()
}

// NewPacket constructs a Packet over already-copied data. release, if
// non-nil, is invoked exactly once by Free to return native resources to
// the owning demuxer.
func NewPacket(streamIndex int, pts, duration int64, data []byte, release func()) *Packet {
	return &Packet{
		StreamIndex: streamIndex,
		PTS:         pts,
		Duration:    duration,
		Data:        data,
		native:      release,
	}
}

// Free releases any native resources backing the packet. Safe to call on a
// nil Packet (no-op) and safe to call more than once.
func (p *Packet) Free() {
	if p == nil {
		return
	}
	if p.native != nil {
		p.native()
		p.native = nil
	}
}

// EndTS returns the packet's end timestamp (PTS + Duration), the value the
// Reader advances its worker timestamp to after a successful push.
func (p *Packet) EndTS() int64 {
	return p.PTS + p.Duration
}

package media

// Frame is an owning handle to one decoded PCM unit. Exactly one of Data
// (interleaved) or Planes (planar, one slice per channel) is populated,
// matching the StreamSpec.Layout in effect when the frame was produced.
type Frame struct {
	PTS          int64 // timebase units
	SampleCount  int   // samples per channel
	ChannelCount int

	// Data holds interleaved samples as raw bytes, ContainerBytes-wide per
	// sample-channel pair, valid when Layout == Interleaved.
	Data []byte

	// Planes holds one raw-byte buffer per channel, valid when Layout ==
	// Planar. len(Planes) == ChannelCount.
	Planes [][]byte

	native func()
}

// NewInterleavedFrame builds a Frame over an interleaved byte buffer.
func NewInterleavedFrame(pts int64, sampleCount, channels int, data []byte, release func()) *Frame {
	return &Frame{
		PTS:          pts,
		SampleCount:  sampleCount,
		ChannelCount: channels,
		Data:         data,
		native:       release,
	}
}

// NewPlanarFrame builds a Frame over one buffer per channel.
func NewPlanarFrame(pts int64, sampleCount, channels int, planes [][]byte, release func()) *Frame {
	return &Frame{
		PTS:          pts,
		SampleCount:  sampleCount,
		ChannelCount: channels,
		Planes:       planes,
		native:       release,
	}
}

// Free releases any native resources backing the frame. Safe on nil and
// safe to call more than once.
func (f *Frame) Free() {
	if f == nil {
		return
	}
	if f.native != nil {
		f.native()
		f.native = nil
	}
}

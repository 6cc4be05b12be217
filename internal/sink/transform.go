package sink

import "github.com/zsiec/audiostream/internal/media"

// Transform converts one decoded Frame into the byte layout a file sink
// writes, given the StreamSpec that was in effect when the sink was
// opened. out is a reusable scratch buffer the caller preallocates once at
// open time; Transform grows it if necessary and returns the (possibly
// reallocated) slice sized exactly to the produced output.
type Transform func(f *media.Frame, out []byte) []byte

// NewTransform selects the frame-to-byte strategy for spec by its two
// orthogonal attributes, layout and whether the container is fully used by
// significant bits (spec.FullSample()), matching the four-cell table of the
// sink's byte-layout contract. The strategy is picked once at open time and
// called directly thereafter, avoiding a dispatch per frame in the hot
// path.
func NewTransform(spec media.StreamSpec) Transform {
	bw := spec.Sample.ContainerBytes()
	bd := spec.BitDepthBytes()
	switch {
	case spec.Layout == media.Interleaved && bd == bw:
		return interleavedFullTransform
	case spec.Layout == media.Planar && bd == bw:
		return planarFullTransform(bw)
	case spec.Layout == media.Interleaved && bd < bw:
		return interleavedSubsampleTransform(bw, bd)
	default:
		return planarSubsampleTransform(bw, bd)
	}
}

// interleavedFullTransform: container fully used, samples already laid out
// contiguously — the frame's Data plane is the output verbatim.
func interleavedFullTransform(f *media.Frame, out []byte) []byte {
	return f.Data
}

// planarFullTransform: for each sample index s and channel c, emit
// plane[c][s*bw .. (s+1)*bw), producing interleaved output.
func planarFullTransform(bw int) Transform {
	return func(f *media.Frame, out []byte) []byte {
		n := f.SampleCount * f.ChannelCount * bw
		out = ensureCap(out, n)
		pos := 0
		for s := 0; s < f.SampleCount; s++ {
			for c := 0; c < f.ChannelCount; c++ {
				start := s * bw
				copy(out[pos:pos+bw], f.Planes[c][start:start+bw])
				pos += bw
			}
		}
		return out[:n]
	}
}

// interleavedSubsampleTransform: bit-depth < container width. The frame's
// single interleaved plane holds (sampleCount*channels) container-wide
// slots in sample-major, channel-minor order; each slot's significant bytes
// are the high bd bytes (offset bw-bd), matching device and RIFF 24-in-32
// packing conventions.
func interleavedSubsampleTransform(bw, bd int) Transform {
	skip := bw - bd
	return func(f *media.Frame, out []byte) []byte {
		slots := f.SampleCount * f.ChannelCount
		n := slots * bd
		out = ensureCap(out, n)
		for i := 0; i < slots; i++ {
			start := i*bw + skip
			copy(out[i*bd:(i+1)*bd], f.Data[start:start+bw-skip])
		}
		return out[:n]
	}
}

// planarSubsampleTransform: same padding rule as interleavedSubsample but
// applied per-channel plane, with output interleaved sample-major.
func planarSubsampleTransform(bw, bd int) Transform {
	skip := bw - bd
	return func(f *media.Frame, out []byte) []byte {
		n := f.SampleCount * f.ChannelCount * bd
		out = ensureCap(out, n)
		pos := 0
		for s := 0; s < f.SampleCount; s++ {
			for c := 0; c < f.ChannelCount; c++ {
				start := s*bw + skip
				copy(out[pos:pos+bd], f.Planes[c][start:start+bw-skip])
				pos += bd
			}
		}
		return out[:n]
	}
}

func ensureCap(out []byte, n int) []byte {
	if cap(out) < n {
		return make([]byte, n)
	}
	return out[:n]
}

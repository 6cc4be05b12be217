package media

import "fmt"

// SampleType tags the sample container of a StreamSpec, independent of
// channel layout.
type SampleType int

const (
	SampleU8 SampleType = iota
	SampleS16
	SampleS32
	SampleF32
	SampleF64
)

func (t SampleType) String() string {
	switch t {
	case SampleU8:
		return "u8"
	case SampleS16:
		return "s16"
	case SampleS32:
		return "s32"
	case SampleF32:
		return "f32"
	case SampleF64:
		return "f64"
	default:
		return fmt.Sprintf("sampletype(%d)", int(t))
	}
}

// IsFloat reports whether the container holds IEEE float samples.
func (t SampleType) IsFloat() bool {
	return t == SampleF32 || t == SampleF64
}

// ContainerBits returns the bit width of one sample's storage container
// (bw in the spec's terminology, always >= bit-depth).
func (t SampleType) ContainerBits() int {
	switch t {
	case SampleU8:
		return 8
	case SampleS16:
		return 16
	case SampleS32, SampleF32:
		return 32
	case SampleF64:
		return 64
	default:
		return 0
	}
}

// ContainerBytes is ContainerBits divided into bytes (bw).
func (t SampleType) ContainerBytes() int {
	return t.ContainerBits() / 8
}

// Layout tags whether channel samples are interleaved or planar.
type Layout int

const (
	Interleaved Layout = iota
	Planar
)

func (l Layout) String() string {
	if l == Planar {
		return "planar"
	}
	return "interleaved"
}

// Rational is a timebase or ratio expressed as an exact fraction, matching
// the demuxer/decoder library convention of num/den timestamps.
type Rational struct {
	Num int64
	Den int64
}

// Seconds converts a timebase count of ticks to seconds using this ratio as
// the timebase (ticks * Num / Den).
func (r Rational) Seconds(ticks int64) float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(ticks) * float64(r.Num) / float64(r.Den)
}

// FromSeconds converts seconds back into ticks of this timebase, rounding
// toward the nearest tick.
func (r Rational) FromSeconds(seconds float64) int64 {
	if r.Num == 0 {
		return 0
	}
	return int64(seconds*float64(r.Den)/float64(r.Num) + 0.5)
}

// StreamSpec is the immutable snapshot of the negotiated audio stream
// parameters, valid from a successful Context.Open until the next Open or
// Close.
type StreamSpec struct {
	Sample     SampleType
	Layout     Layout
	Timebase   Rational
	Duration   int64 // total duration in Timebase units
	BitDepth   int   // significant bits per sample (bd), <= Sample.ContainerBits()
	Channels   int
	SampleRate int
}

// BitDepthBytes returns ceil(BitDepth/8), the "bd" of the spec.
func (s StreamSpec) BitDepthBytes() int {
	return (s.BitDepth + 7) / 8
}

// FullSample reports whether the container is fully used by significant
// bits (bd == bw), i.e. no padding bytes need to be skipped.
func (s StreamSpec) FullSample() bool {
	return s.BitDepthBytes() == s.Sample.ContainerBytes()
}

func (s StreamSpec) String() string {
	return fmt.Sprintf("%s/%s ch=%d rate=%dHz depth=%d timebase=%d/%d dur=%d",
		s.Sample, s.Layout, s.Channels, s.SampleRate, s.BitDepth,
		s.Timebase.Num, s.Timebase.Den, s.Duration)
}

package wave

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/zsiec/audiostream/internal/media"
)

const (
	formatTagPCM   uint16 = 0x0001
	formatTagFloat uint16 = 0x0003
)

// Header is the fully computed set of RIFF/WAVE sizing fields for one
// StreamSpec, per the fixed-format-tag / optional-fact-chunk layout the
// file-wav sink emits.
type Header struct {
	FormatTag     uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16

	IsFloat      bool
	FmtChunkSize uint32
	BlockCount   int64
	DataSize     uint32
	RiffSize     uint32
	Pad          uint8
}

// Build computes header sizing for spec. block_count is duration rescaled
// from the stream's timebase to 1/rate (ticks-per-second), rounded to the
// nearest tick.
func Build(spec media.StreamSpec) Header {
	bd := int64(spec.BitDepthBytes())
	channels := int64(spec.Channels)
	blockAlign := channels * bd

	numerator := spec.Duration * spec.Timebase.Num * int64(spec.SampleRate)
	denominator := spec.Timebase.Den
	var blockCount int64
	if denominator != 0 {
		blockCount = (numerator + denominator/2) / denominator
	}

	dataSize := uint64(blockCount) * uint64(blockAlign)
	isFloat := spec.Sample.IsFloat()

	var fmtChunkSize uint32 = 16
	if isFloat {
		fmtChunkSize = 18
	}

	riffSize := uint64(4) + 8 + uint64(fmtChunkSize) + 8 + dataSize
	if isFloat {
		riffSize += 8 + 4 // "fact" chunk: tag + size + payload
	}
	pad := uint8(riffSize & 1)

	formatTag := formatTagPCM
	if isFloat {
		formatTag = formatTagFloat
	}

	return Header{
		FormatTag:     formatTag,
		Channels:      uint16(spec.Channels),
		SampleRate:    uint32(spec.SampleRate),
		ByteRate:      uint32(uint64(blockAlign) * uint64(spec.SampleRate)),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(spec.BitDepth),
		IsFloat:       isFloat,
		FmtChunkSize:  fmtChunkSize,
		BlockCount:    blockCount,
		DataSize:      uint32(dataSize),
		RiffSize:      uint32(riffSize),
		Pad:           pad,
	}
}

// WriteTo emits the full header (RIFF/WAVE, fmt, optional fact, data chunk
// header) to w in little-endian byte order, per §4.6.3.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(p []byte) error {
		wn, err := w.Write(p)
		n += int64(wn)
		return err
	}

	buf4 := make([]byte, 4)
	buf2 := make([]byte, 2)

	if err := write([]byte("RIFF")); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint32(buf4, h.RiffSize+uint32(h.Pad))
	if err := write(buf4); err != nil {
		return n, err
	}
	if err := write([]byte("WAVE")); err != nil {
		return n, err
	}

	if err := write([]byte("fmt ")); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint32(buf4, h.FmtChunkSize)
	if err := write(buf4); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint16(buf2, h.FormatTag)
	if err := write(buf2); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint16(buf2, h.Channels)
	if err := write(buf2); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint32(buf4, h.SampleRate)
	if err := write(buf4); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint32(buf4, h.ByteRate)
	if err := write(buf4); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint16(buf2, h.BlockAlign)
	if err := write(buf2); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint16(buf2, h.BitsPerSample)
	if err := write(buf2); err != nil {
		return n, err
	}

	if h.IsFloat {
		binary.LittleEndian.PutUint16(buf2, 0) // cbSize
		if err := write(buf2); err != nil {
			return n, err
		}
		if err := write([]byte("fact")); err != nil {
			return n, err
		}
		binary.LittleEndian.PutUint32(buf4, 4)
		if err := write(buf4); err != nil {
			return n, err
		}
		binary.LittleEndian.PutUint32(buf4, uint32(h.BlockCount)*uint32(h.Channels))
		if err := write(buf4); err != nil {
			return n, err
		}
	}

	if err := write([]byte("data")); err != nil {
		return n, err
	}
	binary.LittleEndian.PutUint32(buf4, h.DataSize)
	if err := write(buf4); err != nil {
		return n, err
	}
	return n, nil
}

// Size returns the total byte length of the header WriteTo emits (before
// the PCM data region).
func (h Header) Size() int64 {
	base := int64(12 + 8 + h.FmtChunkSize + 8) // RIFF+WAVE, fmt chunk (cbSize already in FmtChunkSize for float), data chunk header
	if h.IsFloat {
		base += 8 + 4 // fact tag+size, fact payload
	}
	return base
}

// ReserveDataRegion writes DataSize+Pad zero bytes at the writer's current
// position (immediately after the header) and seeks back to just past the
// header, so later random-access PCM writes never need the size fields
// patched at close.
func ReserveDataRegion(w io.WriteSeeker, h Header) error {
	pos, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	total := int64(h.DataSize) + int64(h.Pad)
	const chunk = 32 * 1024
	zeros := make([]byte, chunk)
	for total > 0 {
		n := int64(chunk)
		if total < n {
			n = total
		}
		if _, err := w.Write(zeros[:n]); err != nil {
			return fmt.Errorf("wave: reserve data region: %w", err)
		}
		total -= n
	}
	_, err = w.Seek(pos, io.SeekStart)
	return err
}

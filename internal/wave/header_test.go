package wave

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/zsiec/audiostream/internal/media"
)

func stereoS16(duration int64) media.StreamSpec {
	return media.StreamSpec{
		Sample:     media.SampleS16,
		Layout:     media.Interleaved,
		Timebase:   media.Rational{Num: 1, Den: 44100},
		Duration:   duration,
		BitDepth:   16,
		Channels:   2,
		SampleRate: 44100,
	}
}

// TestIntegerHeaderMatchesS2 checks scenario S2: riff_size = 4 + 8 + 16 + 8
// + block_count*4 for a 2ch/16-bit stream.
func TestIntegerHeaderMatchesS2(t *testing.T) {
	spec := stereoS16(1000)
	h := Build(spec)
	if h.BlockCount != 1000 {
		t.Fatalf("expected block_count 1000 (timebase == 1/rate), got %d", h.BlockCount)
	}
	wantRiff := uint32(4 + 8 + 16 + 8 + h.BlockCount*4)
	if h.RiffSize != wantRiff {
		t.Fatalf("riff_size = %d, want %d", h.RiffSize, wantRiff)
	}

	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	b := buf.Bytes()
	if string(b[0:4]) != "RIFF" {
		t.Fatalf("expected RIFF magic, got %q", b[0:4])
	}
	gotRiff := binary.LittleEndian.Uint32(b[4:8])
	if gotRiff != h.RiffSize+uint32(h.Pad) {
		t.Fatalf("header riff size field = %d, want %d", gotRiff, h.RiffSize+uint32(h.Pad))
	}
	if string(b[8:12]) != "WAVE" {
		t.Fatalf("expected WAVE magic, got %q", b[8:12])
	}
	if string(b[12:16]) != "fmt " {
		t.Fatalf(`expected "fmt " (with trailing space), got %q`, b[12:16])
	}
}

// TestPlanar24In32MatchesS3: 1-channel 24-in-32 planar S32 stream: bit
// depth 24, block_align 3.
func TestPlanar24In32MatchesS3(t *testing.T) {
	spec := media.StreamSpec{
		Sample:     media.SampleS32,
		Layout:     media.Planar,
		Timebase:   media.Rational{Num: 1, Den: 48000},
		Duration:   48000,
		BitDepth:   24,
		Channels:   1,
		SampleRate: 48000,
	}
	h := Build(spec)
	if h.BitsPerSample != 24 {
		t.Fatalf("expected bits_per_sample 24, got %d", h.BitsPerSample)
	}
	if h.BlockAlign != 3 {
		t.Fatalf("expected block_align 3 (1ch * ceil(24/8)), got %d", h.BlockAlign)
	}
	if spec.FullSample() {
		t.Fatal("expected FullSample()==false for 24-in-32")
	}
}

func TestFloatHeaderEmitsFactChunk(t *testing.T) {
	spec := media.StreamSpec{
		Sample:     media.SampleF32,
		Layout:     media.Interleaved,
		Timebase:   media.Rational{Num: 1, Den: 48000},
		Duration:   48000,
		BitDepth:   32,
		Channels:   2,
		SampleRate: 48000,
	}
	h := Build(spec)
	if !h.IsFloat || h.FormatTag != formatTagFloat {
		t.Fatal("expected float format tag")
	}
	if h.FmtChunkSize != 18 {
		t.Fatalf("expected fmt chunk size 18 for float, got %d", h.FmtChunkSize)
	}

	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("fact")) {
		t.Fatal("expected fact chunk in float header")
	}
	if int64(buf.Len()) != h.Size() {
		t.Fatalf("WriteTo wrote %d bytes, Size() reports %d", buf.Len(), h.Size())
	}
}

func TestIntegerHeaderHasNoFactChunk(t *testing.T) {
	spec := stereoS16(1000)
	h := Build(spec)
	var buf bytes.Buffer
	if _, err := h.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(buf.Bytes(), []byte("fact")) {
		t.Fatal("did not expect fact chunk in integer PCM header")
	}
	if int64(buf.Len()) != h.Size() {
		t.Fatalf("WriteTo wrote %d bytes, Size() reports %d", buf.Len(), h.Size())
	}
}

func TestDataSizeMatchesBlockCountTimesBlockAlign(t *testing.T) {
	spec := stereoS16(1000)
	h := Build(spec)
	want := uint32(h.BlockCount) * uint32(h.BlockAlign)
	if h.DataSize != want {
		t.Fatalf("data_size = %d, want %d", h.DataSize, want)
	}
}

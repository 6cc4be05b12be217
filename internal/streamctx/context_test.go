package streamctx

import (
	"errors"
	"testing"

	"github.com/zsiec/audiostream/internal/media"
)

type fakeDemuxer struct {
	idx     int
	spec    media.StreamSpec
	closed  bool
	seeks   []int64
	packets []*media.Packet
	pos     int
}

func (d *fakeDemuxer) StreamIndex() int          { return d.idx }
func (d *fakeDemuxer) Spec() media.StreamSpec    { return d.spec }
func (d *fakeDemuxer) Close() error              { d.closed = true; return nil }
func (d *fakeDemuxer) SeekTo(pts int64, _ bool) error {
	d.seeks = append(d.seeks, pts)
	return nil
}
func (d *fakeDemuxer) ReadPacket() (*media.Packet, error) {
	if d.pos >= len(d.packets) {
		return nil, nil
	}
	p := d.packets[d.pos]
	d.pos++
	return p, nil
}

type fakeDecoder struct {
	closed      bool
	flushCalls  int
	sendCalls   int
}

func (d *fakeDecoder) SendPacket(*media.Packet) error   { d.sendCalls++; return nil }
func (d *fakeDecoder) ReceiveFrame() (*media.Frame, error) { return nil, ErrAgain }
func (d *fakeDecoder) Flush() error                     { d.flushCalls++; return nil }
func (d *fakeDecoder) Close() error                     { d.closed = true; return nil }

func testSpec() media.StreamSpec {
	return media.StreamSpec{
		Sample:     media.SampleS16,
		Layout:     media.Interleaved,
		Timebase:   media.Rational{Num: 1, Den: 44100},
		Duration:   44100,
		BitDepth:   16,
		Channels:   2,
		SampleRate: 44100,
	}
}

func TestOpenPopulatesStreamIndexFromDemuxer(t *testing.T) {
	demux := &fakeDemuxer{idx: 3, spec: testSpec()}
	dec := &fakeDecoder{}
	ctx := New(func(url string) (Demuxer, Decoder, error) {
		return demux, dec, nil
	}, Options{})

	if err := ctx.Open("file:///a.mp3"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	g := ctx.LockFormat()
	defer g.Release()
	if !g.Valid || g.StreamIndex != 3 {
		t.Fatalf("expected valid guard with stream index 3, got valid=%v idx=%d", g.Valid, g.StreamIndex)
	}
}

func TestOpenFailureLeavesContextClosed(t *testing.T) {
	wantErr := errors.New("boom")
	ctx := New(func(url string) (Demuxer, Decoder, error) {
		return nil, nil, wantErr
	}, Options{})

	if err := ctx.Open("bad://"); !errors.Is(err, wantErr) {
		t.Fatalf("expected %v, got %v", wantErr, err)
	}
	g := ctx.LockFormat()
	valid := g.Valid
	// GetStreamSpec takes the format mutex itself, so the guard is
	// released first.
	g.Release()
	if valid {
		t.Fatal("expected invalid format guard after failed open")
	}
	if _, err := ctx.GetStreamSpec(); err == nil {
		t.Fatal("expected GetStreamSpec to fail with no demuxer")
	}
}

func TestCloseInvalidatesBothHandles(t *testing.T) {
	demux := &fakeDemuxer{idx: 0, spec: testSpec()}
	dec := &fakeDecoder{}
	ctx := New(func(url string) (Demuxer, Decoder, error) { return demux, dec, nil }, Options{})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}
	ctx.Close()
	if !demux.closed || !dec.closed {
		t.Fatal("expected both handles closed")
	}
	fg := ctx.LockFormat()
	dg := ctx.LockDecoder()
	valid := fg.Valid || dg.Valid
	fg.Release()
	dg.Release()
	if valid {
		t.Fatal("expected both guards invalid after Close")
	}
}

func TestReopenClosesPriorState(t *testing.T) {
	demux1 := &fakeDemuxer{idx: 0, spec: testSpec()}
	dec1 := &fakeDecoder{}
	demux2 := &fakeDemuxer{idx: 1, spec: testSpec()}
	dec2 := &fakeDecoder{}
	calls := 0
	ctx := New(func(url string) (Demuxer, Decoder, error) {
		calls++
		if calls == 1 {
			return demux1, dec1, nil
		}
		return demux2, dec2, nil
	}, Options{})

	if err := ctx.Open("first"); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Open("second"); err != nil {
		t.Fatal(err)
	}
	if !demux1.closed || !dec1.closed {
		t.Fatal("expected first demuxer/decoder closed on reopen")
	}
	g := ctx.LockFormat()
	defer g.Release()
	if g.StreamIndex != 1 {
		t.Fatalf("expected stream index from second open, got %d", g.StreamIndex)
	}
}

func TestPacketQueueFlushDisposesResidentPackets(t *testing.T) {
	demux := &fakeDemuxer{idx: 0, spec: testSpec()}
	dec := &fakeDecoder{}
	ctx := New(func(url string) (Demuxer, Decoder, error) { return demux, dec, nil }, Options{})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}
	var freed bool
	pkt := media.NewPacket(0, 0, 0, nil, func() { freed = true })
	if !ctx.PacketQueue().Push(pkt) {
		t.Fatal("expected push to succeed")
	}
	ctx.Close()
	if !freed {
		t.Fatal("expected resident packet freed on Close")
	}
}

package reader

import (
	"testing"
	"time"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamctx"
)

type fakeDemuxer struct {
	idx     int
	spec    media.StreamSpec
	packets []*media.Packet
	pos     int
	seeks   []int64
}

func (d *fakeDemuxer) StreamIndex() int       { return d.idx }
func (d *fakeDemuxer) Spec() media.StreamSpec { return d.spec }
func (d *fakeDemuxer) Close() error           { return nil }
func (d *fakeDemuxer) SeekTo(pts int64, _ bool) error {
	d.seeks = append(d.seeks, pts)
	d.pos = 0
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

type fakeDecoder struct{ flushed int }

func (d *fakeDecoder) SendPacket(*media.Packet) error      { return nil }
func (d *fakeDecoder) ReceiveFrame() (*media.Frame, error) { return nil, streamctx.ErrAgain }
func (d *fakeDecoder) Flush() error                        { d.flushed++; return nil }
func (d *fakeDecoder) Close() error                        { return nil }

func testSpec(duration int64) media.StreamSpec {
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

func newTestPackets(n int, streamIdx int) []*media.Packet {
	pkts := make([]*media.Packet, n)
	for i := range pkts {
		pkts[i] = media.NewPacket(streamIdx, int64(i*100), 100, []byte{byte(i)}, nil)
	}
	return pkts
}

func TestReaderPushesOnlyMatchingStreamPackets(t *testing.T) {
	packets := []*media.Packet{
		media.NewPacket(1, 0, 100, nil, nil), // other stream, discarded
		media.NewPacket(0, 0, 100, nil, nil),
		media.NewPacket(0, 100, 100, nil, nil),
	}
	demux := &fakeDemuxer{idx: 0, spec: testSpec(1000), packets: packets}
	dec := &fakeDecoder{}
	ctx := streamctx.New(func(string) (streamctx.Demuxer, streamctx.Decoder, error) {
		return demux, dec, nil
	}, streamctx.Options{PacketQueueCapacity: 4, FrameQueueCapacity: 4})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}

	r := New(ctx)
	defer r.Close()
	r.Start(nil)

	p1, ok := ctx.PacketQueue().Pop()
	if !ok || p1.PTS != 0 {
		t.Fatalf("expected first matching packet pts=0, got %+v ok=%v", p1, ok)
	}
	p2, ok := ctx.PacketQueue().Pop()
	if !ok || p2.PTS != 100 {
		t.Fatalf("expected second matching packet pts=100, got %+v ok=%v", p2, ok)
	}
}

func TestReaderStopsAndPushesNilSentinelOnEOS(t *testing.T) {
	demux := &fakeDemuxer{idx: 0, spec: testSpec(1000), packets: newTestPackets(2, 0)}
	dec := &fakeDecoder{}
	ctx := streamctx.New(func(string) (streamctx.Demuxer, streamctx.Decoder, error) {
		return demux, dec, nil
	}, streamctx.Options{PacketQueueCapacity: 8, FrameQueueCapacity: 8})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}

	r := New(ctx)
	defer r.Close()
	r.Start(nil)

	for i := 0; i < 2; i++ {
		if _, ok := ctx.PacketQueue().Pop(); !ok {
			t.Fatalf("expected packet %d", i)
		}
	}
	sentinel, ok := ctx.PacketQueue().Pop()
	if !ok || sentinel != nil {
		t.Fatalf("expected nil sentinel packet, got %+v ok=%v", sentinel, ok)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !r.State().Running {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("expected reader to stop after EOS")
}

func TestSeekPTSFlushesBothQueuesAndClampsTarget(t *testing.T) {
	demux := &fakeDemuxer{idx: 0, spec: testSpec(1000), packets: newTestPackets(50, 0)}
	dec := &fakeDecoder{}
	ctx := streamctx.New(func(string) (streamctx.Demuxer, streamctx.Decoder, error) {
		return demux, dec, nil
	}, streamctx.Options{PacketQueueCapacity: 64, FrameQueueCapacity: 64})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}

	r := New(ctx)
	defer r.Close()

	if err := r.SeekPTS(5000); err != nil {
		t.Fatalf("SeekPTS: %v", err)
	}
	if len(demux.seeks) != 1 || demux.seeks[0] != 1000 {
		t.Fatalf("expected clamped seek target 1000, got %v", demux.seeks)
	}
	if dec.flushed != 1 {
		t.Fatalf("expected decoder flushed once, got %d", dec.flushed)
	}
	if ctx.PacketQueue().Size() != 0 || ctx.FrameQueue().Size() != 0 {
		t.Fatal("expected both queues empty after seek")
	}
}

func TestSeekFractionComputesTargetFromDuration(t *testing.T) {
	demux := &fakeDemuxer{idx: 0, spec: testSpec(1000), packets: newTestPackets(1, 0)}
	dec := &fakeDecoder{}
	ctx := streamctx.New(func(string) (streamctx.Demuxer, streamctx.Decoder, error) {
		return demux, dec, nil
	}, streamctx.Options{})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}

	r := New(ctx)
	defer r.Close()

	if err := r.SeekFraction(0.5); err != nil {
		t.Fatalf("SeekFraction: %v", err)
	}
	if len(demux.seeks) != 1 || demux.seeks[0] != 500 {
		t.Fatalf("expected seek target 500, got %v", demux.seeks)
	}
}

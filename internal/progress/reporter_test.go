package progress

import (
	"context"
	"testing"
	"time"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/sink"
	"github.com/zsiec/audiostream/internal/streamctx"
)

type nopWriter struct{}

func (nopWriter) Write(*media.Frame) error { return nil }
func (nopWriter) Close() error             { return nil }

type nopDemuxer struct{ spec media.StreamSpec }

func (d *nopDemuxer) StreamIndex() int                   { return 0 }
func (d *nopDemuxer) Spec() media.StreamSpec             { return d.spec }
func (d *nopDemuxer) Close() error                       { return nil }
func (d *nopDemuxer) SeekTo(int64, bool) error           { return nil }
func (d *nopDemuxer) ReadPacket() (*media.Packet, error) { return nil, nil }

type nopDecoder struct{}

func (nopDecoder) SendPacket(*media.Packet) error      { return nil }
func (nopDecoder) ReceiveFrame() (*media.Frame, error) { return nil, streamctx.ErrAgain }
func (nopDecoder) Flush() error                        { return nil }
func (nopDecoder) Close() error                        { return nil }

func testSpec() media.StreamSpec {
	return media.StreamSpec{
		Sample:     media.SampleS32,
		Layout:     media.Interleaved,
		Timebase:   media.Rational{Num: 1, Den: 1_000_000_000},
		Duration:   10_000_000_000,
		BitDepth:   24,
		Channels:   2,
		SampleRate: 48000,
	}
}

func TestRunLogsUntilContextCancelled(t *testing.T) {
	spec := testSpec()
	ctx := streamctx.New(func(string) (streamctx.Demuxer, streamctx.Decoder, error) {
		return &nopDemuxer{spec: spec}, nopDecoder{}, nil
	}, streamctx.Options{PacketQueueCapacity: 4, FrameQueueCapacity: 4})
	if err := ctx.Open("x"); err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()

	s := sink.New(ctx, nopWriter{})
	defer s.Close()

	r := NewReporter(ctx, s, spec, 5*time.Millisecond, nil)

	runCtx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		r.Run(runCtx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

package decoder

import (
	"errors"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamctx"
	"github.com/zsiec/audiostream/internal/streamerr"
	"github.com/zsiec/audiostream/internal/worker"
)

// Decoder pulls packets from the Context's packet queue, feeds them to the
// Context's decoder, and pushes decoded frames onto the frame queue.
type Decoder struct {
	ctx *streamctx.Context
	rt  *worker.Runtime
}

// New creates a Decoder bound to ctx.
func New(ctx *streamctx.Context) *Decoder {
	d := &Decoder{ctx: ctx}
	d.rt = worker.New(d.executeBody)
	return d
}

func (d *Decoder) Start(handler worker.Handler) { d.rt.Start(handler) }
func (d *Decoder) Stop()                        { d.rt.Stop() }
func (d *Decoder) Pause()                       { d.rt.Pause() }
func (d *Decoder) State() worker.State          { return d.rt.State() }
func (d *Decoder) Close()                       { d.rt.Close() }

// executeBody implements one Decoder body iteration per the pop → submit →
// drain-outputs → push loop. The packet pop happens outside the decoder
// lock so a seek that flushes the packet queue between iterations cannot
// deadlock this worker on the decoder mutex. The decoder guard is likewise
// released before any frame-queue push: FrameQueue().Push blocks whenever
// the Sink has stopped draining, and holding decoderMu across that wait
// would stop Context.Close (format guard, then decoder guard, then queue
// flush) from ever reaching the flush that would unblock it. So every
// frame produced by one submitted packet is collected locally first, the
// guard is released, and only then are the frames pushed.
func (d *Decoder) executeBody(rt *worker.Runtime) {
	pkt, ok := d.ctx.PacketQueue().Pop()
	if !ok {
		return
	}
	if pkt == nil {
		// EOS sentinel from the Reader.
		rt.StopBody(streamerr.None, nil)
		for !d.ctx.FrameQueue().Push(nil) {
		}
		return
	}
	defer pkt.Free()

	g := d.ctx.LockDecoder()
	if !g.Valid {
		g.Release()
		rt.StopBody(streamerr.PcmCodecInvalid, nil)
		return
	}

	if err := g.Decoder.SendPacket(pkt); err != nil {
		g.Decoder.Close()
		g.Invalidate()
		g.Release()
		rt.PauseBody(streamerr.PcmCodecInvalid, err)
		return
	}

	var frames []*media.Frame
	for {
		frame, err := g.Decoder.ReceiveFrame()
		if err != nil {
			if errors.Is(err, streamctx.ErrAgain) {
				break
			}
			g.Decoder.Close()
			g.Invalidate()
			g.Release()
			for _, f := range frames {
				f.Free()
			}
			rt.PauseBody(streamerr.PcmCodecInvalid, err)
			return
		}
		if frame == nil {
			break
		}
		frames = append(frames, frame)
	}
	g.Release()

	for _, frame := range frames {
		if !d.ctx.FrameQueue().Push(frame) {
			frame.Free()
			continue
		}
		rt.AdvanceTimestamp(frame.PTS)
	}
}

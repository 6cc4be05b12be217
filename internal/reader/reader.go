package reader

import (
	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamctx"
	"github.com/zsiec/audiostream/internal/streamerr"
	"github.com/zsiec/audiostream/internal/worker"
)

// Reader pulls packets belonging to the Context's selected stream into the
// packet queue.
type Reader struct {
	ctx *streamctx.Context
	rt  *worker.Runtime
}

// New creates a Reader bound to ctx. Call Start to begin pulling packets.
func New(ctx *streamctx.Context) *Reader {
	r := &Reader{ctx: ctx}
	r.rt = worker.New(r.executeBody)
	return r
}

// Start begins the background body, invoking handler on every state
// transition.
func (r *Reader) Start(handler worker.Handler) { r.rt.Start(handler) }

// Stop halts the worker.
func (r *Reader) Stop() { r.rt.Stop() }

// Pause halts the worker while preserving its timestamp.
func (r *Reader) Pause() { r.rt.Pause() }

// State returns the current WorkerState snapshot.
func (r *Reader) State() worker.State { return r.rt.State() }

// Close terminates the background goroutine. Call once the Reader is no
// longer needed.
func (r *Reader) Close() { r.rt.Close() }

// executeBody implements one Reader body iteration per the component's
// read-and-forward loop: acquire the format guard, pull packets from the
// demuxer until one belongs to the selected stream (or EOS), release the
// guard, and push the matched packet.
func (r *Reader) executeBody(rt *worker.Runtime) {
	g := r.ctx.LockFormat()
	if !g.Valid {
		g.Release()
		rt.StopBody(streamerr.PcmFormatInvalid, nil)
		return
	}

	var pkt *media.Packet
	for {
		p, err := g.Demuxer.ReadPacket()
		if err != nil {
			g.Release()
			rt.PauseBody(streamerr.PcmFormatInvalid, err)
			return
		}
		if p == nil {
			// End of stream.
			g.Release()
			rt.StopBody(streamerr.None, nil)
			for !r.ctx.PacketQueue().Push(nil) {
			}
			return
		}
		if p.StreamIndex == g.StreamIndex {
			pkt = p
			break
		}
		p.Free()
	}
	g.Release()

	if !r.ctx.PacketQueue().Push(pkt) {
		// Queue was flushed mid-wait (e.g. a concurrent seek); not an
		// error, the packet is simply discarded.
		pkt.Free()
		return
	}
	rt.AdvanceTimestamp(pkt.EndTS())
}

// SeekPTS seeks to an absolute timestamp in timebase units, serialised
// against body iterations via the worker's own state mutex. On a successful
// demuxer seek it flushes the packet queue, flushes the decoder's internal
// buffers, and flushes the frame queue, in that order, guaranteeing that no
// pre-seek packet or frame is subsequently delivered downstream.
func (r *Reader) SeekPTS(pts int64) error {
	var outErr error
	r.rt.Exclusive(func(rt *worker.Runtime) {
		g := r.ctx.LockFormat()
		if !g.Valid {
			g.Release()
			rt.StopBody(streamerr.PcmFormatInvalid, nil)
			outErr = streamerr.New(streamerr.PcmFormatInvalid, nil)
			return
		}

		spec := g.Demuxer.Spec()
		target := clamp(pts, 0, spec.Duration)
		backward := target < rt.CurrentTimestamp()
		if err := g.Demuxer.SeekTo(target, backward); err != nil {
			g.Release()
			rt.PauseBody(streamerr.PcmFormatInvalid, err)
			outErr = err
			return
		}
		g.Release()

		r.ctx.PacketQueue().Flush(func(p *media.Packet) { p.Free() })

		dg := r.ctx.LockDecoder()
		if dg.Valid {
			if err := dg.Decoder.Flush(); err != nil {
				dg.Release()
				rt.PauseBody(streamerr.PcmCodecInvalid, err)
				outErr = err
				return
			}
		}
		dg.Release()

		r.ctx.FrameQueue().Flush(func(f *media.Frame) { f.Free() })
	})
	return outErr
}

// SeekFraction seeks to fraction * duration of the current stream.
func (r *Reader) SeekFraction(fraction float64) error {
	spec, err := r.ctx.GetStreamSpec()
	if err != nil {
		return err
	}
	target := int64(fraction * float64(spec.Duration))
	return r.SeekPTS(target)
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package sink

import (
	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamctx"
	"github.com/zsiec/audiostream/internal/streamerr"
	"github.com/zsiec/audiostream/internal/worker"
)

// Writer is the common contract every concrete sink implements: consume one
// decoded frame, and tear itself down on EOS.
type Writer interface {
	Write(f *media.Frame) error
	Close() error
}

// Sink pops frames from the Context's frame queue and hands each to a
// Writer. A nil pop result is EOS: the worker stops and the Writer is
// closed, since there is no further queue to forward to. A write error
// pauses the worker without closing, so the caller can retry (e.g. resume
// device playback after an underrun recovery).
type Sink struct {
	ctx    *streamctx.Context
	writer Writer
	rt     *worker.Runtime
}

// New builds a Sink bound to ctx that dispatches to writer.
func New(ctx *streamctx.Context, writer Writer) *Sink {
	s := &Sink{ctx: ctx, writer: writer}
	s.rt = worker.New(s.executeBody)
	return s
}

func (s *Sink) Start(handler worker.Handler) { s.rt.Start(handler) }
func (s *Sink) Stop()                        { s.rt.Stop() }
func (s *Sink) Pause()                       { s.rt.Pause() }
func (s *Sink) State() worker.State          { return s.rt.State() }
func (s *Sink) Close()                       { s.rt.Close() }

func (s *Sink) executeBody(rt *worker.Runtime) {
	frame, ok := s.ctx.FrameQueue().Pop()
	if !ok {
		return
	}
	if frame == nil {
		rt.StopBody(streamerr.None, nil)
		s.writer.Close()
		return
	}
	defer frame.Free()

	if err := s.writer.Write(frame); err != nil {
		rt.PauseBody(streamerr.PcmFormatInvalid, err)
		return
	}
	rt.AdvanceTimestamp(frame.PTS)
}

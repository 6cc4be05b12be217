package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/sink"
	"github.com/zsiec/audiostream/internal/streamctx"
)

// Reporter periodically logs the Sink's playback position against the
// stream's duration, plus the current packet/frame queue backlog, until ctx
// is cancelled.
type Reporter struct {
	ctx      *streamctx.Context
	sink     *sink.Sink
	spec     media.StreamSpec
	interval time.Duration
	logger   *slog.Logger
}

// NewReporter builds a Reporter that logs at interval using logger (or
// slog.Default() if nil).
func NewReporter(streamCtx *streamctx.Context, s *sink.Sink, spec media.StreamSpec, interval time.Duration, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{ctx: streamCtx, sink: s, spec: spec, interval: interval, logger: logger}
}

// Run blocks logging position/backlog every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.logOnce()
		}
	}
}

func (r *Reporter) logOnce() {
	state := r.sink.State()
	posSeconds := r.spec.Timebase.Seconds(state.Timestamp)
	durSeconds := r.spec.Timebase.Seconds(r.spec.Duration)
	r.logger.Info("audiostream: progress",
		"position_s", posSeconds,
		"duration_s", durSeconds,
		"packet_backlog", r.ctx.PacketQueue().Size(),
		"frame_backlog", r.ctx.FrameQueue().Size(),
	)
}

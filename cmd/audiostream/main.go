package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/audiostream/internal/decoder"
	"github.com/zsiec/audiostream/internal/engine"
	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/progress"
	"github.com/zsiec/audiostream/internal/reader"
	"github.com/zsiec/audiostream/internal/sink"
	"github.com/zsiec/audiostream/internal/streamctx"
	"github.com/zsiec/audiostream/internal/streamerr"
	"github.com/zsiec/audiostream/internal/worker"
)

// defaultDeviceLatencyUs is the target playback buffer latency requested
// from engine.PlaybackDevice when -play is used without further tuning.
const defaultDeviceLatencyUs = 50_000

// pollInterval is how often main polls a worker's State while waiting for
// it to stop; body iterations are already far coarser than this, so it
// adds negligible shutdown latency.
const pollInterval = 10 * time.Millisecond

type config struct {
	url        string
	playDevice string
	rawPath    string
	wavPath    string
	seek       float64
	seekSet    bool
	progress   bool
	debug      bool
}

func main() {
	cfg := parseFlags()

	logLevel := slog.LevelInfo
	if cfg.debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	sessionID := uuid.New()
	logger = logger.With("session_id", sessionID.String())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received, stopping gracefully")
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("audiostream: exiting with error", "error", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func parseFlags() config {
	var cfg config

	flag.StringVar(&cfg.playDevice, "play", "", "play to this output device (\"default\" for the system default)")
	flag.StringVar(&cfg.rawPath, "raw", "", "write raw PCM + sidecar metadata to this path")
	flag.StringVar(&cfg.wavPath, "wav", "", "write a RIFF/WAVE file to this path")
	seek := flag.Float64("seek", -1, "seek to this fraction of the stream [0,1] before playback starts")
	flag.BoolVar(&cfg.progress, "progress", false, "log periodic playback position")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <url>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	cfg.url = flag.Arg(0)

	if *seek >= 0 {
		cfg.seek = *seek
		cfg.seekSet = true
	}

	sinks := 0
	if cfg.playDevice != "" {
		sinks++
	}
	if cfg.rawPath != "" {
		sinks++
	}
	if cfg.wavPath != "" {
		sinks++
	}
	if sinks != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -play, -raw, -wav is required")
		flag.Usage()
		os.Exit(1)
	}
	return cfg
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	streamCtx := streamctx.New(engine.OpenStream, streamctx.Options{
		PacketQueueCapacity: streamctx.DefaultQueueCapacity,
		FrameQueueCapacity:  streamctx.DefaultQueueCapacity,
	})
	if err := streamCtx.Open(cfg.url); err != nil {
		return fmt.Errorf("open %s: %w", cfg.url, err)
	}
	defer streamCtx.Close()

	spec, err := streamCtx.GetStreamSpec()
	if err != nil {
		return fmt.Errorf("stream spec: %w", err)
	}
	logger.Info("audiostream: opened stream", "url", cfg.url, "spec", spec.String())

	writer, closeWriter, err := openWriter(cfg, spec)
	if err != nil {
		return fmt.Errorf("open sink: %w", err)
	}

	rd := reader.New(streamCtx)
	dec := decoder.New(streamCtx)
	snk := sink.New(streamCtx, writer)

	errHandler := func(name string) worker.Handler {
		return func(s worker.State) {
			if s.Err != streamerr.None {
				logger.Error("audiostream: worker error", "worker", name, "code", s.Err.String(), "cause", s.Cause)
			}
		}
	}
	rd.Start(errHandler("reader"))
	dec.Start(errHandler("decoder"))
	snk.Start(errHandler("sink"))

	if cfg.seekSet {
		if err := rd.SeekFraction(cfg.seek); err != nil {
			logger.Warn("audiostream: seek failed", "fraction", cfg.seek, "error", err)
		}
	}

	if cfg.progress {
		reporter := progress.NewReporter(streamCtx, snk, spec, time.Second, logger)
		go reporter.Run(ctx)
	}

	// Each worker already stops itself on end-of-stream via the DBQ
	// nil-sentinel protocol; errgroup here is just the wait-and-collect
	// point for the three, not a cancellation mechanism (that's ctx, wired
	// below to a Stop() on every worker instead of a per-call cancel).
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return waitForStop(gctx, rd.State) })
	g.Go(func() error { return waitForStop(gctx, dec.State) })
	g.Go(func() error { return waitForStop(gctx, snk.State) })

	// gctx is cancelled both by the outer signal-triggered ctx and by the
	// first worker to report an error. A worker body runs with its state
	// mutex held (internal/worker) and blocks only inside a queue Pop/Push,
	// so Stop() alone cannot reach a body parked there — it would wait
	// forever for a mutex the blocked body never releases. Flushing both
	// DBQs directly makes the blocked Pop/Push return false without going
	// through streamCtx.Close first: Close acquires the format and decoder
	// handle mutexes before it flushes, so calling it here instead could
	// itself block on a handle mutex held by a worker parked on a full
	// queue. streamCtx.Close runs after the flush, to release the
	// demuxer/decoder handles once nothing can still be blocked holding
	// them; Stop() then only has to catch whichever worker hasn't reached
	// its own invalid-handle path yet.
	go func() {
		<-gctx.Done()
		streamCtx.PacketQueue().Flush(func(p *media.Packet) { p.Free() })
		streamCtx.FrameQueue().Flush(func(f *media.Frame) { f.Free() })
		streamCtx.Close()
		rd.Stop()
		dec.Stop()
		snk.Stop()
	}()

	runErr := g.Wait()

	rd.Close()
	dec.Close()
	snk.Close()
	// Sink.executeBody already closes the writer on natural end-of-stream;
	// only close it here when playback was cut short by a signal, so a
	// clean EOS never double-closes.
	if ctx.Err() != nil {
		if err := closeWriter(); err != nil {
			logger.Error("audiostream: closing sink writer", "error", err)
		}
	}
	return runErr
}

// waitForStop polls state until Running is false, then returns the
// worker's terminal error (nil if it stopped cleanly).
func waitForStop(ctx context.Context, state func() worker.State) error {
	for {
		s := state()
		if !s.Running {
			if s.Err != streamerr.None {
				return streamerr.New(s.Err, s.Cause)
			}
			return nil
		}
		select {
		case <-ctx.Done():
		case <-time.After(pollInterval):
		}
	}
}

// openWriter builds the sink.Writer selected by cfg's mutually exclusive
// -play/-raw/-wav flags, and returns a matching close function.
func openWriter(cfg config, spec media.StreamSpec) (sink.Writer, func() error, error) {
	switch {
	case cfg.playDevice != "":
		w, err := sink.OpenDeviceWriter(&engine.PlaybackDevice{}, cfg.playDevice, spec, defaultDeviceLatencyUs)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	case cfg.rawPath != "":
		w, err := sink.OpenFileRaw(spec, cfg.rawPath)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	default:
		w, err := sink.OpenFileWav(spec, cfg.wavPath)
		if err != nil {
			return nil, nil, err
		}
		return w, w.Close, nil
	}
}

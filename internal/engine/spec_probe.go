package engine

import (
	"fmt"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamerr"
)

// probeTimeout bounds how long probeSpec waits for uridecodebin to preroll
// before giving up on a URI that will never produce audio.
const probeTimeout = 10 * time.Second

// probeSpec runs a short-lived uridecodebin pipeline through PAUSED to
// discover the final negotiated PCM caps and stream duration, then tears
// the pipeline down. This is separate from the long-lived packet pipeline
// (buildPacketPipeline) because that one deliberately stops short of
// decoding; only a full decode reveals the actual sample format.
func probeSpec(uri string) (media.StreamSpec, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	defer pipeline.SetState(gst.StateNull)

	uridecodebin, err := gst.NewElement("uridecodebin")
	if err != nil {
		return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	uridecodebin.SetProperty("uri", uri)

	sink, err := app.NewAppSink()
	if err != nil {
		return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", false)

	pipeline.AddMany(uridecodebin, sink.Element)

	uridecodebin.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		caps := pad.GetCurrentCaps()
		if caps == nil || caps.GetSize() == 0 {
			return
		}
		if s := caps.GetStructureAt(0); s == nil || s.Name() != "audio/x-raw" {
			return
		}
		sinkPad := sink.GetStaticPad("sink")
		if sinkPad != nil && !sinkPad.IsLinked() {
			pad.Link(sinkPad)
		}
	})

	if err := pipeline.SetState(gst.StatePaused); err != nil {
		return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, err)
	}

	bus := pipeline.GetPipelineBus()
	deadline := time.Now().Add(probeTimeout)
	for time.Now().Before(deadline) {
		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageAsyncDone:
			return specFromPrerolledSink(pipeline, sink)
		case gst.MessageError:
			gerr := msg.ParseError()
			return media.StreamSpec{}, streamerr.New(classifyGError(gerr), fmt.Errorf("%s", gerr.Error()))
		case gst.MessageEOS:
			return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: probe reached EOS before preroll"))
		}
	}
	return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: probe timed out opening %s", uri))
}

func specFromPrerolledSink(pipeline *gst.Pipeline, sink *app.Sink) (media.StreamSpec, error) {
	sinkPad := sink.GetStaticPad("sink")
	caps := sinkPad.GetCurrentCaps()
	if caps == nil || caps.GetSize() == 0 {
		return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: no negotiated caps after preroll"))
	}
	s := caps.GetStructureAt(0)
	channels, _ := s.GetValue("channels")
	rate, _ := s.GetValue("rate")

	capsStr := caps.String()
	bitDepth := bitDepthFromCapsString(capsStr)

	durationNs, ok := pipeline.QueryDuration(gst.FormatTime)
	if !ok {
		durationNs = 0
	}

	ch, _ := channels.(int)
	hz, _ := rate.(int)
	if ch == 0 {
		ch = 2
	}
	if hz == 0 {
		hz = 44100
	}
	return specFromDiscovered(ch, hz, bitDepth, durationNs), nil
}

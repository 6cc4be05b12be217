package engine

import (
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/zsiec/audiostream/internal/streamerr"
)

// buildPacketPipeline constructs a uridecodebin pipeline whose
// autoplug-continue callback stops auto-plugging one stage short of
// decoding the selected audio pad: once the pad's caps name is an
// "audio/..." type other than "audio/x-raw", the parsed-but-compressed pad
// is exposed directly instead of having a decoder element plugged onto it.
// The exposed pad is linked to an appsink whose pulled buffers are the
// packets ReadPacket returns.
func buildPacketPipeline(uri string) (*gst.Pipeline, *app.Sink, error) {
	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, streamerr.New(streamerr.PcmFormatInvalid, err)
	}

	uridecodebin, err := gst.NewElement("uridecodebin")
	if err != nil {
		return nil, nil, streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	uridecodebin.SetProperty("uri", uri)

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, nil, streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 32)
	sink.SetProperty("drop", false)

	if err := pipeline.AddMany(uridecodebin, sink.Element); err != nil {
		return nil, nil, streamerr.New(streamerr.PcmFormatInvalid, err)
	}

	uridecodebin.Connect("autoplug-continue", func(_ *gst.Element, _ *gst.Pad, caps *gst.Caps) bool {
		if caps == nil || caps.GetSize() == 0 {
			return true
		}
		name := caps.GetStructureAt(0).Name()
		return !(strings.HasPrefix(name, "audio/") && name != "audio/x-raw")
	})

	uridecodebin.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		caps := pad.GetCurrentCaps()
		if caps == nil || caps.GetSize() == 0 {
			return
		}
		name := caps.GetStructureAt(0).Name()
		if !strings.HasPrefix(name, "audio/") {
			return
		}
		sinkPad := sink.GetStaticPad("sink")
		if sinkPad == nil || sinkPad.IsLinked() {
			return
		}
		if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
			return
		}
	})

	return pipeline, sink, nil
}

// errPipelineBuild wraps a stage-labeled construction failure for the
// pipelines built by Decoder and PlaybackDevice.
func errPipelineBuild(stage string, err error) error {
	return streamerr.New(streamerr.PcmCodecInvalid, fmt.Errorf("engine: build %s: %w", stage, err))
}

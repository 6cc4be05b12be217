package engine

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamerr"
)

// PlaybackDevice adapts an appsrc -> audioconvert -> audioresample -> sink
// pipeline to sink.Device. "default" (or "") selects autoaudiosink; any
// other name is passed to alsasink's "device" property, matching how the
// teacher's stream-capture module treats an empty acceleration hint as
// "let GStreamer choose".
type PlaybackDevice struct {
	pipeline  *gst.Pipeline
	src       *app.Source
	audiosink *gst.Element

	frameBytes  int
	sampleBytes int
}

// Open constructs the pipeline but leaves it in the NULL state; Configure
// starts it once the stream's format is known.
func (d *PlaybackDevice) Open(name string) error {
	initGst()

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return errPipelineBuild("pipeline", err)
	}
	src, err := app.NewAppSrc()
	if err != nil {
		return errPipelineBuild("appsrc", err)
	}
	src.SetProperty("format", gst.FormatTime)
	src.SetProperty("is-live", true)

	convert, err := gst.NewElement("audioconvert")
	if err != nil {
		return errPipelineBuild("audioconvert", err)
	}
	resample, err := gst.NewElement("audioresample")
	if err != nil {
		return errPipelineBuild("audioresample", err)
	}

	var audiosink *gst.Element
	if name == "" || name == "default" {
		audiosink, err = gst.NewElement("autoaudiosink")
	} else {
		audiosink, err = gst.NewElement("alsasink")
		if err == nil {
			audiosink.SetProperty("device", name)
		}
	}
	if err != nil {
		return errPipelineBuild("audiosink", err)
	}

	if err := pipeline.AddMany(src.Element, convert, resample, audiosink); err != nil {
		return errPipelineBuild("add", err)
	}
	if err := gst.ElementLinkMany(src.Element, convert, resample, audiosink); err != nil {
		return errPipelineBuild("link", err)
	}

	d.pipeline = pipeline
	d.src = src
	d.audiosink = audiosink
	return nil
}

// Configure sets the appsrc's caps to S32LE interleaved at spec's channel
// count and rate, applies latencyUs as the sink's target buffer latency,
// and starts playback. The caps do not depend on spec.Sample or
// spec.BitDepth: a 24-in-32 stream is played as S32LE, and no S24 format
// is negotiated.
func (d *PlaybackDevice) Configure(spec media.StreamSpec, latencyUs int) error {
	d.src.Element.SetProperty("caps", rawAudioCaps(spec.Channels, spec.SampleRate))
	d.frameBytes = spec.Sample.ContainerBytes() * spec.Channels
	d.sampleBytes = spec.Sample.ContainerBytes()

	d.audiosink.SetProperty("buffer-time", int64(latencyUs))
	if err := d.pipeline.SetState(gst.StatePlaying); err != nil {
		return errPipelineBuild("play", err)
	}
	return nil
}

// WriteInterleaved pushes data as a single buffer and reports the whole
// requested sampleCount accepted; appsrc.PushBuffer blocks on its own
// internal queue, giving the caller the backpressure it expects.
func (d *PlaybackDevice) WriteInterleaved(data []byte, sampleCount int) (int, error) {
	n := sampleCount * d.frameBytes
	if n > len(data) {
		n = len(data)
	}
	buf := gst.NewBufferFromBytes(data[:n])
	if ret := d.src.PushBuffer(buf); ret != gst.FlowOK {
		return 0, streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: device push failed: %v", ret))
	}
	return n / d.frameBytes, nil
}

// WritePlanar interleaves the channel planes into one buffer before
// pushing, since the playback pipeline is fixed to interleaved caps.
func (d *PlaybackDevice) WritePlanar(planes [][]byte, sampleCount int) (int, error) {
	channels := len(planes)
	out := make([]byte, sampleCount*d.sampleBytes*channels)
	for s := 0; s < sampleCount; s++ {
		for c := 0; c < channels; c++ {
			src := planes[c][s*d.sampleBytes : (s+1)*d.sampleBytes]
			dst := out[(s*channels+c)*d.sampleBytes:]
			copy(dst, src)
		}
	}
	buf := gst.NewBufferFromBytes(out)
	if ret := d.src.PushBuffer(buf); ret != gst.FlowOK {
		return 0, streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: device push failed: %v", ret))
	}
	return sampleCount, nil
}

// Recover clears an underrun by cycling the pipeline through PAUSED and
// back to PLAYING, the same recovery step GStreamer's own audio sinks
// expect after a buffer starvation.
func (d *PlaybackDevice) Recover() error {
	if err := d.pipeline.SetState(gst.StatePaused); err != nil {
		return streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	if err := d.pipeline.SetState(gst.StatePlaying); err != nil {
		return streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	return nil
}

// Drain blocks until the pipeline has played out all buffered audio.
func (d *PlaybackDevice) Drain() error {
	if d.pipeline == nil {
		return nil
	}
	if !d.src.EndOfStream() {
		return nil
	}
	bus := d.pipeline.GetPipelineBus()
	msg := bus.TimedPopFiltered(gst.ClockTimeNone, gst.MessageEOS|gst.MessageError)
	if msg != nil && msg.Type() == gst.MessageError {
		gerr := msg.ParseError()
		return streamerr.New(classifyGError(gerr), fmt.Errorf("%s", gerr.Error()))
	}
	return nil
}

func (d *PlaybackDevice) Close() error {
	if d.pipeline == nil {
		return nil
	}
	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	return nil
}

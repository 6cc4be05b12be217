package engine

import (
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamctx"
	"github.com/zsiec/audiostream/internal/streamerr"
)

// receiveTimeout bounds how long ReceiveFrame waits for a sample already in
// flight before reporting ErrAgain. Decoding happens asynchronously on
// GStreamer's own streaming thread relative to SendPacket, so a short wait
// lets an in-progress decode complete without blocking the caller
// indefinitely on a packet that will never produce output on its own (a
// codec's initial header packet, for instance).
const receiveTimeout = 50 * time.Millisecond

// Decoder adapts an appsrc -> decodebin -> capsfilter -> appsink pipeline to
// streamctx.Decoder. The capsfilter fixes the output to the S32LE
// interleaved wire format that specFromDiscovered reports for every
// stream, so internal/sink's
// transform table only ever sees one container width per open stream.
type Decoder struct {
	pipeline *gst.Pipeline
	src      *app.Source
	sink     *app.Sink

	spec media.StreamSpec

	frames chan *gst.Sample
}

// NewDecoder builds and starts a decode pipeline sized for spec (the
// StreamSpec discovered by Demuxer's probe).
func NewDecoder(spec media.StreamSpec) (*Decoder, error) {
	initGst()

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, errPipelineBuild("pipeline", err)
	}

	src, err := app.NewAppSrc()
	if err != nil {
		return nil, errPipelineBuild("appsrc", err)
	}
	src.SetProperty("format", gst.FormatTime)
	src.SetProperty("is-live", false)

	decodebin, err := gst.NewElement("decodebin")
	if err != nil {
		return nil, errPipelineBuild("decodebin", err)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, errPipelineBuild("capsfilter", err)
	}
	capsfilter.SetProperty("caps", rawAudioCaps(spec.Channels, spec.SampleRate))

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, errPipelineBuild("appsink", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 64)
	sink.SetProperty("drop", false)

	if err := pipeline.AddMany(src.Element, decodebin, capsfilter, sink.Element); err != nil {
		return nil, errPipelineBuild("add", err)
	}
	if err := src.Element.Link(decodebin); err != nil {
		return nil, errPipelineBuild("link appsrc->decodebin", err)
	}
	if err := gst.ElementLinkMany(capsfilter, sink.Element); err != nil {
		return nil, errPipelineBuild("link capsfilter->appsink", err)
	}

	decodebin.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
		sinkPad := capsfilter.GetStaticPad("sink")
		if sinkPad == nil || sinkPad.IsLinked() {
			return
		}
		pad.Link(sinkPad)
	})

	d := &Decoder{
		pipeline: pipeline,
		src:      src,
		sink:     sink,
		spec:     spec,
		frames:   make(chan *gst.Sample, 64),
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}
			select {
			case d.frames <- sample:
			default:
			}
			return gst.FlowOK
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, errPipelineBuild("play", err)
	}
	return d, nil
}

// SendPacket pushes pkt's compressed bytes into the appsrc. SendPacket does
// not free pkt; the caller retains ownership.
func (d *Decoder) SendPacket(pkt *media.Packet) error {
	buf := gst.NewBufferFromBytes(pkt.Data)
	buf.SetPresentationTimestamp(gst.ClockTime(pkt.PTS))
	buf.SetDuration(gst.ClockTime(pkt.Duration))
	if ret := d.src.PushBuffer(buf); ret != gst.FlowOK {
		return streamerr.New(streamerr.PcmCodecInvalid, nil)
	}
	return nil
}

// ReceiveFrame pulls the next decoded PCM buffer, waiting up to
// receiveTimeout for one already in flight. Returns streamctx.ErrAgain when
// none arrives in that window.
func (d *Decoder) ReceiveFrame() (*media.Frame, error) {
	select {
	case sample, ok := <-d.frames:
		if !ok || sample == nil {
			return nil, streamctx.ErrAgain
		}
		return frameFromSample(sample, d.spec)
	case <-time.After(receiveTimeout):
		return nil, streamctx.ErrAgain
	}
}

func frameFromSample(sample *gst.Sample, spec media.StreamSpec) (*media.Frame, error) {
	buf := sample.GetBuffer()
	if buf == nil {
		return nil, streamerr.New(streamerr.PcmCodecInvalid, nil)
	}
	mapInfo := buf.Map(gst.MapRead)
	data := make([]byte, len(mapInfo.Bytes()))
	copy(data, mapInfo.Bytes())
	buf.Unmap()

	frameBytes := spec.Sample.ContainerBytes() * spec.Channels
	sampleCount := 0
	if frameBytes > 0 {
		sampleCount = len(data) / frameBytes
	}
	pts := int64(buf.PresentationTimestamp())
	return media.NewInterleavedFrame(pts, sampleCount, spec.Channels, data, nil), nil
}

// Flush drops any queued samples and issues a flushing seek to position 0
// on the decode pipeline, discarding buffered input/output state, matching
// the seek protocol's
// expectation that a decoder Flush leaves it ready for fresh packets.
func (d *Decoder) Flush() error {
	drain(d.frames)
	if !d.pipeline.SeekSimple(gst.FormatTime, gst.SeekFlagFlush, 0) {
		return streamerr.New(streamerr.PcmCodecInvalid, nil)
	}
	return nil
}

func drain(ch chan *gst.Sample) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func (d *Decoder) Close() error {
	if d.pipeline == nil {
		return nil
	}
	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return streamerr.New(streamerr.PcmCodecInvalid, err)
	}
	return nil
}

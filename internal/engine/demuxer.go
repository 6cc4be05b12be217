package engine

import (
	"fmt"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/streamerr"
)

// Demuxer adapts a GStreamer uridecodebin, arrested one stage short of
// decoding, to streamctx.Demuxer. Open runs two pipelines: a short-lived
// probe pipeline that lets uridecodebin auto-decode long enough to discover
// the final PCM format and duration, and the long-lived packet pipeline
// that stops uridecodebin's auto-plugging at the parsed-but-not-decoded
// stage via an autoplug-continue callback, delivering compressed packets to
// ReadPacket.
type Demuxer struct {
	uri string

	pipeline *gst.Pipeline
	sink     *app.Sink

	spec        media.StreamSpec
	streamIndex int

	samples chan *gst.Sample
}

// Open builds and starts both pipelines for uri, returning a ready-to-read
// Demuxer. The stream index reported is always 0: this module selects the
// URI's sole (or first) audio stream, matching uridecodebin's own default
// auto-selection.
func Open(uri string) (*Demuxer, error) {
	initGst()

	spec, err := probeSpec(uri)
	if err != nil {
		return nil, err
	}

	pipeline, sink, err := buildPacketPipeline(uri)
	if err != nil {
		return nil, err
	}

	d := &Demuxer{
		uri:      uri,
		pipeline: pipeline,
		sink:     sink,
		spec:     spec,
		samples:  make(chan *gst.Sample, 4),
	}

	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: func(s *app.Sink) gst.FlowReturn {
			sample := s.PullSample()
			if sample == nil {
				return gst.FlowEOS
			}
			select {
			case d.samples <- sample:
			default:
				// The bounded packet DBQ downstream is the real backpressure
				// point; a full appsink queue here just means the Reader
				// hasn't drained yet, so drop rather than block GStreamer's
				// own streaming thread.
			}
			return gst.FlowOK
		},
		EOSFunc: func(s *app.Sink) {
			close(d.samples)
		},
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	return d, nil
}

func (d *Demuxer) StreamIndex() int       { return d.streamIndex }
func (d *Demuxer) Spec() media.StreamSpec { return d.spec }

// ReadPacket pulls the next parsed-but-undecoded buffer from the packet
// pipeline's appsink and wraps it as a media.Packet. Returns (nil, nil) once
// the appsink callback closes the sample channel on EOS.
func (d *Demuxer) ReadPacket() (*media.Packet, error) {
	sample, ok := <-d.samples
	if !ok {
		return nil, nil
	}
	buf := sample.GetBuffer()
	if buf == nil {
		return nil, streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: nil buffer from appsink"))
	}
	mapInfo := buf.Map(gst.MapRead)
	data := make([]byte, len(mapInfo.Bytes()))
	copy(data, mapInfo.Bytes())
	buf.Unmap()

	pts := int64(buf.PresentationTimestamp())
	dur := int64(buf.Duration())
	return media.NewPacket(d.streamIndex, pts, dur, data, nil), nil
}

// SeekTo issues a flushing seek on the packet pipeline. backward selects a
// keyframe-accurate seek (GST_SEEK_FLAG_KEY_UNIT) instead of the default
// accurate-but-slower forward seek.
func (d *Demuxer) SeekTo(pts int64, backward bool) error {
	flags := gst.SeekFlagFlush
	if backward {
		flags |= gst.SeekFlagKeyUnit
	} else {
		flags |= gst.SeekFlagAccurate
	}
	if !d.pipeline.SeekSimple(gst.FormatTime, flags, pts) {
		return streamerr.New(streamerr.PcmFormatInvalid, fmt.Errorf("engine: seek to %d failed", pts))
	}
	return nil
}

func (d *Demuxer) Close() error {
	if d.pipeline == nil {
		return nil
	}
	if err := d.pipeline.SetState(gst.StateNull); err != nil {
		return streamerr.New(streamerr.PcmFormatInvalid, err)
	}
	return nil
}

package sink

import "github.com/zsiec/audiostream/internal/media"

// Device is the narrow surface Sink needs from a playback engine.
// internal/engine's GStreamer-backed adapter implements this.
type Device interface {
	Open(name string) error
	// Configure negotiates the device's format/layout from spec (mapping
	// S32-with-24-bit-depth to the device's dedicated S24 format where
	// supported) and applies latencyUs as the target buffer latency.
	// Configure itself does not drain; OpenDeviceWriter calls Drain
	// before Configure.
	Configure(spec media.StreamSpec, latencyUs int) error
	// WriteInterleaved and WritePlanar block until some samples are
	// accepted or an error occurs, returning the count actually accepted
	// (which may be less than requested).
	WriteInterleaved(data []byte, sampleCount int) (int, error)
	WritePlanar(planes [][]byte, sampleCount int) (int, error)
	// Recover attempts to clear an underrun or transient device error.
	Recover() error
	Drain() error
	Close() error
}

// DeviceWriter adapts a Device to the Writer contract, iterating a frame's
// samples until all are accepted, retrying once via Recover on a transient
// write failure before giving up.
type DeviceWriter struct {
	dev          Device
	layout       media.Layout
	frameBytes   int // interleaved stride: channels * container bytes
	sampleBytes  int // planar per-channel stride: container bytes
	planeScratch [][]byte // planar pointer scratch, sized to channel count at open, reused per write
}

// OpenDeviceWriter opens name, configures it for spec at the given target
// latency, and returns a Writer ready for the Sink's body loop.
func OpenDeviceWriter(dev Device, name string, spec media.StreamSpec, latencyUs int) (*DeviceWriter, error) {
	if err := dev.Open(name); err != nil {
		return nil, err
	}
	if err := dev.Drain(); err != nil {
		dev.Close()
		return nil, err
	}
	if err := dev.Configure(spec, latencyUs); err != nil {
		dev.Close()
		return nil, err
	}
	bw := spec.Sample.ContainerBytes()
	w := &DeviceWriter{
		dev:         dev,
		layout:      spec.Layout,
		frameBytes:  bw * spec.Channels,
		sampleBytes: bw,
	}
	if spec.Layout == media.Planar {
		w.planeScratch = make([][]byte, spec.Channels)
	}
	return w, nil
}

// Write iterates until sample_count samples have been accepted by the
// device. On an underrun or transient failure it invokes Recover once and
// retries; a second consecutive failure is returned to the caller.
func (w *DeviceWriter) Write(f *media.Frame) error {
	accepted := 0
	recovered := false
	for accepted < f.SampleCount {
		remaining := f.SampleCount - accepted
		n, err := w.writeChunk(f, accepted, remaining)
		if err != nil {
			if recovered {
				return err
			}
			if rerr := w.dev.Recover(); rerr != nil {
				return err
			}
			recovered = true
			continue
		}
		recovered = false
		accepted += n
	}
	return nil
}

func (w *DeviceWriter) writeChunk(f *media.Frame, accepted, remaining int) (int, error) {
	if w.layout == media.Interleaved {
		offset := accepted * w.frameBytes
		return w.dev.WriteInterleaved(f.Data[offset:], remaining)
	}
	offset := accepted * w.sampleBytes
	for i, p := range f.Planes {
		w.planeScratch[i] = p[offset:]
	}
	return w.dev.WritePlanar(w.planeScratch, remaining)
}

// Close drains pending playback and closes the device.
func (w *DeviceWriter) Close() error {
	if err := w.dev.Drain(); err != nil {
		w.dev.Close()
		return err
	}
	return w.dev.Close()
}

package sink

import (
	"errors"
	"testing"

	"github.com/zsiec/audiostream/internal/media"
)

type fakeDevice struct {
	opened       bool
	configured   media.StreamSpec
	drainCalls   int
	closeCalls   int
	recoverCalls int
	failOnce     bool
	writes       [][]byte
}

func (d *fakeDevice) Open(name string) error { d.opened = true; return nil }
func (d *fakeDevice) Configure(spec media.StreamSpec, latencyUs int) error {
	d.configured = spec
	return nil
}
func (d *fakeDevice) WriteInterleaved(data []byte, sampleCount int) (int, error) {
	if d.failOnce {
		d.failOnce = false
		return 0, errors.New("underrun")
	}
	d.writes = append(d.writes, append([]byte(nil), data...))
	return sampleCount, nil
}
func (d *fakeDevice) WritePlanar(planes [][]byte, sampleCount int) (int, error) {
	return sampleCount, nil
}
func (d *fakeDevice) Recover() error { d.recoverCalls++; return nil }
func (d *fakeDevice) Drain() error   { d.drainCalls++; return nil }
func (d *fakeDevice) Close() error   { d.closeCalls++; return nil }

func deviceTestSpec() media.StreamSpec {
	return media.StreamSpec{
		Sample: media.SampleS16, Layout: media.Interleaved,
		Timebase: media.Rational{Num: 1, Den: 44100}, Duration: 1000,
		BitDepth: 16, Channels: 2, SampleRate: 44100,
	}
}

func TestOpenDeviceWriterConfiguresAndDrainsFirst(t *testing.T) {
	dev := &fakeDevice{}
	spec := deviceTestSpec()
	w, err := OpenDeviceWriter(dev, "default", spec, 20000)
	if err != nil {
		t.Fatal(err)
	}
	if !dev.opened {
		t.Fatal("expected device opened")
	}
	if dev.drainCalls != 1 {
		t.Fatalf("expected one drain before configure, got %d", dev.drainCalls)
	}
	if dev.configured.SampleRate != spec.SampleRate {
		t.Fatal("expected device configured with the stream spec")
	}
	_ = w
}

func TestDeviceWriterWritesFullFrame(t *testing.T) {
	dev := &fakeDevice{}
	spec := deviceTestSpec()
	w, err := OpenDeviceWriter(dev, "default", spec, 20000)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 4*4) // 4 samples * 2 channels * 2 bytes
	if err := w.Write(media.NewInterleavedFrame(0, 4, 2, data, nil)); err != nil {
		t.Fatal(err)
	}
	if len(dev.writes) != 1 {
		t.Fatalf("expected one accepted write, got %d", len(dev.writes))
	}
}

func TestDeviceWriterRecoversOnceThenRetries(t *testing.T) {
	dev := &fakeDevice{failOnce: true}
	spec := deviceTestSpec()
	w, err := OpenDeviceWriter(dev, "default", spec, 20000)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, 4*4)
	if err := w.Write(media.NewInterleavedFrame(0, 4, 2, data, nil)); err != nil {
		t.Fatalf("expected recovery to succeed, got %v", err)
	}
	if dev.recoverCalls != 1 {
		t.Fatalf("expected exactly one recover call, got %d", dev.recoverCalls)
	}
}

func TestDeviceWriterCloseDrainsThenCloses(t *testing.T) {
	dev := &fakeDevice{}
	spec := deviceTestSpec()
	w, err := OpenDeviceWriter(dev, "default", spec, 20000)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if dev.drainCalls != 2 { // one from open (idempotent contract), one from close
		t.Fatalf("expected two drain calls total, got %d", dev.drainCalls)
	}
	if dev.closeCalls != 1 {
		t.Fatalf("expected one close call, got %d", dev.closeCalls)
	}
}

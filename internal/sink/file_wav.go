package sink

import (
	"fmt"
	"os"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/wave"
)

// FileWav writes a RIFF/WAVE file: the fixed header is emitted in full at
// open and the PCM region pre-reserved with zero bytes, so later sequential
// PCM writes need no size-field patching at close.
type FileWav struct {
	f         *os.File
	transform Transform
	scratch   []byte
	header    wave.Header
}

// OpenFileWav truncate-creates path, writes the WAVE header for spec, and
// pre-reserves the data region.
func OpenFileWav(spec media.StreamSpec, path string) (*FileWav, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: open wav file: %w", err)
	}
	header := wave.Build(spec)
	if _, err := header.WriteTo(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: write wav header: %w", err)
	}
	if err := wave.ReserveDataRegion(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("sink: reserve wav data region: %w", err)
	}
	return &FileWav{f: f, transform: NewTransform(spec), header: header}, nil
}

// Write transforms the frame into PCM bytes and appends them into the
// pre-reserved data region. If the source overruns the predicted sample
// count, writes past the reserved region still succeed (the file simply
// grows); the header's data_size field remains authoritative per the
// sink's own contract.
func (w *FileWav) Write(f *media.Frame) error {
	w.scratch = w.transform(f, w.scratch)
	_, err := w.f.Write(w.scratch)
	return err
}

func (w *FileWav) Close() error {
	return w.f.Close()
}

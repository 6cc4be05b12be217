package sink

import (
	"fmt"
	"os"

	"github.com/zsiec/audiostream/internal/media"
)

// FileRaw writes a sidecar `<path>.meta` text file plus a truncated raw PCM
// body, per the file-raw sink's byte layout.
type FileRaw struct {
	f         *os.File
	transform Transform
	scratch   []byte
}

// OpenFileRaw writes the sidecar metadata file, then opens path for
// truncated binary write.
func OpenFileRaw(spec media.StreamSpec, path string) (*FileRaw, error) {
	meta := fmt.Sprintf(
		".format=%d\n.timebase.num=%d\n.timebase.den=%d\n.duration=%d\n.bitdepth=%d\n.channels=%d\n.rate=%d\n",
		int(spec.Sample), spec.Timebase.Num, spec.Timebase.Den, spec.Duration,
		spec.BitDepth, spec.Channels, spec.SampleRate,
	)
	if err := os.WriteFile(path+".meta", []byte(meta), 0o644); err != nil {
		return nil, fmt.Errorf("sink: write raw sidecar: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("sink: open raw data file: %w", err)
	}
	return &FileRaw{f: f, transform: NewTransform(spec)}, nil
}

// Write transforms the frame into PCM bytes per the sink's byte-layout
// contract and appends them to the data file.
func (r *FileRaw) Write(f *media.Frame) error {
	r.scratch = r.transform(f, r.scratch)
	_, err := r.f.Write(r.scratch)
	return err
}

// Close closes the data file. The sidecar metadata file was already
// complete at open.
func (r *FileRaw) Close() error {
	return r.f.Close()
}

package engine

import "github.com/zsiec/audiostream/internal/streamctx"

// OpenStream is the streamctx.Opener this module wires into streamctx.New: it opens
// the demuxer first (which probes and reports the final stream format),
// then builds the decode pipeline sized for that format.
var _ streamctx.Opener = OpenStream

func OpenStream(uri string) (streamctx.Demuxer, streamctx.Decoder, error) {
	demuxer, err := Open(uri)
	if err != nil {
		return nil, nil, err
	}
	decoder, err := NewDecoder(demuxer.Spec())
	if err != nil {
		demuxer.Close()
		return nil, nil, err
	}
	return demuxer, decoder, nil
}

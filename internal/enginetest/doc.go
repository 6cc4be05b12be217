// Package enginetest provides shared in-memory fakes for
// streamctx.Demuxer, streamctx.Decoder, and sink.Device, standing in for
// internal/engine's GStreamer-backed adapters in tests that exercise more
// than one package's worker wired together (Reader+Decoder+Sink through a
// real streamctx.Context). Package-local tests that only need a narrow
// slice of this behavior keep their own minimal fakes rather than importing
// this package, matching the teacher's own per-package test-double style;
// enginetest exists for the cross-package, pipeline-shaped cases.
package enginetest

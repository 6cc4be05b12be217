// Package ramfile implements the TCP RAM-file source: a worker that fills
// a byte buffer in the background from a TCP connection while exposing a
// seekable, blocking random-access read interface to a demuxer.
package ramfile

// Package sink implements the Sink worker: it pops frames from a Context's
// frame queue and writes them out via one of three concrete Writer
// implementations — file-raw, file-wav, or a playback device — chosen at
// open time and shared behind the common Sink body loop.
package sink

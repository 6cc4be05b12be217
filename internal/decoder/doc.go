// Package decoder implements the Decoder worker: it pulls packets from a
// Context's packet queue, submits them to the Context's decoder, and pushes
// the resulting frames onto the frame queue.
package decoder

// Package streamctx implements the shared stream context: the owner of at
// most one (demuxer, decoder, stream-index) triple plus the packet and
// frame queues that the Reader, Decoder, and Sink workers operate against.
//
// Two independent mutexes guard the demuxer and decoder handles so a Reader
// body (holding the format mutex) and a Decoder body (holding the decoder
// mutex) can run concurrently. Open and Close, which must invalidate both
// handles together, always acquire format before decoder — the same order
// the seek protocol uses when it must also flush the decoder's buffers.
// Acquiring in the reverse order anywhere would deadlock against a
// concurrent Open/Close/seek.
package streamctx

package streamctx

import (
	"sync"

	"github.com/zsiec/audiostream/internal/media"
	"github.com/zsiec/audiostream/internal/queue"
	"github.com/zsiec/audiostream/internal/streamerr"
)

// DefaultQueueCapacity is the per-buffer capacity used for both the packet
// and frame queues unless overridden by Options.
const DefaultQueueCapacity = 1024

// Opener constructs a (Demuxer, Decoder) pair for a URL. internal/engine
// supplies the GStreamer-backed implementation used by cmd/audiostream;
// tests inject a fake.
type Opener func(url string) (Demuxer, Decoder, error)

// Options configures queue capacities. The zero value uses
// DefaultQueueCapacity for both queues.
type Options struct {
	PacketQueueCapacity int
	FrameQueueCapacity  int
}

// Context owns at most one (demuxer, decoder, stream-index) triple plus the
// packet and frame queues shared by the Reader, Decoder, and Sink workers.
// Open and Close keep demuxer and decoder either both valid or both nil,
// with streamIndex >=0 iff both are valid. DecoderGuard.Invalidate is the
// exception: it clears only the decoder, leaving the demuxer and stream
// index in place until the next Open or Close.
type Context struct {
	open Opener

	formatMu  sync.Mutex
	demuxer   Demuxer
	streamIdx int

	decoderMu sync.Mutex
	decoder   Decoder

	packets *queue.DBQ[*media.Packet]
	frames  *queue.DBQ[*media.Frame]
}

// New creates an unopened Context. opener is invoked by Open to produce the
// concrete demuxer/decoder pair.
func New(opener Opener, opts Options) *Context {
	pcap := opts.PacketQueueCapacity
	if pcap <= 0 {
		pcap = DefaultQueueCapacity
	}
	fcap := opts.FrameQueueCapacity
	if fcap <= 0 {
		fcap = DefaultQueueCapacity
	}
	return &Context{
		open:      opener,
		streamIdx: -1,
		packets:   queue.New[*media.Packet](pcap),
		frames:    queue.New[*media.Frame](fcap),
	}
}

// Open closes any prior demuxer/decoder, flushes both queues, then opens
// url via the configured Opener. On any failure partial state is rolled
// back and both handles remain nil.
func (c *Context) Open(url string) error {
	c.formatMu.Lock()
	defer c.formatMu.Unlock()
	c.decoderMu.Lock()
	defer c.decoderMu.Unlock()

	c.closeLocked()
	c.packets.Flush(freePacket)
	c.frames.Flush(freeFrame)

	demux, dec, err := c.open(url)
	if err != nil {
		return err
	}
	c.demuxer = demux
	c.decoder = dec
	c.streamIdx = demux.StreamIndex()
	return nil
}

// Close frees both handles, invalidates the stream index, and flushes both
// queues. Safe to call on an already-closed or never-opened Context.
func (c *Context) Close() {
	c.formatMu.Lock()
	defer c.formatMu.Unlock()
	c.decoderMu.Lock()
	defer c.decoderMu.Unlock()

	c.closeLocked()
	c.packets.Flush(freePacket)
	c.frames.Flush(freeFrame)
}

// closeLocked requires both formatMu and decoderMu held.
func (c *Context) closeLocked() {
	if c.decoder != nil {
		c.decoder.Close()
		c.decoder = nil
	}
	if c.demuxer != nil {
		c.demuxer.Close()
		c.demuxer = nil
	}
	c.streamIdx = -1
}

// GetStreamSpec returns a snapshot of the current stream parameters. Fails
// if the Context has no valid demuxer.
func (c *Context) GetStreamSpec() (media.StreamSpec, error) {
	c.formatMu.Lock()
	defer c.formatMu.Unlock()
	if c.demuxer == nil {
		return media.StreamSpec{}, streamerr.New(streamerr.PcmFormatInvalid, nil)
	}
	return c.demuxer.Spec(), nil
}

// FormatGuard is returned by LockFormat: Demuxer and StreamIndex report the
// currently held handle, Valid reports whether the guard actually holds a
// live demuxer (a false guard still must be released via Release).
type FormatGuard struct {
	ctx         *Context
	Demuxer     Demuxer
	StreamIndex int
	Valid       bool
}

// Release unlocks the format mutex. Safe to call exactly once per guard.
func (g FormatGuard) Release() {
	g.ctx.formatMu.Unlock()
}

// LockFormat acquires exclusive access to the demuxer handle for the
// duration of the returned guard's lifetime. The caller must call
// guard.Release() exactly once, even when guard.Valid is false.
func (c *Context) LockFormat() FormatGuard {
	c.formatMu.Lock()
	return FormatGuard{ctx: c, Demuxer: c.demuxer, StreamIndex: c.streamIdx, Valid: c.demuxer != nil}
}

// DecoderGuard is returned by LockDecoder, mirroring FormatGuard.
type DecoderGuard struct {
	ctx     *Context
	Decoder Decoder
	Valid   bool
}

// Release unlocks the decoder mutex. Safe to call exactly once per guard.
func (g DecoderGuard) Release() {
	g.ctx.decoderMu.Unlock()
}

// Invalidate clears the Context's decoder handle. Callable only while the
// guard's lock is held (i.e. before Release), used by the Decoder worker
// when a fatal decode error requires releasing the native decoder.
func (g DecoderGuard) Invalidate() {
	g.ctx.decoder = nil
}

// LockDecoder acquires exclusive access to the decoder handle. The caller
// must call guard.Release() exactly once, even when guard.Valid is false.
func (c *Context) LockDecoder() DecoderGuard {
	c.decoderMu.Lock()
	return DecoderGuard{ctx: c, Decoder: c.decoder, Valid: c.decoder != nil}
}

// PacketQueue returns the owned packet DBQ.
func (c *Context) PacketQueue() *queue.DBQ[*media.Packet] {
	return c.packets
}

// FrameQueue returns the owned frame DBQ.
func (c *Context) FrameQueue() *queue.DBQ[*media.Frame] {
	return c.frames
}

func freePacket(p *media.Packet) {
	p.Free()
}

func freeFrame(f *media.Frame) {
	f.Free()
}

package ramfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/zsiec/audiostream/internal/streamerr"
	"github.com/zsiec/audiostream/internal/worker"
)

// DefaultBlockSize is the chunk size the background prefetch body reads per
// iteration when none is given.
const DefaultBlockSize = 64 * 1024

// RAMFile is a seekable random-access byte source backed by a RAM buffer
// filled in the background from a TCP connection. Invariant: 0 <= readPos
// <= recvPos <= fileSize at every observable moment.
type RAMFile struct {
	conn      *TCPConn
	fileSize  int64
	blockSize int

	mu      sync.Mutex
	cond    *sync.Cond
	recvPos int64
	readPos int64
	buf     []byte
	closed  bool

	readMu sync.Mutex // serializes concurrent Read/ReadN callers

	rt *worker.Runtime
}

// OpenClient dials addr as a TCP client, performs the size handshake, and
// returns a RAMFile ready for Start.
func OpenClient(addr string, blockSize int) (*RAMFile, error) {
	conn, err := Dial(addr)
	if err != nil {
		return nil, streamerr.New(streamerr.NetConnectFail, err)
	}
	return open(conn, blockSize)
}

// OpenServer listens on addr, accepts a single connection, performs the
// size handshake, and returns a RAMFile ready for Start.
func OpenServer(addr string, blockSize int) (*RAMFile, error) {
	conn, err := Listen(addr)
	if err != nil {
		return nil, streamerr.New(streamerr.NetConnectFail, err)
	}
	return open(conn, blockSize)
}

// open performs the handshake common to both roles: receive an 8-byte
// little-endian file size, allocate the backing buffer, and construct the
// prefetch worker. Neither TCP role — dialer or listener — is assumed to be
// the file's sender; whichever peer wrote the size drives the rest of the
// stream, and this side is always the receiver.
func open(conn *TCPConn, blockSize int) (*RAMFile, error) {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	var sizeBuf [8]byte
	if !conn.Recv(sizeBuf[:]) {
		conn.Close()
		return nil, streamerr.New(streamerr.NetConnectFail, errors.New("ramfile: size handshake failed"))
	}
	fileSize := int64(binary.LittleEndian.Uint64(sizeBuf[:]))
	rf := &RAMFile{
		conn:      conn,
		fileSize:  fileSize,
		blockSize: blockSize,
		buf:       make([]byte, fileSize),
	}
	rf.cond = sync.NewCond(&rf.mu)
	rf.rt = worker.New(rf.executeBody)
	return rf, nil
}

// Start begins the background prefetch body.
func (rf *RAMFile) Start(handler worker.Handler) { rf.rt.Start(handler) }

// State returns the prefetch worker's state; while the worker runs,
// Timestamp reports bytes received so far. Stopping, including the
// automatic stop once the whole file has arrived, resets it to 0.
func (rf *RAMFile) State() worker.State { return rf.rt.State() }

// FileSize returns the negotiated total size in bytes.
func (rf *RAMFile) FileSize() int64 { return rf.fileSize }

// executeBody reads up to blockSize bytes directly into the backing buffer
// at the current receive position. On success it advances recvPos and
// wakes any blocked Read/Seek callers. On transmit failure it pauses
// without closing, allowing external diagnosis before a retry or Close.
func (rf *RAMFile) executeBody(rt *worker.Runtime) {
	rf.mu.Lock()
	pos := rf.recvPos
	rf.mu.Unlock()

	if pos >= rf.fileSize {
		rt.StopBody(streamerr.None, nil)
		return
	}

	n := int64(rf.blockSize)
	if remaining := rf.fileSize - pos; n > remaining {
		n = remaining
	}
	if !rf.conn.Recv(rf.buf[pos : pos+n]) {
		rt.PauseBody(streamerr.NetTxFail, errors.New("ramfile: recv failed"))
		return
	}

	rf.mu.Lock()
	rf.recvPos += n
	rf.cond.Broadcast()
	rf.mu.Unlock()
	rt.AdvanceTimestamp(rf.recvPos)
}

// ReadN clamps size to the bytes remaining before file_size, then blocks
// until at least that many bytes have been received (or the connection is
// closed, in which case it returns 0). A size of 0 returns 0 immediately
// without blocking.
func (rf *RAMFile) ReadN(buf []byte, size int) (int, error) {
	if size == 0 {
		return 0, nil
	}
	rf.readMu.Lock()
	defer rf.readMu.Unlock()

	rf.mu.Lock()
	defer rf.mu.Unlock()

	remaining := rf.fileSize - rf.readPos
	if remaining <= 0 {
		return 0, nil
	}
	if int64(size) > remaining {
		size = int(remaining)
	}
	for rf.recvPos-rf.readPos < int64(size) {
		if rf.closed {
			return 0, nil
		}
		rf.cond.Wait()
	}
	n := copy(buf, rf.buf[rf.readPos:rf.readPos+int64(size)])
	rf.readPos += int64(n)
	return n, nil
}

// Read implements io.Reader over ReadN, letting a RAMFile be handed
// directly to a demuxer expecting a generic byte source.
func (rf *RAMFile) Read(p []byte) (int, error) {
	n, err := rf.ReadN(p, len(p))
	if err == nil && n == 0 && len(p) > 0 {
		rf.mu.Lock()
		atEOF := rf.readPos >= rf.fileSize
		rf.mu.Unlock()
		if atEOF {
			return 0, io.EOF
		}
	}
	return n, err
}

// Seek converts offset/whence into an absolute position, rejecting
// out-of-range targets, then blocks until enough data has been received to
// satisfy it. Seeking beyond currently received data therefore blocks,
// which is the contract the consuming demuxer relies on.
func (rf *RAMFile) Seek(offset int64, whence int) (int64, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = rf.readPos + offset
	case io.SeekEnd:
		pos = rf.fileSize + offset
	default:
		return 0, fmt.Errorf("ramfile: invalid whence %d", whence)
	}
	if pos < 0 || pos > rf.fileSize {
		return 0, fmt.Errorf("ramfile: seek target %d out of range [0,%d]", pos, rf.fileSize)
	}
	for rf.recvPos < pos {
		if rf.closed {
			return 0, errors.New("ramfile: closed")
		}
		rf.cond.Wait()
	}
	rf.readPos = pos
	return pos, nil
}

// Close closes the TCP connection (unblocking the background worker and any
// Read/Seek waiters), stops the prefetch worker, and releases its
// goroutine.
func (rf *RAMFile) Close() error {
	rf.mu.Lock()
	rf.closed = true
	rf.cond.Broadcast()
	rf.mu.Unlock()

	err := rf.conn.Close()
	rf.rt.Stop()
	rf.rt.Close()
	return err
}

package ramfile

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// TCPConn is the framing primitive the RAM-file source is built on: a TCP
// connection with one mutex serializing connect/close and a separate mutex
// serializing message I/O, so Close can abort an in-flight blocking
// Recv/Send by invalidating the descriptor out from under it.
type TCPConn struct {
	connMu sync.Mutex
	conn   net.Conn

	ioMu sync.Mutex
}

// Dial connects to addr as a client.
func Dial(addr string) (*TCPConn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ramfile: dial %s: %w", addr, err)
	}
	return &TCPConn{conn: c}, nil
}

// Listen accepts a single client connection on the given TCP address (e.g.
// ":9000") and returns once one has connected.
func Listen(addr string) (*TCPConn, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ramfile: listen %s: %w", addr, err)
	}
	defer ln.Close()
	c, err := ln.Accept()
	if err != nil {
		return nil, fmt.Errorf("ramfile: accept: %w", err)
	}
	return &TCPConn{conn: c}, nil
}

// Close shuts down the connection, unblocking any in-flight Recv/Send.
func (t *TCPConn) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCPConn) currentConn() net.Conn {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.conn
}

// Recv reads exactly len(buf) bytes, retrying on interrupts, blocking until
// complete. Returns false on peer EOF (a short read on a length-framed
// protocol is treated as failure, not partial success).
func (t *TCPConn) Recv(buf []byte) bool {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	conn := t.currentConn()
	if conn == nil {
		return false
	}
	_, err := io.ReadFull(conn, buf)
	return err == nil
}

// Send writes exactly len(buf) bytes, retrying on interrupts, blocking
// until complete.
func (t *TCPConn) Send(buf []byte) bool {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	conn := t.currentConn()
	if conn == nil {
		return false
	}
	_, err := conn.Write(buf)
	return err == nil
}

// RecvTimeout behaves like Recv but gives up after d, treating a timeout as
// a retryable poll rather than an error — a caller looping on RecvTimeout
// simply calls again.
func (t *TCPConn) RecvTimeout(buf []byte, d time.Duration) (bool, error) {
	t.ioMu.Lock()
	defer t.ioMu.Unlock()
	conn := t.currentConn()
	if conn == nil {
		return false, errors.New("ramfile: connection closed")
	}
	if err := conn.SetReadDeadline(time.Now().Add(d)); err != nil {
		return false, err
	}
	defer conn.SetReadDeadline(time.Time{})
	_, err := io.ReadFull(conn, buf)
	if err == nil {
		return true, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false, nil
	}
	return false, err
}

package transport

import (
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/CMihai998/wg-dynamic/protocol"
)

// RecvBufSize is the steady-state read chunk. The read buffer carries
// one extra MaxLineSize so a single feed never needs more than one
// stash/resume cycle per read.
const RecvBufSize = 8192

// SendResult is the outcome of a non-blocking write attempt.
type SendResult uint8

const (
	// SendFlushed means every byte reached the socket.
	SendFlushed SendResult = iota

	// SendPending means the socket would block; the unwritten remainder
	// is stashed and should be flushed when the socket turns writable.
	SendPending

	// SendFailed means a hard write error; the connection is beyond
	// saving and should be torn down.
	SendFailed
)

// Conn owns the per-connection state: the non-blocking socket, the
// request being accumulated, and any response bytes the socket refused
// to take. A Conn is driven by a single readiness loop and is not safe
// for concurrent use.
type Conn struct {
	fd   int
	peer string

	req     *protocol.Request
	pending []byte

	// closeAfterFlush is set by the server when a handler finished the
	// connection while response bytes were still pending.
	closeAfterFlush bool

	log *zap.Logger
}

func newConn(fd int, peer string, log *zap.Logger) *Conn {
	return &Conn{
		fd:   fd,
		peer: peer,
		req:  protocol.NewRequest(),
		log:  log,
	}
}

// Request exposes the in-flight request for handlers.
func (c *Conn) Request() *protocol.Request {
	return c.req
}

// Peer returns the remote address the connection was accepted from.
func (c *Conn) Peer() string {
	return c.peer
}

// HasPending reports whether response bytes are waiting for the socket
// to turn writable.
func (c *Conn) HasPending() bool {
	return len(c.pending) > 0
}

// Pump reads off the socket until it would block, a full message is
// seen, or the peer goes away. It returns true iff the connection is
// finished: either a continuation said so, the peer disconnected, or
// the read failed hard. False means "wait for the next readiness
// event".
func (c *Conn) Pump(onComplete func(*Conn) bool, onError func(*Conn, error) bool) bool {
	var buf [RecvBufSize + protocol.MaxLineSize]byte

	for {
		n, err := unix.Read(c.fd, buf[:RecvBufSize])
		switch {
		case err == unix.EAGAIN:
			return false

		case err == unix.EINTR:
			continue

		case err != nil:
			c.log.Debug("Read failed", zap.String("peer", c.peer), zap.Error(err))
			return true

		case n == 0:
			c.log.Debug("Peer disconnected", zap.String("peer", c.peer))
			return true
		}

		outcome, ferr := c.req.Feed(buf[:n])
		if ferr != nil {
			return onError(c, ferr)
		}

		if outcome == protocol.Complete {
			return onComplete(c)
		}
	}
}

// TrySend writes data without blocking. A would-block condition stashes
// the unwritten remainder as the pending buffer, replacing any prior
// content: the last write attempt wins, and the caller retries with
// FlushPending once the socket is writable again.
func (c *Conn) TrySend(data []byte) SendResult {
	offset := 0

	for offset < len(data) {
		n, err := unix.Write(c.fd, data[offset:])
		switch {
		case err == unix.EAGAIN:
			c.log.Debug("Socket blocking on write, postponing",
				zap.String("peer", c.peer),
				zap.Int("remaining", len(data)-offset))

			c.pending = append(c.pending[:0], data[offset:]...)
			return SendPending

		case err == unix.EINTR:
			continue

		case err != nil:
			c.log.Debug("Write failed", zap.String("peer", c.peer), zap.Error(err))
			return SendFailed
		}

		offset += n
	}

	return SendFlushed
}

// FlushPending retries the stashed remainder of an earlier TrySend.
func (c *Conn) FlushPending() SendResult {
	if len(c.pending) == 0 {
		return SendFlushed
	}

	data := c.pending
	c.pending = nil

	return c.TrySend(data)
}

// Close releases the socket and resets the per-connection state to its
// initial empty shape, safe for reuse. It must not race Pump or TrySend
// on the same Conn; the single-loop ownership model guarantees that.
func (c *Conn) Close() error {
	if c.fd < 0 {
		return nil
	}

	err := unix.Close(c.fd)
	c.fd = -1
	c.pending = nil
	c.closeAfterFlush = false
	c.req.Reset()

	return err
}

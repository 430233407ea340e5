// Package client is a minimal wg-dynamic protocol client: dial the
// daemon, send one request_ip exchange, decode the reply.
package client

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/CMihai998/wg-dynamic/protocol"
)

var (
	ErrServerError  = errors.New("Server answered with a non-zero errno")
	ErrNotConnected = errors.New("Client is not connected")
)

type Conn struct {
	conn net.Conn
	log  *zap.Logger
}

func New(log *zap.Logger) *Conn {
	return &Conn{log: log}
}

func (c *Conn) Connect(ctx context.Context, addr string) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	c.conn = conn
	return nil
}

func (c *Conn) Disconnect() error {
	if c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// RequestIP performs one request_ip exchange. Hint attributes (an ip4
// or ip6 the caller would like to keep) are sent as body lines. The
// decoded response is returned whole; a reply carrying a non-zero errno
// surfaces as ErrServerError with the response still populated.
func (c *Conn) RequestIP(ctx context.Context, hints ...protocol.Attr) (*protocol.Request, error) {
	if c.conn == nil {
		return nil, ErrNotConnected
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
		defer c.conn.SetDeadline(time.Time{})
	}

	msg := protocol.AppendCommand(nil, protocol.KeyRequestIP, protocol.SupportedVersion)
	for _, hint := range hints {
		msg = protocol.AppendAttr(msg, hint)
	}
	msg = protocol.AppendEnd(msg)

	if _, err := c.conn.Write(msg); err != nil {
		return nil, err
	}

	resp := protocol.NewRequest()
	buf := make([]byte, 4096)

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			outcome, perr := resp.Feed(buf[:n])
			if perr != nil {
				return nil, perr
			}

			if outcome == protocol.Complete {
				break
			}
		}

		if err != nil {
			return nil, err
		}
	}

	if errno, ok := resp.Lookup(protocol.KeyErrno); ok && errno.Uint32 != 0 {
		c.log.Debug("Server rejected request",
			zap.Uint32("errno", errno.Uint32))

		return resp, ErrServerError
	}

	return resp, nil
}

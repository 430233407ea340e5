package lease

import (
	"context"

	"go.uber.org/zap"

	"github.com/CMihai998/wg-dynamic/protocol"
	"github.com/CMihai998/wg-dynamic/transport"
)

// Protocol-level errno values carried on the errno attribute.
const (
	errnoOK    = 0
	errnoError = 1
)

// Responder turns completed requests into responses. Each exchange is
// one-shot: the reply is queued on the connection and the connection is
// reported finished, closing once the reply has drained.
type Responder struct {
	alloc *Allocator
	log   *zap.Logger
}

func NewResponder(alloc *Allocator, log *zap.Logger) *Responder {
	return &Responder{alloc: alloc, log: log}
}

var _ transport.Handler = (*Responder)(nil)

func (r *Responder) HandleComplete(conn *transport.Conn) bool {
	req := conn.Request()
	defer req.Reset()

	if req.Cmd == protocol.KeyUnknown {
		// A lone blank line parses as an empty complete message with no
		// command. There is nothing to answer; drop the connection.
		r.log.Debug("Empty message", zap.String("peer", conn.Peer()))
		return true
	}

	granted, err := r.alloc.Allocate(context.Background(), conn.Peer(), req)
	if err != nil {
		r.log.Warn("Failed to allocate lease",
			zap.String("peer", conn.Peer()),
			zap.Error(err))

		conn.TrySend(errorResponse(err.Error()))
		return true
	}

	attrs, err := granted.Attrs()
	if err != nil {
		r.log.Error("Stored lease failed to re-encode",
			zap.String("peer", conn.Peer()),
			zap.Error(err))

		conn.TrySend(errorResponse("internal error"))
		return true
	}

	buf := protocol.AppendCommand(nil, protocol.KeyRequestIP, protocol.SupportedVersion)
	for _, a := range attrs {
		buf = protocol.AppendAttr(buf, a)
	}
	buf = protocol.AppendAttr(buf, protocol.Uint32Attr(protocol.KeyErrno, errnoOK))
	buf = protocol.AppendEnd(buf)

	// SendFailed needs no special handling here: the connection is
	// finished either way and the read path observes the failure.
	conn.TrySend(buf)
	return true
}

func (r *Responder) HandleError(conn *transport.Conn, err error) bool {
	conn.TrySend(errorResponse(protocol.ErrorName(err)))
	return true
}

func errorResponse(msg string) []byte {
	buf := protocol.AppendCommand(nil, protocol.KeyRequestIP, protocol.SupportedVersion)
	buf = protocol.AppendAttr(buf, protocol.Uint32Attr(protocol.KeyErrno, errnoError))
	buf = protocol.AppendAttr(buf, protocol.ErrmsgAttr(msg))
	return protocol.AppendEnd(buf)
}

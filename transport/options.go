package transport

import "go.uber.org/zap"

// Handler supplies the per-request continuations. Both return whether
// the connection should be considered finished; the server then closes
// it once any pending response bytes have drained.
type Handler interface {
	// HandleComplete is invoked with a fully parsed message.
	HandleComplete(conn *Conn) bool

	// HandleError is invoked once per malformed message with the
	// specific parse error.
	HandleError(conn *Conn, err error) bool
}

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on
	Port int

	// Handler receives completed and failed requests.
	Handler Handler

	Log *zap.Logger
}

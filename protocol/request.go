package protocol

import "bytes"

// Outcome is the tri-state result of feeding bytes into a Request.
type Outcome uint8

const (
	// NeedMore means the message is not finished; feed more bytes when
	// the transport has them.
	NeedMore Outcome = iota

	// Complete means a blank line ended the message. The command,
	// version and attributes are ready for dispatch.
	Complete
)

// Request accumulates one in-flight message for a connection. Bytes are
// fed in whatever chunks the transport produces; the decoded result is
// identical regardless of where the chunk boundaries fall.
//
// A Request is not safe for concurrent use. The connection driver owns
// it and feeds it from a single readiness loop.
type Request struct {
	// Cmd is the decoded command key, or KeyUnknown until the first
	// line has been parsed in full.
	Cmd Key

	// Version is the protocol version from the command line. Only
	// meaningful once Cmd is set.
	Version uint32

	// Attrs holds the decoded body lines of the current message, in
	// arrival order.
	Attrs []Attr

	// leftover holds the unconsumed tail of a line that spanned a read
	// boundary. It is prepended to the next feed.
	leftover []byte

	maxLine int
}

// NewRequest returns a Request with the default line-size bound.
func NewRequest() *Request {
	return &Request{maxLine: MaxLineSize}
}

// NewRequestSize returns a Request bounding single lines at maxLine
// bytes instead of the default.
func NewRequestSize(maxLine int) *Request {
	if maxLine <= 0 {
		maxLine = MaxLineSize
	}

	return &Request{maxLine: maxLine}
}

// Feed consumes one chunk of bytes off the wire. It returns Complete
// when a blank line ended the message, NeedMore when the chunk was
// exhausted mid-message, or an error from the taxonomy in errors.go.
//
// On error the attributes decoded so far stay attached; the caller is
// expected to Reset (or tear down) the request, never to treat them as
// a completed message.
func (r *Request) Feed(data []byte) (Outcome, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return NeedMore, ErrInvalidInput
	}

	buf := data
	if len(r.leftover) > 0 {
		buf = append(r.leftover, data...)
		r.leftover = nil
	}

	for len(buf) > 0 {
		ln, err := splitLine(buf, r.Cmd == KeyUnknown, r.maxLine)

		if ln.outcome == lineCommand {
			r.Cmd = ln.cmd
			r.Version = ln.version
		}

		if err != nil {
			return NeedMore, err
		}

		switch ln.outcome {
		case lineIncomplete:
			// buf may alias the caller's chunk; the stash must own its
			// bytes until the next feed.
			r.leftover = append([]byte(nil), buf...)
			return NeedMore, nil

		case lineBlank:
			return Complete, nil

		case lineAttr:
			r.Attrs = append(r.Attrs, ln.attr)
		}

		buf = buf[ln.consumed:]
	}

	return NeedMore, nil
}

// Lookup returns the first attribute carrying the given key.
func (r *Request) Lookup(key Key) (Attr, bool) {
	for _, a := range r.Attrs {
		if a.Key == key {
			return a, true
		}
	}

	return Attr{}, false
}

// Reset returns the request to its initial state so the connection can
// accumulate its next message.
func (r *Request) Reset() {
	r.Cmd = KeyUnknown
	r.Version = 0
	r.Attrs = nil
	r.leftover = nil
}

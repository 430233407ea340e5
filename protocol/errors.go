package protocol

import "errors"

// Every way a message can fail to parse. Each failure is surfaced
// exactly once, via the error continuation of the connection driver.
var (
	ErrInvalidInput       = errors.New("Input contains a null byte")
	ErrLineTooLong        = errors.New("Line exceeds the maximum line size without a newline")
	ErrMissingSeparator   = errors.New("Line is missing the '=' separator")
	ErrUnknownKey         = errors.New("Key is not part of the protocol")
	ErrWrongKeyClass      = errors.New("Key is not valid in this position")
	ErrMalformedVersion   = errors.New("Version is not a valid decimal number")
	ErrUnsupportedVersion = errors.New("Version is not supported")
	ErrMalformedValue     = errors.New("Value could not be decoded for its key")
)

// ErrorName returns a short stable name for a parse error, suitable for
// metric labels and errmsg payloads.
func ErrorName(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrLineTooLong):
		return "line_too_long"
	case errors.Is(err, ErrMissingSeparator):
		return "missing_separator"
	case errors.Is(err, ErrUnknownKey):
		return "unknown_key"
	case errors.Is(err, ErrWrongKeyClass):
		return "wrong_key_class"
	case errors.Is(err, ErrMalformedVersion):
		return "malformed_version"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrMalformedValue):
		return "malformed_value"
	default:
		return "internal"
	}
}

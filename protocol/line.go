package protocol

import (
	"bytes"
	"strconv"
)

const (
	// MaxLineSize is the default bound on a single protocol line,
	// including its newline.
	MaxLineSize = 4096

	// SupportedVersion is the only protocol version this engine speaks.
	SupportedVersion = 1
)

type lineOutcome uint8

const (
	// lineIncomplete means no newline was found within the bound; all
	// available bytes should be stashed and re-fed with the next read.
	lineIncomplete lineOutcome = iota

	// lineBlank is an empty line, the end-of-message marker.
	lineBlank

	// lineCommand carries a decoded command key and version.
	lineCommand

	// lineAttr carries a decoded attribute.
	lineAttr
)

type line struct {
	outcome  lineOutcome
	consumed int

	// cmd and version are set for lineCommand. They are also set when
	// the error is ErrUnsupportedVersion, which consumes its line.
	cmd     Key
	version uint32

	// attr is set for lineAttr.
	attr Attr
}

// splitLine extracts one line from the front of buf. maxLine bounds the
// newline search; parsingCommand selects the command-line grammar over
// the attribute-line grammar. consumed reports how many bytes of buf
// the caller must advance past, the line's newline included.
func splitLine(buf []byte, parsingCommand bool, maxLine int) (line, error) {
	limit := len(buf)
	if limit > maxLine {
		limit = maxLine
	}

	nl := bytes.IndexByte(buf[:limit], '\n')
	if nl < 0 {
		if len(buf) >= maxLine {
			return line{}, ErrLineTooLong
		}

		return line{outcome: lineIncomplete, consumed: len(buf)}, nil
	}

	if nl == 0 {
		return line{outcome: lineBlank, consumed: 1}, nil
	}

	raw := buf[:nl]
	consumed := nl + 1

	eq := bytes.IndexByte(raw, '=')
	if eq < 0 {
		return line{}, ErrMissingSeparator
	}

	key := ParseKey(string(raw[:eq]))
	if key == KeyUnknown {
		return line{}, ErrUnknownKey
	}

	value := string(raw[eq+1:])

	if parsingCommand {
		if key.Class() != ClassCommand {
			return line{}, ErrWrongKeyClass
		}

		version, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return line{}, ErrMalformedVersion
		}

		result := line{
			outcome:  lineCommand,
			consumed: consumed,
			cmd:      key,
			version:  uint32(version),
		}

		if version != SupportedVersion {
			// Unlike the other failures this one has consumed a
			// well-formed line, so the command and version still land
			// on the request.
			return result, ErrUnsupportedVersion
		}

		return result, nil
	}

	if key.Class() != ClassAttr {
		return line{}, ErrWrongKeyClass
	}

	attr, err := DecodeValue(key, value)
	if err != nil {
		return line{}, err
	}

	return line{outcome: lineAttr, consumed: consumed, attr: attr}, nil
}

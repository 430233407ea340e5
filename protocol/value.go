package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// MaxErrmsgLen bounds the number of bytes kept from an errmsg value.
// Longer values are truncated silently.
const MaxErrmsgLen = 71

// IPFamily tags a CombinedIP as IPv4 or IPv6.
type IPFamily uint8

const (
	FamilyNone IPFamily = iota
	FamilyIPv4
	FamilyIPv6
)

// AddrLen is the number of leading bytes of CombinedIP.Addr that are
// meaningful for the family.
func (f IPFamily) AddrLen() int {
	if f == FamilyIPv4 {
		return net.IPv4len
	}

	return net.IPv6len
}

// CombinedIP is an address of either family together with a prefix
// length. Only the first AddrLen() bytes of Addr are meaningful.
//
// The prefix length is bounded at 255 but is not range checked against
// the family's maximum (32 or 128). That check is left to whoever acts
// on the value.
type CombinedIP struct {
	Family IPFamily
	Addr   [net.IPv6len]byte
	Prefix uint8
}

// IP returns the address as a net.IP of the family's width.
func (c CombinedIP) IP() net.IP {
	return net.IP(c.Addr[:c.Family.AddrLen()])
}

// String renders the value in its wire form, "address/prefix".
func (c CombinedIP) String() string {
	return c.IP().String() + "/" + strconv.Itoa(int(c.Prefix))
}

// IsZero reports whether the value is the "clear this field" form: the
// all-zero address with prefix 0.
func (c CombinedIP) IsZero() bool {
	return c.Addr == [net.IPv6len]byte{} && c.Prefix == 0
}

// Attr is one decoded body line of a message. Key selects which of the
// payload fields is meaningful.
type Attr struct {
	Key Key

	// IP is set for KeyIP4 and KeyIP6.
	IP CombinedIP

	// Uint32 is set for KeyLeaseStart, KeyLeaseTime and KeyErrno.
	Uint32 uint32

	// Errmsg is set for KeyErrmsg, truncated to MaxErrmsgLen bytes.
	Errmsg string
}

// DecodeValue parses the value text of an attribute line according to
// its key. Calling it with anything but an attribute key is an internal
// contract violation and panics; external input can never reach that
// path because the line splitter has already classified the key.
func DecodeValue(key Key, text string) (Attr, error) {
	switch key {
	case KeyIP4:
		ip, err := parseIPCIDR(FamilyIPv4, text)
		if err != nil {
			return Attr{}, err
		}

		return Attr{Key: key, IP: ip}, nil

	case KeyIP6:
		ip, err := parseIPCIDR(FamilyIPv6, text)
		if err != nil {
			return Attr{}, err
		}

		return Attr{Key: key, IP: ip}, nil

	case KeyLeaseStart, KeyLeaseTime, KeyErrno:
		v, err := strconv.ParseUint(text, 10, 32)
		if err != nil {
			return Attr{}, ErrMalformedValue
		}

		return Attr{Key: key, Uint32: uint32(v)}, nil

	case KeyErrmsg:
		if len(text) > MaxErrmsgLen {
			text = text[:MaxErrmsgLen]
		}

		return Attr{Key: key, Errmsg: text}, nil

	default:
		panic(fmt.Sprintf("DecodeValue called with non-attribute key %q", key))
	}
}

// parseIPCIDR parses "address/prefix" for the expected family. The
// empty string is the valid "clear" form: the zero address with
// prefix 0.
func parseIPCIDR(family IPFamily, text string) (CombinedIP, error) {
	ip := CombinedIP{Family: family}

	if text == "" {
		return ip, nil
	}

	addrText, prefixText, found := strings.Cut(text, "/")
	if !found {
		return CombinedIP{}, ErrMalformedValue
	}

	addr := net.ParseIP(addrText)
	if addr == nil {
		return CombinedIP{}, ErrMalformedValue
	}

	// net.ParseIP accepts both families; pin the literal to the one the
	// key demands, the way a strict per-family parse would.
	switch family {
	case FamilyIPv4:
		addr4 := addr.To4()
		if addr4 == nil || strings.Contains(addrText, ":") {
			return CombinedIP{}, ErrMalformedValue
		}

		copy(ip.Addr[:net.IPv4len], addr4)

	case FamilyIPv6:
		if !strings.Contains(addrText, ":") {
			return CombinedIP{}, ErrMalformedValue
		}

		copy(ip.Addr[:], addr.To16())
	}

	prefix, err := strconv.ParseUint(prefixText, 10, 8)
	if err != nil {
		return CombinedIP{}, ErrMalformedValue
	}

	// TODO validate the prefix against the family maximum
	ip.Prefix = uint8(prefix)

	return ip, nil
}

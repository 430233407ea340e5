package protocol

import "strconv"

// The append helpers build outbound messages in the same wire form the
// parser consumes, so a decoded value re-encodes to the exact text it
// arrived as.

// AppendCommand appends a command line, "key=version\n".
func AppendCommand(b []byte, cmd Key, version uint32) []byte {
	b = append(b, cmd.String()...)
	b = append(b, '=')
	b = strconv.AppendUint(b, uint64(version), 10)
	return append(b, '\n')
}

// AppendAttr appends one attribute line, "key=value\n".
func AppendAttr(b []byte, a Attr) []byte {
	b = append(b, a.Key.String()...)
	b = append(b, '=')
	b = append(b, a.ValueString()...)
	return append(b, '\n')
}

// AppendEnd appends the blank line terminating a message.
func AppendEnd(b []byte) []byte {
	return append(b, '\n')
}

// ValueString renders the attribute's value in its wire form.
func (a Attr) ValueString() string {
	switch a.Key {
	case KeyIP4, KeyIP6:
		return a.IP.String()
	case KeyLeaseStart, KeyLeaseTime, KeyErrno:
		return strconv.FormatUint(uint64(a.Uint32), 10)
	case KeyErrmsg:
		return a.Errmsg
	default:
		return ""
	}
}

// IPAttr builds an ip4 or ip6 attribute from its parts. addr must be
// the family's width; shorter or longer slices are truncated or zero
// padded into place.
func IPAttr(key Key, addr []byte, prefix uint8) Attr {
	family := FamilyIPv4
	if key == KeyIP6 {
		family = FamilyIPv6
	}

	ip := CombinedIP{Family: family, Prefix: prefix}
	copy(ip.Addr[:family.AddrLen()], addr)

	return Attr{Key: key, IP: ip}
}

// Uint32Attr builds a leasestart, leasetime or errno attribute.
func Uint32Attr(key Key, v uint32) Attr {
	return Attr{Key: key, Uint32: v}
}

// ErrmsgAttr builds an errmsg attribute, truncated to MaxErrmsgLen.
func ErrmsgAttr(msg string) Attr {
	if len(msg) > MaxErrmsgLen {
		msg = msg[:MaxErrmsgLen]
	}

	return Attr{Key: KeyErrmsg, Errmsg: msg}
}

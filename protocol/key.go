package protocol

// Key identifies one of the closed set of protocol keys. The zero value
// is KeyUnknown.
type Key uint8

const (
	KeyUnknown Key = iota

	// Command keys, valid only on a message's first line.
	KeyRequestIP

	// Attribute keys, valid only on body lines.
	KeyIP4
	KeyIP6
	KeyLeaseStart
	KeyLeaseTime
	KeyErrno
	KeyErrmsg
)

// KeyClass partitions the lexicon into command keys and attribute keys.
// Each key carries its class explicitly rather than relying on its
// position in the declaration order.
type KeyClass uint8

const (
	ClassNone KeyClass = iota
	ClassCommand
	ClassAttr
)

type keyInfo struct {
	name  string
	class KeyClass
}

var keys = map[Key]keyInfo{
	KeyRequestIP:  {"request_ip", ClassCommand},
	KeyIP4:        {"ip4", ClassAttr},
	KeyIP6:        {"ip6", ClassAttr},
	KeyLeaseStart: {"leasestart", ClassAttr},
	KeyLeaseTime:  {"leasetime", ClassAttr},
	KeyErrno:      {"errno", ClassAttr},
	KeyErrmsg:     {"errmsg", ClassAttr},
}

var keysByName = func() map[string]Key {
	m := make(map[string]Key, len(keys))
	for k, info := range keys {
		m[info.name] = k
	}
	return m
}()

// ParseKey resolves a protocol key name to its identifier. The match is
// exact and case sensitive; anything else, including the empty string,
// is KeyUnknown.
func ParseKey(name string) Key {
	return keysByName[name]
}

func (k Key) String() string {
	if info, ok := keys[k]; ok {
		return info.name
	}

	return "unknown"
}

// Class reports whether k is a command key or an attribute key.
func (k Key) Class() KeyClass {
	return keys[k].class
}

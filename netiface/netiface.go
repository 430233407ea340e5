// Package netiface enumerates the host's interface addresses through
// the kernel's rtnetlink facility. The lease logic uses it to discover
// which prefixes the daemon itself sits on.
package netiface

import (
	"net"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Addr is one address record from an RTM_GETADDR dump.
type Addr struct {
	IP        net.IP
	PrefixLen uint8
	Family    int
	IfIndex   int
}

// Addresses lists every local address of the given family
// (unix.AF_INET, unix.AF_INET6, or unix.AF_UNSPEC for both).
func Addresses(family int) ([]Addr, error) {
	tab, err := syscall.NetlinkRIB(unix.RTM_GETADDR, family)
	if err != nil {
		return nil, err
	}

	msgs, err := syscall.ParseNetlinkMessage(tab)
	if err != nil {
		return nil, err
	}

	var addrs []Addr

	for i := range msgs {
		m := &msgs[i]

		if m.Header.Type == unix.NLMSG_DONE {
			break
		}

		if m.Header.Type != unix.RTM_NEWADDR {
			continue
		}

		ifam := (*unix.IfAddrmsg)(unsafe.Pointer(&m.Data[0]))
		if family != unix.AF_UNSPEC && int(ifam.Family) != family {
			continue
		}

		attrs, err := syscall.ParseNetlinkRouteAttr(m)
		if err != nil {
			return nil, err
		}

		addr := Addr{
			Family:    int(ifam.Family),
			PrefixLen: ifam.Prefixlen,
			IfIndex:   int(ifam.Index),
		}

		// IFA_LOCAL is the interface's own address on broadcast links;
		// point-to-point links carry the peer in IFA_ADDRESS, so prefer
		// IFA_LOCAL when both are present.
		for _, a := range attrs {
			switch a.Attr.Type {
			case unix.IFA_LOCAL:
				addr.IP = ipFromBytes(a.Value)
			case unix.IFA_ADDRESS:
				if addr.IP == nil {
					addr.IP = ipFromBytes(a.Value)
				}
			}
		}

		if addr.IP != nil {
			addrs = append(addrs, addr)
		}
	}

	return addrs, nil
}

// IsLinkLocal reports whether ip is a link-local unicast address.
func IsLinkLocal(ip net.IP) bool {
	return ip.IsLinkLocalUnicast()
}

func ipFromBytes(b []byte) net.IP {
	switch len(b) {
	case net.IPv4len, net.IPv6len:
		return net.IP(append([]byte(nil), b...))
	default:
		return nil
	}
}

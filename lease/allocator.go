package lease

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CMihai998/wg-dynamic/protocol"
)

var ErrSubnetExhausted = errors.New("No free addresses left in the lease subnet")

// Allocator grants IPv4 leases out of a configured subnet. A peer that
// asks again before its lease runs out is renewed on the same address.
type Allocator struct {
	mu    sync.Mutex
	store *Store

	subnet   *net.IPNet
	next     uint32
	reserved map[uint32]struct{}

	leaseTime uint32

	// now is split out so tests can pin the clock.
	now func() uint32

	log *zap.Logger
}

func NewAllocator(store *Store, subnet string, leaseTime uint32, log *zap.Logger) (*Allocator, error) {
	_, ipnet, err := net.ParseCIDR(subnet)
	if err != nil {
		return nil, fmt.Errorf("Failed to parse lease subnet %q: %w", subnet, err)
	}

	if ipnet.IP.To4() == nil {
		return nil, fmt.Errorf("Lease subnet %q is not IPv4", subnet)
	}

	return &Allocator{
		store:     store,
		subnet:    ipnet,
		next:      1, // skip the network address
		reserved:  make(map[uint32]struct{}),
		leaseTime: leaseTime,
		now:       func() uint32 { return uint32(time.Now().Unix()) },
		log:       log,
	}, nil
}

// Reserve marks an address as never grantable, typically because the
// host itself owns it on the served interface.
func (a *Allocator) Reserve(ip net.IP) {
	ip4 := ip.To4()
	if ip4 == nil || !a.subnet.Contains(ip4) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.reserved[binary.BigEndian.Uint32(ip4)] = struct{}{}
}

// Allocate grants or renews a lease for peer. A requested ip6 is echoed
// onto the lease; ip4 assignment is always the allocator's call.
func (a *Allocator) Allocate(ctx context.Context, peer string, req *protocol.Request) (Lease, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()

	if current, ok := a.store.Get(ctx, peer); ok && !current.Expired(now) {
		renewed := Lease{
			IP4:      current.IP4,
			IP6:      current.IP6,
			Start:    now,
			Duration: a.leaseTime,
		}

		if err := a.store.Put(ctx, peer, renewed); err != nil {
			return Lease{}, err
		}

		a.log.Debug("Renewed lease",
			zap.String("peer", peer),
			zap.String("ip4", renewed.IP4))

		return renewed, nil
	}

	ip4, err := a.nextAddr()
	if err != nil {
		return Lease{}, err
	}

	granted := Lease{
		IP4:      ip4.String() + "/32",
		Start:    now,
		Duration: a.leaseTime,
	}

	// Echo back a requested ip6, there is no v6 pool to allocate from.
	if hint, ok := req.Lookup(protocol.KeyIP6); ok && !hint.IP.IsZero() {
		granted.IP6 = hint.IP.String()
	}

	if err := a.store.Put(ctx, peer, granted); err != nil {
		return Lease{}, err
	}

	a.log.Info("Granted lease",
		zap.String("peer", peer),
		zap.String("ip4", granted.IP4),
		zap.Uint32("leasetime", granted.Duration))

	return granted, nil
}

// nextAddr hands out host addresses sequentially, skipping the network
// and broadcast addresses.
func (a *Allocator) nextAddr() (net.IP, error) {
	ones, bits := a.subnet.Mask.Size()
	hostBits := uint(bits - ones)

	base := binary.BigEndian.Uint32(a.subnet.IP.To4())

	for a.next < (uint32(1)<<hostBits)-1 {
		candidate := base + a.next
		a.next++

		if _, taken := a.reserved[candidate]; taken {
			continue
		}

		addr := make(net.IP, net.IPv4len)
		binary.BigEndian.PutUint32(addr, candidate)

		return addr, nil
	}

	return nil, ErrSubnetExhausted
}

// Attrs renders the lease as protocol attributes, in the order the wire
// format lists them.
func (l Lease) Attrs() ([]protocol.Attr, error) {
	attrs := make([]protocol.Attr, 0, 4)

	ip4, err := protocol.DecodeValue(protocol.KeyIP4, l.IP4)
	if err != nil {
		return nil, fmt.Errorf("Lease holds a malformed ip4 %q: %w", l.IP4, err)
	}
	attrs = append(attrs, ip4)

	if l.IP6 != "" {
		ip6, err := protocol.DecodeValue(protocol.KeyIP6, l.IP6)
		if err != nil {
			return nil, fmt.Errorf("Lease holds a malformed ip6 %q: %w", l.IP6, err)
		}
		attrs = append(attrs, ip6)
	}

	attrs = append(attrs,
		protocol.Uint32Attr(protocol.KeyLeaseStart, l.Start),
		protocol.Uint32Attr(protocol.KeyLeaseTime, l.Duration),
	)

	return attrs, nil
}

// String is the compact human form used in logs.
func (l Lease) String() string {
	return l.IP4 + " for " + strconv.FormatUint(uint64(l.Duration), 10) + "s"
}

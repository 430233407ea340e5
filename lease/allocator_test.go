package lease

import (
	"context"
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/CMihai998/wg-dynamic/protocol"
)

func makeAllocator(subnet string, leaseTime uint32) *Allocator {
	alloc, err := NewAllocator(NewStore(), subnet, leaseTime, zap.NewNop())
	Expect(err).To(Succeed())

	alloc.now = func() uint32 { return 1000 }

	return alloc
}

func emptyRequest() *protocol.Request {
	req := protocol.NewRequest()

	outcome, err := req.Feed([]byte("request_ip=1\n\n"))
	Expect(err).To(Succeed())
	Expect(outcome).To(Equal(protocol.Complete))

	return req
}

var _ = Describe("lease / Allocator", func() {
	ctx := context.Background()

	It("rejects a malformed subnet", func() {
		_, err := NewAllocator(NewStore(), "not-a-subnet", 3600, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects an IPv6 subnet", func() {
		_, err := NewAllocator(NewStore(), "2001:db8::/64", 3600, zap.NewNop())
		Expect(err).To(HaveOccurred())
	})

	It("grants sequential addresses from the subnet", func() {
		alloc := makeAllocator("192.168.4.0/24", 3600)

		first, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())
		Expect(first.IP4).To(Equal("192.168.4.1/32"))
		Expect(first.Start).To(Equal(uint32(1000)))
		Expect(first.Duration).To(Equal(uint32(3600)))

		second, err := alloc.Allocate(ctx, "peer:2", emptyRequest())
		Expect(err).To(Succeed())
		Expect(second.IP4).To(Equal("192.168.4.2/32"))
	})

	It("renews an unexpired lease on the same address", func() {
		alloc := makeAllocator("192.168.4.0/24", 3600)

		first, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())

		alloc.now = func() uint32 { return 2000 }

		renewed, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())
		Expect(renewed.IP4).To(Equal(first.IP4))
		Expect(renewed.Start).To(Equal(uint32(2000)))
	})

	It("allocates fresh once the lease has expired", func() {
		alloc := makeAllocator("192.168.4.0/24", 10)

		first, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())

		alloc.now = func() uint32 { return 5000 }

		second, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())
		Expect(second.IP4).NotTo(Equal(first.IP4))
		Expect(second.Start).To(Equal(uint32(5000)))
	})

	It("echoes a requested ip6 back on the lease", func() {
		alloc := makeAllocator("192.168.4.0/24", 3600)

		req := protocol.NewRequest()
		outcome, err := req.Feed([]byte("request_ip=1\nip6=2001:db8::7/128\n\n"))
		Expect(err).To(Succeed())
		Expect(outcome).To(Equal(protocol.Complete))

		granted, err := alloc.Allocate(ctx, "peer:1", req)
		Expect(err).To(Succeed())
		Expect(granted.IP6).To(Equal("2001:db8::7/128"))
	})

	It("never grants a reserved address", func() {
		alloc := makeAllocator("192.168.4.0/24", 3600)
		alloc.Reserve(net.ParseIP("192.168.4.1"))

		granted, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())
		Expect(granted.IP4).To(Equal("192.168.4.2/32"))
	})

	It("ignores reservations outside the subnet", func() {
		alloc := makeAllocator("192.168.4.0/24", 3600)
		alloc.Reserve(net.ParseIP("10.0.0.1"))

		granted, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())
		Expect(granted.IP4).To(Equal("192.168.4.1/32"))
	})

	It("runs out of addresses at the subnet boundary", func() {
		alloc := makeAllocator("192.168.4.0/30", 3600)

		// A /30 leaves two usable host addresses.
		_, err := alloc.Allocate(ctx, "peer:1", emptyRequest())
		Expect(err).To(Succeed())

		_, err = alloc.Allocate(ctx, "peer:2", emptyRequest())
		Expect(err).To(Succeed())

		_, err = alloc.Allocate(ctx, "peer:3", emptyRequest())
		Expect(err).To(MatchError(ErrSubnetExhausted))
	})

	Describe("Lease.Attrs()", func() {
		It("renders the wire attributes in order", func() {
			granted := Lease{IP4: "192.168.4.1/32", Start: 1000, Duration: 3600}

			attrs, err := granted.Attrs()
			Expect(err).To(Succeed())
			Expect(attrs).To(HaveLen(3))
			Expect(attrs[0].Key).To(Equal(protocol.KeyIP4))
			Expect(attrs[0].ValueString()).To(Equal("192.168.4.1/32"))
			Expect(attrs[1].Key).To(Equal(protocol.KeyLeaseStart))
			Expect(attrs[1].Uint32).To(Equal(uint32(1000)))
			Expect(attrs[2].Key).To(Equal(protocol.KeyLeaseTime))
			Expect(attrs[2].Uint32).To(Equal(uint32(3600)))
		})

		It("includes an ip6 when the lease has one", func() {
			granted := Lease{IP4: "192.168.4.1/32", IP6: "2001:db8::7/128"}

			attrs, err := granted.Attrs()
			Expect(err).To(Succeed())
			Expect(attrs).To(HaveLen(4))
			Expect(attrs[1].Key).To(Equal(protocol.KeyIP6))
		})
	})
})

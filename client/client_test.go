package client_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/CMihai998/wg-dynamic/client"
	"github.com/CMihai998/wg-dynamic/lease"
	"github.com/CMihai998/wg-dynamic/protocol"
	"github.com/CMihai998/wg-dynamic/transport"
)

var _ = Describe("Client", func() {
	It("obtains a lease from a running daemon", func() {
		server := makeDaemon(16980)
		defer func() {
			Expect(server.Close()).To(Succeed())
		}()

		log, err := zap.NewDevelopment()
		Expect(err).To(Succeed())

		c := client.New(log)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Expect(c.Connect(ctx, "127.0.0.1:16980")).To(Succeed())
		defer c.Disconnect()

		resp, err := c.RequestIP(ctx)
		Expect(err).To(Succeed())
		Expect(resp.Cmd).To(Equal(protocol.KeyRequestIP))

		ip4, ok := resp.Lookup(protocol.KeyIP4)
		Expect(ok).To(BeTrue())
		Expect(ip4.ValueString()).To(Equal("192.168.4.1/32"))

		leaseTime, ok := resp.Lookup(protocol.KeyLeaseTime)
		Expect(ok).To(BeTrue())
		Expect(leaseTime.Uint32).To(Equal(uint32(3600)))

		errno, ok := resp.Lookup(protocol.KeyErrno)
		Expect(ok).To(BeTrue())
		Expect(errno.Uint32).To(Equal(uint32(0)))
	})

	It("carries an ip6 hint through the exchange", func() {
		server := makeDaemon(16981)
		defer func() {
			Expect(server.Close()).To(Succeed())
		}()

		log, err := zap.NewDevelopment()
		Expect(err).To(Succeed())

		c := client.New(log)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		Expect(c.Connect(ctx, "127.0.0.1:16981")).To(Succeed())
		defer c.Disconnect()

		hint, err := protocol.DecodeValue(protocol.KeyIP6, "2001:db8::7/128")
		Expect(err).To(Succeed())

		resp, err := c.RequestIP(ctx, hint)
		Expect(err).To(Succeed())

		ip6, ok := resp.Lookup(protocol.KeyIP6)
		Expect(ok).To(BeTrue())
		Expect(ip6.ValueString()).To(Equal("2001:db8::7/128"))
	})

	It("refuses to request without connecting first", func() {
		log, err := zap.NewDevelopment()
		Expect(err).To(Succeed())

		c := client.New(log)

		_, err = c.RequestIP(context.Background())
		Expect(err).To(MatchError(client.ErrNotConnected))
	})
})

func makeDaemon(port int) *transport.Server {
	log, err := zap.NewDevelopment()
	Expect(err).To(Succeed())

	store := lease.NewStore()

	alloc, err := lease.NewAllocator(store, "192.168.4.0/24", 3600, log.Named("lease"))
	Expect(err).To(Succeed())

	server := transport.NewServer(transport.Options{
		Host:    "127.0.0.1",
		Port:    port,
		Handler: lease.NewResponder(alloc, log.Named("responder")),
		Log:     log.Named("transport"),
	})

	Expect(server.Start(context.Background())).To(Succeed())

	time.Sleep(100 * time.Millisecond)

	return server
}

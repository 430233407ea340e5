package lease_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/CMihai998/wg-dynamic/lease"
)

var _ = Describe("lease / Store", func() {
	It("an empty store backs up as {}", func() {
		store := lease.NewStore()

		doc, err := store.Backup()
		Expect(err).To(Succeed())
		Expect(string(doc)).To(Equal(`{}`))
	})

	Describe("Put() / Get()", func() {
		It("reads back what was written", func() {
			store := lease.NewStore()

			granted := lease.Lease{
				IP4:      "192.168.4.2/32",
				Start:    1000,
				Duration: 3600,
			}

			Expect(store.Put(context.Background(), "10.0.0.1:51820", granted)).To(Succeed())

			got, ok := store.Get(context.Background(), "10.0.0.1:51820")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(granted))
		})

		It("misses for an unknown peer", func() {
			store := lease.NewStore()

			_, ok := store.Get(context.Background(), "10.0.0.9:1234")
			Expect(ok).To(BeFalse())
		})

		It("keeps peers with dotted addresses apart", func() {
			store := lease.NewStore()
			ctx := context.Background()

			Expect(store.Put(ctx, "10.0.0.1:1", lease.Lease{IP4: "192.168.4.2/32"})).To(Succeed())
			Expect(store.Put(ctx, "10.0.0.1:2", lease.Lease{IP4: "192.168.4.3/32"})).To(Succeed())

			first, ok := store.Get(ctx, "10.0.0.1:1")
			Expect(ok).To(BeTrue())
			Expect(first.IP4).To(Equal("192.168.4.2/32"))

			second, ok := store.Get(ctx, "10.0.0.1:2")
			Expect(ok).To(BeTrue())
			Expect(second.IP4).To(Equal("192.168.4.3/32"))
		})
	})

	Describe("Delete()", func() {
		It("forgets the lease", func() {
			store := lease.NewStore()
			ctx := context.Background()

			Expect(store.Put(ctx, "peer:1", lease.Lease{IP4: "192.168.4.2/32"})).To(Succeed())
			Expect(store.Delete(ctx, "peer:1")).To(Succeed())

			_, ok := store.Get(ctx, "peer:1")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Backup() / Restore()", func() {
		It("round-trips the whole document", func() {
			store := lease.NewStore()
			ctx := context.Background()

			granted := lease.Lease{IP4: "192.168.4.2/32", Start: 1, Duration: 2}
			Expect(store.Put(ctx, "10.0.0.1:1", granted)).To(Succeed())

			doc, err := store.Backup()
			Expect(err).To(Succeed())

			restored := lease.NewStore()
			Expect(restored.Restore(doc)).To(Succeed())

			got, ok := restored.Get(ctx, "10.0.0.1:1")
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(granted))
		})
	})
})

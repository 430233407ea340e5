package netiface_test

import (
	"net"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/CMihai998/wg-dynamic/netiface"
)

var _ = Describe("netiface", func() {
	Describe("Addresses()", func() {
		It("only returns records of the requested family", func() {
			addrs, err := netiface.Addresses(unix.AF_INET)
			Expect(err).To(Succeed())

			for _, a := range addrs {
				Expect(a.Family).To(Equal(unix.AF_INET))
				Expect(a.IP.To4()).NotTo(BeNil())
			}
		})

		It("finds the IPv4 loopback address", func() {
			addrs, err := netiface.Addresses(unix.AF_INET)
			Expect(err).To(Succeed())

			found := false
			for _, a := range addrs {
				if a.IP.IsLoopback() {
					found = true
				}
			}

			Expect(found).To(BeTrue())
		})

		It("dumps both families for AF_UNSPEC", func() {
			addrs, err := netiface.Addresses(unix.AF_UNSPEC)
			Expect(err).To(Succeed())
			Expect(addrs).NotTo(BeEmpty())
		})
	})

	Describe("IsLinkLocal()", func() {
		It("recognises fe80::/10", func() {
			Expect(netiface.IsLinkLocal(net.ParseIP("fe80::1"))).To(BeTrue())
		})

		It("rejects global addresses", func() {
			Expect(netiface.IsLinkLocal(net.ParseIP("2001:db8::1"))).To(BeFalse())
			Expect(netiface.IsLinkLocal(net.ParseIP("192.0.2.1"))).To(BeFalse())
		})
	})
})

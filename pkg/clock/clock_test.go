package clock_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neil-the-nowledgeable/contextcore/pkg/clock"
)

func TestClock(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lamport Clock Suite")
}

var _ = Describe("LamportClock", func() {
	It("starts at zero and ticks monotonically", func() {
		c := clock.New()
		Expect(c.Current()).To(Equal(int64(0)))
		Expect(c.Tick()).To(Equal(int64(1)))
		Expect(c.Tick()).To(Equal(int64(2)))
	})

	It("merges a remote timestamp as max(local, remote)+1", func() {
		c := clock.New()
		c.Tick() // 1
		c.Tick() // 2
		Expect(c.Receive(10)).To(Equal(int64(11)))
	})

	It("still advances when the remote timestamp is behind local", func() {
		c := clock.New()
		for i := 0; i < 5; i++ {
			c.Tick()
		}
		Expect(c.Receive(1)).To(Equal(int64(6)))
	})

	It("never produces two events with the same timestamp across ticks", func() {
		c := clock.New()
		seen := map[int64]bool{}
		for i := 0; i < 100; i++ {
			ts := c.Tick()
			Expect(seen[ts]).To(BeFalse())
			seen[ts] = true
		}
	})
})

package homa

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Pacer", func() {
	It("drains a throttled RPC in the background until it is fully sent", func() {
		xmit := &fakeTransmitter{}
		// A generous link rate keeps Backed() false throughout, so the
		// pacer makes steady progress instead of spinning.
		h := New(&Config{LinkMbps: 1_000_000, MaxNICQueueNs: 1_000_000_000}, xmit)
		defer h.Close()

		peer := &fakePeer{}
		alloc := NewPoolAllocator()
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(4200)), 4200, peer, 80, 40000, 1, 10000, alloc)
		Expect(err).NotTo(HaveOccurred())
		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)

		h.throttle.Add(rpc)

		Eventually(func() int {
			return len(xmit.snapshot())
		}, time.Second, 5*time.Millisecond).Should(Equal(3))

		Eventually(func() bool {
			return h.throttle.Empty()
		}, time.Second, 5*time.Millisecond).Should(BeTrue())
	})

	It("stop() does not return until the pacer goroutine has exited", func() {
		h := New(DefaultConfig(), &fakeTransmitter{})
		h.Close()
		// A second Close must also be safe to call... actually Homa's
		// contract only promises one Close call; exercise just the one.
		_, ok := h.throttle.Head()
		Expect(ok).To(BeFalse())
	})

	It("makes no progress when the RPC's lock is held elsewhere", func() {
		xmit := &fakeTransmitter{}
		h := New(&Config{DontThrottle: false}, xmit)
		defer h.Close()

		peer := &fakePeer{}
		alloc := NewPoolAllocator()
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(1400)), 1400, peer, 80, 40000, 1, 10000, alloc)
		Expect(err).NotTo(HaveOccurred())
		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)

		rpc.Lock() // held by "another caller" for the whole test.
		h.throttle.Add(rpc)

		Consistently(func() int {
			return len(xmit.snapshot())
		}, 100*time.Millisecond, 10*time.Millisecond).Should(Equal(0))

		rpc.Unlock()
		Eventually(func() int {
			return len(xmit.snapshot())
		}, time.Second, 5*time.Millisecond).Should(Equal(1))
	})
})

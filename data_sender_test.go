package homa

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homa-go/homa/internal/protocol"
)

var _ = Describe("Homa.SendData", func() {
	var xmit *fakeTransmitter
	var peer *fakePeer
	var alloc *PoolAllocator

	BeforeEach(func() {
		xmit = &fakeTransmitter{}
		peer = &fakePeer{}
		alloc = NewPoolAllocator()
	})

	It("selects unscheduled vs scheduled priority by offset (§8 scenario 2)", func() {
		peer.unschedPrio = func(length protocol.ByteCount) protocol.Priority {
			Expect(length).To(Equal(protocol.ByteCount(6000)))
			return 6
		}
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(6000)), 6000, peer, 80, 40000, 1, 2000, alloc)
		Expect(err).NotTo(HaveOccurred())
		out.SchedPriority = 2
		// Simulate the receive path having granted up through offset
		// 5600 (beyond what Init's rtt-based unscheduled budget alone
		// would cover).
		out.Granted = 5600

		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)
		h := New(&Config{DontThrottle: true}, xmit)
		h.Close()

		rpc.Lock()
		h.SendData(rpc)
		rpc.Unlock()

		sent := xmit.snapshot()
		Expect(sent).To(HaveLen(4))
		wantOffsets := []protocol.ByteCount{0, 1400, 2800, 4200}
		wantPrios := []uint8{6, 6, 2, 2}
		for i := range sent {
			Expect(sent[i].Header.Offset).To(Equal(wantOffsets[i]))
			Expect(sent[i].VLANTag).To(Equal(wantPrios[i]))
		}
		Expect(out.NextOffset).To(Equal(protocol.ByteCount(5600)))
	})

	It("throttles once the NIC is modelled as backed up (§8 scenario 3)", func() {
		clock := &mockClock{}
		clock.set(11000)
		h := New(&Config{
			LinkMbps:      8,
			MaxNICQueueNs: 3_000_000,
			CPUKHz:        1000,
			Clock:         clock,
		}, xmit)
		h.Close()
		clock.set(10000)

		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(6000)), 6000, peer, 80, 40000, 1, 1_000_000, alloc)
		Expect(err).NotTo(HaveOccurred())
		// Fully granted: only throttling, not the grant window, should
		// stop the loop.
		out.Granted = out.Length

		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)

		rpc.Lock()
		h.SendData(rpc)
		rpc.Unlock()

		Expect(xmit.snapshot()).To(HaveLen(2))
		Expect(out.NextOffset).To(Equal(protocol.ByteCount(2800)))
		head, ok := h.throttle.Head()
		Expect(ok).To(BeTrue())
		Expect(head).To(BeIdenticalTo(rpc))
	})

	It("bypasses throttling for a short message even when the NIC is backed up (§8 scenario 4)", func() {
		clock := &mockClock{}
		clock.set(11000)
		h := New(&Config{
			LinkMbps:         8,
			MaxNICQueueNs:    3_000_000,
			CPUKHz:           1000,
			ThrottleMinBytes: 1000,
			Clock:            clock,
		}, xmit)
		h.Close()
		clock.set(10000)

		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(200)), 200, peer, 80, 40000, 1, 1_000_000, alloc)
		Expect(err).NotTo(HaveOccurred())
		out.Granted = out.Length

		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)

		rpc.Lock()
		h.SendData(rpc)
		rpc.Unlock()

		Expect(xmit.snapshot()).To(HaveLen(1))
		Expect(h.throttle.Empty()).To(BeTrue())
	})

	It("skips a packet whose buffer is still held elsewhere, but still advances past it (§8 scenario 7)", func() {
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(3000)), 3000, peer, 80, 40000, 1, 1_000_000, alloc)
		Expect(err).NotTo(HaveOccurred())
		out.Granted = out.Length

		first, ok := out.PacketAt(0)
		Expect(ok).To(BeTrue())
		first.Retain() // simulate a transmission of packet 0 still in flight.

		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)
		h := New(&Config{DontThrottle: true}, xmit)
		h.Close()

		rpc.Lock()
		h.SendData(rpc)
		rpc.Unlock()

		sent := xmit.snapshot()
		Expect(sent).To(HaveLen(2))
		Expect(sent[0].Header.Offset).To(Equal(protocol.ByteCount(1400)))
		Expect(sent[1].Header.Offset).To(Equal(protocol.ByteCount(2800)))
		Expect(out.NextOffset).To(Equal(protocol.ByteCount(4200)))
	})

	It("logs an anomaly only when the transmitter actually leaks a reference on error", func() {
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(200)), 200, peer, 80, 40000, 1, 1_000_000, alloc)
		Expect(err).NotTo(HaveOccurred())
		out.Granted = out.Length

		By("not logging when the transmitter frees its buffer despite the error")
		spy := &spyLogger{}
		xmitErr := &fakeTransmitter{err: allocError{}}
		h := New(&Config{DontThrottle: true, Logger: spy}, xmitErr)
		h.Close()

		rpc := NewRPC(true, 40000, 0, 80, 1, peer, out)
		rpc.Lock()
		h.SendData(rpc)
		rpc.Unlock()
		Expect(spy.errorCount()).To(Equal(0))

		By("logging when the transmitter leaks a reference on error")
		out2, err := InitOutboundMessage(bytes.NewReader(payloadOf(200)), 200, peer, 80, 40000, 1, 1_000_000, alloc)
		Expect(err).NotTo(HaveOccurred())
		out2.Granted = out2.Length

		spy2 := &spyLogger{}
		xmitLeak := &fakeTransmitter{err: allocError{}, retainExtra: true}
		h2 := New(&Config{DontThrottle: true, Logger: spy2}, xmitLeak)
		h2.Close()

		rpc2 := NewRPC(true, 40000, 0, 80, 1, peer, out2)
		rpc2.Lock()
		h2.SendData(rpc2)
		rpc2.Unlock()
		Expect(spy2.errorCount()).To(Equal(1))
		Expect(spy2.errorf[0]).To(ContainSubstring("data"))
	})
})

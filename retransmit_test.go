package homa

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homa-go/homa/internal/protocol"
)

var _ = Describe("Homa.Resend", func() {
	var h *Homa
	var xmit *fakeTransmitter
	var rpc *RPC

	BeforeEach(func() {
		xmit = &fakeTransmitter{}
		h = New(&Config{DontThrottle: true}, xmit)
		h.Close()

		peer := &fakePeer{}
		alloc := NewPoolAllocator()
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(10000)), 10000, peer, 80, 40000, 1, 10000, alloc)
		Expect(err).NotTo(HaveOccurred())
		rpc = NewRPC(true, 40000, 0, 80, 1, peer, out)
	})

	It("re-emits every packet intersecting the requested range, tagged retransmit+priority (§8 scenario 6)", func() {
		rpc.Lock()
		n := h.Resend(rpc, 1000, 5000, 5)
		rpc.Unlock()

		Expect(n).To(Equal(4))
		sent := xmit.snapshot()
		Expect(sent).To(HaveLen(4))
		wantOffsets := []protocol.ByteCount{0, 1400, 2800, 4200}
		for i, want := range wantOffsets {
			Expect(sent[i].Header.Offset).To(Equal(want))
			Expect(sent[i].Header.Retransmit).To(BeTrue())
			Expect(sent[i].VLANTag).To(Equal(uint8(5)))
		}
		// Resend never touches the send cursor.
		Expect(rpc.Out.NextOffset).To(Equal(protocol.ByteCount(0)))
	})

	It("emits only the packets intersecting a narrower second range", func() {
		rpc.Lock()
		h.Resend(rpc, 1000, 5000, 5)
		n := h.Resend(rpc, 1400, 2800, 7)
		rpc.Unlock()

		Expect(n).To(Equal(1))
		sent := xmit.snapshot()
		Expect(sent).To(HaveLen(5)) // 4 from the first Resend, 1 from the second.
		last := sent[len(sent)-1]
		Expect(last.Header.Offset).To(Equal(protocol.ByteCount(1400)))
		Expect(last.VLANTag).To(Equal(uint8(7)))
	})

	It("skips a packet still held elsewhere", func() {
		first, ok := rpc.Out.PacketAt(0)
		Expect(ok).To(BeTrue())
		first.Retain()

		rpc.Lock()
		n := h.Resend(rpc, 0, 1400, 5)
		rpc.Unlock()

		Expect(n).To(Equal(0))
		Expect(xmit.snapshot()).To(BeEmpty())
	})

	It("logs an anomaly only when the transmitter actually leaks a reference on error", func() {
		peer := &fakePeer{}
		alloc := NewPoolAllocator()

		By("not logging when the transmitter frees its buffer despite the error")
		spy := &spyLogger{}
		xmitErr := &fakeTransmitter{err: allocError{}}
		h2 := New(&Config{DontThrottle: true, Logger: spy}, xmitErr)
		h2.Close()
		out, err := InitOutboundMessage(bytes.NewReader(payloadOf(10000)), 10000, peer, 80, 40000, 1, 10000, alloc)
		Expect(err).NotTo(HaveOccurred())
		rpc2 := NewRPC(true, 40000, 0, 80, 1, peer, out)

		rpc2.Lock()
		h2.Resend(rpc2, 0, 1400, 5)
		rpc2.Unlock()
		Expect(spy.errorCount()).To(Equal(0))

		By("logging when the transmitter leaks a reference on error")
		spy2 := &spyLogger{}
		xmitLeak := &fakeTransmitter{err: allocError{}, retainExtra: true}
		h3 := New(&Config{DontThrottle: true, Logger: spy2}, xmitLeak)
		h3.Close()
		out2, err := InitOutboundMessage(bytes.NewReader(payloadOf(10000)), 10000, peer, 80, 40000, 1, 10000, alloc)
		Expect(err).NotTo(HaveOccurred())
		rpc3 := NewRPC(true, 40000, 0, 80, 1, peer, out2)

		rpc3.Lock()
		h3.Resend(rpc3, 0, 1400, 5)
		rpc3.Unlock()
		Expect(spy2.errorCount()).To(Equal(1))
		Expect(spy2.errorf[0]).To(ContainSubstring("data"))
	})
})

package homa

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/homa-go/homa/internal/protocol"
	"github.com/homa-go/homa/internal/wire"
)

var _ = Describe("Homa.SendControl", func() {
	var h *Homa
	var xmit *fakeTransmitter
	var peer *fakePeer
	var rpc *RPC

	BeforeEach(func() {
		xmit = &fakeTransmitter{}
		h = New(&Config{MaxPrio: 6}, xmit)
		h.Close() // no live pacer needed for control-packet tests.

		peer = &fakePeer{route: "dest-route"}
		rpc = NewRPC(true, 40000, 0, 80, 42, peer, nil)
	})

	It("marshals a GRANT and sends it at Config.MaxPrio, bypassing pacing", func() {
		grant := wire.GrantPayload{Offset: 2000, Priority: 3}
		err := h.SendControl(rpc, protocol.GrantPacketType, grant.Marshal(nil), NewPoolAllocator())
		Expect(err).NotTo(HaveOccurred())

		sent := xmit.snapshot()
		Expect(sent).To(HaveLen(1))
		Expect(sent[0].VLANTag).To(Equal(uint8(6)))
		Expect(sent[0].Route).To(Equal("dest-route"))

		common, rest, err := wire.ParseCommonHeader(sent[0].Payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(common.SPort).To(Equal(uint16(40000)))
		Expect(common.DPort).To(Equal(uint16(80)))
		Expect(common.ID).To(Equal(uint64(42)))
		Expect(common.Type).To(Equal(protocol.GrantPacketType))

		parsedGrant, err := wire.ParseGrantPayload(rest)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsedGrant).To(Equal(grant))

		// Padded to MaxHeader (§6).
		Expect(sent[0].Payload).To(HaveLen(protocol.MaxHeader))
	})

	It("picks the server port as source when the RPC is not the client", func() {
		serverRPC := NewRPC(false, 0, 50000, 80, 7, peer, nil)
		resend := wire.ResendPayload{Offset: 0, Length: 1400, Priority: 5}
		Expect(h.SendControl(serverRPC, protocol.ResendPacketType, resend.Marshal(nil), NewPoolAllocator())).To(Succeed())

		common, _, err := wire.ParseCommonHeader(xmit.snapshot()[0].Payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(common.SPort).To(Equal(uint16(50000)))
	})

	It("returns ErrNoBuffers without transmitting when the allocator fails", func() {
		err := h.SendControl(rpc, protocol.AckPacketType, nil, failingAllocator{})
		Expect(err).To(MatchError(ErrNoBuffers))
		Expect(xmit.snapshot()).To(BeEmpty())
	})

	It("wraps a transmit error in xmitError regardless of the anomaly check", func() {
		xmit.err = allocError{}
		err := h.SendControl(rpc, protocol.AckPacketType, nil, NewPoolAllocator())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("ip transmit"))
	})

	It("does not log an anomaly when the transmitter frees its buffer on error", func() {
		spy := &spyLogger{}
		xmit2 := &fakeTransmitter{err: allocError{}}
		h2 := New(&Config{MaxPrio: 6, Logger: spy}, xmit2)
		h2.Close()

		err := h2.SendControl(rpc, protocol.AckPacketType, nil, NewPoolAllocator())
		Expect(err).To(HaveOccurred())
		Expect(spy.errorCount()).To(Equal(0))
	})

	It("logs an anomaly when the transmitter leaks a reference on error", func() {
		spy := &spyLogger{}
		xmit2 := &fakeTransmitter{err: allocError{}, retainExtra: true}
		h2 := New(&Config{MaxPrio: 6, Logger: spy}, xmit2)
		h2.Close()

		err := h2.SendControl(rpc, protocol.AckPacketType, nil, NewPoolAllocator())
		Expect(err).To(HaveOccurred())
		Expect(spy.errorCount()).To(Equal(1))
		Expect(spy.errorf[0]).To(ContainSubstring("control"))
	})
})

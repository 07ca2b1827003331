package homa

import (
	"sync/atomic"

	"github.com/homa-go/homa/internal/protocol"
	"github.com/homa-go/homa/internal/wire"
)

// PacketBuffer is a preallocated buffer holding a packet header and
// payload (§3, "Packet Buffer"). Its priority tag may be rewritten on
// every send, and it carries a reference count used to detect when a
// prior transmission of the same buffer is still in flight (the
// "shared-buffer guard" of §4.E step 4 and §9's design note on
// modelling held_elsewhere() without leaking platform specifics).
//
// It is the Go analogue of quic-go's packetBuffer (buffer_pool.go),
// generalized from a bare byte slice with a pool-managed refCount to
// one that also owns a parsed DataHeader (rewritten in place on
// retransmission) and a VLAN priority tag.
type PacketBuffer struct {
	// refCount starts at 1 (owned by the OutboundMessage that
	// allocated it). Retain/Release adjust it atomically because the
	// send path and a concurrent IPTransmitter completion callback
	// may touch it from different goroutines.
	refCount int32

	// Header is populated for DATA packets (§3); nil for control
	// packets, which carry their payload as raw Payload bytes only.
	Header *wire.DataHeader

	// Payload holds the packet's user bytes (data packets) or
	// type-specific control payload, already including any padding
	// (§6, "padded to MAX_HEADER bytes").
	Payload []byte

	// vlanTag is the link-layer priority tag last written by
	// congestion.TagPriority.
	vlanTag uint8

	// route caches the pinned destination route (§4.E.sub, "ensure
	// the buffer's route is set; pin it if not").
	route Route

	// transportOffset counts bytes of stale framing in front of the
	// header from a prior IP-stack run, stripped before resubmission
	// (§4.E.sub, "Strip any pre-transport-header bytes").
	transportOffset int
}

// NewDataPacketBuffer builds a PacketBuffer for one DATA packet.
// payload is taken as the buffer's backing array as-is — callers pass
// the SkbAllocator-returned slice they've already filled, not a
// shared or reused one, so there is nothing to defensively copy.
func NewDataPacketBuffer(header wire.DataHeader, payload []byte) *PacketBuffer {
	return &PacketBuffer{
		refCount: 1,
		Header:   &header,
		Payload:  payload,
	}
}

// NewControlPacketBuffer builds a PacketBuffer for one control packet
// out of raw, a protocol.MaxHeader-sized buffer a SkbAllocator has
// already allocated (and zeroed) for it: payload is copied into its
// front, and the rest stays as the padding §6 requires. Unlike an
// earlier version of this constructor, it does not allocate a second
// backing array of its own — the buffer the allocator returned is the
// one that actually gets sent.
func NewControlPacketBuffer(raw, payload []byte) *PacketBuffer {
	copy(raw, payload)
	return &PacketBuffer{refCount: 1, Payload: raw}
}

// Retain increments the reference count, representing a new holder of
// the buffer (e.g. a transmit primitive that hasn't finished writing
// it out yet). It is the analogue of skb_get() in the original.
func (b *PacketBuffer) Retain() {
	atomic.AddInt32(&b.refCount, 1)
}

// Release decrements the reference count. It is the analogue of
// kfree_skb() in the original; this module never frees the
// underlying storage (Go's GC does that), so Release's only
// observable effect is on HeldElsewhere.
func (b *PacketBuffer) Release() {
	if atomic.AddInt32(&b.refCount, -1) < 0 {
		panic("homa: PacketBuffer released too many times")
	}
}

// HeldElsewhere reports whether some holder other than the
// OutboundMessage that owns this buffer is still holding a reference
// to it — i.e. whether a previous transmission of this packet is
// still in flight. §4.E step 4 and §4.F both use this to skip a
// buffer rather than resend or retag it.
func (b *PacketBuffer) HeldElsewhere() bool {
	return atomic.LoadInt32(&b.refCount) > 1
}

// SetVLANTag implements congestion.VLANTagged.
func (b *PacketBuffer) SetVLANTag(tag uint8) { b.vlanTag = tag }

// VLANTag returns the priority tag last written by TagPriority.
func (b *PacketBuffer) VLANTag() uint8 { return b.vlanTag }

// Route returns the buffer's pinned destination route, or nil if none
// has been pinned yet.
func (b *PacketBuffer) Route() Route { return b.route }

// PinRoute sets the buffer's route if it isn't already set (§4.E.sub).
func (b *PacketBuffer) PinRoute(r Route) {
	if b.route == nil {
		b.route = r
	}
}

// StripPreTransportHeader discards transportOffset bytes of stale
// framing left over from a prior IP-stack run and resets the count,
// so retransmissions never resend those bytes (§4.E.sub).
func (b *PacketBuffer) StripPreTransportHeader() {
	if b.transportOffset > 0 && b.transportOffset <= len(b.Payload) {
		b.Payload = b.Payload[b.transportOffset:]
	}
	b.transportOffset = 0
}

// MarkTransportOffset records that n bytes of framing were prepended
// by a previous IP-stack traversal, to be stripped by
// StripPreTransportHeader before the next submission.
func (b *PacketBuffer) MarkTransportOffset(n int) { b.transportOffset = n }

// WireSize returns the number of bytes that will be handed to the
// transmit primitive: header (if any) plus payload.
func (b *PacketBuffer) WireSize() protocol.ByteCount {
	size := len(b.Payload)
	if b.Header != nil {
		size += wire.DataHeaderLen
	}
	return protocol.ByteCount(size)
}

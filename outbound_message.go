package homa

import (
	"io"

	"github.com/homa-go/homa/internal/protocol"
	"github.com/homa-go/homa/internal/wire"
)

// OutboundMessage owns the packet list for one message (§3, §4.C). It
// tracks next_offset/next_packet (the send cursor), granted (the
// receive-path-controlled watermark) and sched_priority. It may be
// mutated from both the send path (DataSender, the pacer) and the
// retransmit path, which is why every mutating method here documents
// which invariants it does or doesn't touch; callers are responsible
// for holding the owning RPC's lock (§5, "Per-RPC state: mutated
// under the RPC's socket lock").
type OutboundMessage struct {
	Length protocol.ByteCount

	// packets is the ordered packet list (§3, "packets"). Index i
	// covers offset i*MaxDataPerPacket.
	packets []*PacketBuffer

	// nextIndex mirrors next_packet: an index into packets, equal to
	// len(packets) once the message is fully drained (the "next_packet
	// == nil" sentinel of the original).
	nextIndex int

	// NextOffset is next_offset (§3): always a multiple of
	// MaxDataPerPacket, or equal to Length — except for the
	// intentional terminal overshoot past Length that §9's first open
	// question calls out; see DataSender and Retransmitter.
	NextOffset protocol.ByteCount

	Unscheduled   protocol.ByteCount
	Granted       protocol.ByteCount
	SchedPriority protocol.Priority
}

// InitOutboundMessage allocates and populates the packet list for a
// new message (§4.C, "Init"). rttBytes is the caller's current
// unscheduled-byte budget (Homa.Config.RTTBytes); it is passed in
// rather than read from a *Homa so this type has no dependency on the
// rest of the package and can be constructed in isolation for tests.
//
// Failures unwind by destroying any packets already built and
// returning the first error encountered, matching the original's
// goto error path: allocation failure maps to ErrNoMemory, a payload
// read failure maps to ErrFault, and an oversized message maps to
// ErrInvalid.
func InitOutboundMessage(
	payload io.Reader,
	length protocol.ByteCount,
	dest Peer,
	dport, sport uint16,
	id uint64,
	rttBytes protocol.ByteCount,
	alloc SkbAllocator,
) (*OutboundMessage, error) {
	if length > protocol.MaxMessageLength {
		return nil, ErrInvalid
	}

	// unscheduled is not capped by length — it's carried on the wire
	// uncapped too (§8 scenario 1: len=3000 still reports
	// unscheduled=10000 when rttBytes=10000). Only granted, below, is
	// ever clamped to length.
	unscheduled := rttBytes

	numPackets := 1
	if length > 0 {
		numPackets = int((length + protocol.MaxDataPerPacket - 1) / protocol.MaxDataPerPacket)
	}

	packets := make([]*PacketBuffer, 0, numPackets)
	built := func(err error) (*OutboundMessage, error) {
		// Destroy any partially built packets before propagating.
		_ = (&OutboundMessage{packets: packets}).Destroy()
		return nil, err
	}

	bytesLeft := length
	for i := 0; i < numPackets; i++ {
		curSize := protocol.MaxDataPerPacket
		if curSize > bytesLeft {
			curSize = bytesLeft
		}
		raw, err := alloc.Alloc(int(curSize))
		if err != nil {
			return built(ErrNoMemory)
		}
		buf := raw[:curSize]
		if curSize > 0 {
			if _, err := io.ReadFull(payload, buf); err != nil {
				return built(ErrFault)
			}
		}
		offset := length - bytesLeft
		h := wire.DataHeader{
			Common: wire.CommonHeader{
				SPort: sport,
				DPort: dport,
				ID:    id,
				Type:  protocol.DataPacketType,
			},
			MessageLength: length,
			Offset:        offset,
			Unscheduled:   unscheduled,
			CutoffVersion: dest.CutoffVersion(),
			Retransmit:    false,
		}
		packets = append(packets, NewDataPacketBuffer(h, buf))
		bytesLeft -= curSize
	}

	granted := unscheduled
	if granted > length {
		granted = length
	}

	return &OutboundMessage{
		Length:        length,
		packets:       packets,
		nextIndex:     0,
		NextOffset:    0,
		Unscheduled:   unscheduled,
		Granted:       granted,
		SchedPriority: 0,
	}, nil
}

// Reset rewinds the send cursor to the beginning, as if no packets
// had ever been sent, preserving every packet buffer and its payload
// (§4.C, "Reset"). Used after a peer indicates it lost receive state.
func (m *OutboundMessage) Reset() {
	m.nextIndex = 0
	m.NextOffset = 0
	m.Granted = m.Unscheduled
	if m.Granted > m.Length {
		m.Granted = m.Length
	}
}

// Destroy releases the message's packet buffers. It is idempotent.
func (m *OutboundMessage) Destroy() error {
	m.packets = nil
	m.nextIndex = 0
	return nil
}

// NumPackets returns the number of packet buffers the message was
// split into.
func (m *OutboundMessage) NumPackets() int { return len(m.packets) }

// PacketAt returns the packet buffer covering index i (0-based, so
// packet i covers offset i*MaxDataPerPacket), and whether i is valid.
func (m *OutboundMessage) PacketAt(i int) (*PacketBuffer, bool) {
	if i < 0 || i >= len(m.packets) {
		return nil, false
	}
	return m.packets[i], true
}

// NextPacket returns the packet the send cursor currently points to,
// or (nil, false) once the message is drained (next_packet == null).
func (m *OutboundMessage) NextPacket() (*PacketBuffer, bool) {
	return m.PacketAt(m.nextIndex)
}

// advanceCursor moves the send cursor to the next packet and advances
// NextOffset by MaxDataPerPacket unconditionally — even past the
// final short packet, producing a terminal NextOffset > Length. This
// is the drained sentinel the original relies on (§9's first open
// question); it is intentional and must not be "corrected" to stop at
// Length.
func (m *OutboundMessage) advanceCursor() {
	m.nextIndex++
	m.NextOffset += protocol.MaxDataPerPacket
}

// Drained reports whether the send cursor has passed the granted
// window or run off the end of the packet list (§4.H's drained check:
// "next_offset >= granted or next_packet == null").
func (m *OutboundMessage) Drained() bool {
	_, ok := m.NextPacket()
	return m.NextOffset >= m.Granted || !ok
}

// RemainingBytes is length - next_offset, the key the throttled list
// sorts by (§3, §4.G). It can be negative once NextOffset has
// overshot Length past the final packet; callers that need a
// non-negative remaining-bytes figure for scheduling should clamp,
// but the throttled list's ordering property holds either way since
// a fully drained message is never (re-)added.
func (m *OutboundMessage) RemainingBytes() protocol.ByteCount {
	return m.Length - m.NextOffset
}

package congestion

import "github.com/homa-go/homa/internal/protocol"

// priorityTagTable maps a "sensible" 0 (lowest) .. 7 (highest)
// priority to the value the link layer's VLAN priority field actually
// expects. The mapping is not identity: it swaps slots 0 and 1,
// because the 802.1Q standard reserves VLAN priority 0 as a middle
// value rather than the lowest. This table is the literal
// reproduction of the original's set_priority() tci[] array
// (original_source/homa_outgoing.c) — §4.B requires it be encoded as
// a constant table, not derived by arithmetic, since the swap is not
// derivable from the priority value alone.
var priorityTagTable = [8]uint8{
	1, // priority 0 -> VLAN tag 1
	0, // priority 1 -> VLAN tag 0
	2,
	3,
	4,
	5,
	6,
	7,
}

// VLANTagged is anything that can carry a priority-bearing VLAN
// header, i.e. a packet buffer. Kept minimal so this package doesn't
// need to depend on the root package's PacketBuffer type.
type VLANTagged interface {
	SetVLANTag(tag uint8)
}

// TagPriority writes p's link-layer tag onto pkt, applying the
// priority swap table above (§4.B).
func TagPriority(pkt VLANTagged, p protocol.Priority) {
	pkt.SetVLANTag(priorityTagTable[p&7])
}

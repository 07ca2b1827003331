package homa

import (
	"github.com/homa-go/homa/internal/congestion"
	"github.com/homa-go/homa/internal/protocol"
)

// Resend re-emits every packet of rpc's outbound message whose
// [offset, offset+MaxDataPerPacket) range intersects [start, end), at
// the given priority (§4.F). It is driven externally — retransmission
// *policy* (when to retransmit) is out of scope per §1's Non-goals;
// this only executes the requested range.
//
// Retransmissions are not subject to pacing, never call
// ThrottledList.Add, and never mutate NextOffset or the send cursor
// (§4.F, §5's ordering guarantees). Callers must hold rpc's lock.
func (h *Homa) Resend(rpc *RPC, start, end protocol.ByteCount, priority protocol.Priority) int {
	sent := 0
	out := rpc.Out
	for i := 0; i < out.NumPackets(); i++ {
		pkt, _ := out.PacketAt(i)
		offset := pkt.Header.Offset

		if offset+protocol.MaxDataPerPacket <= start {
			continue
		}
		if offset >= end {
			break
		}
		if pkt.HeldElsewhere() {
			continue
		}

		pkt.Header.Retransmit = true
		congestion.TagPriority(pkt, priority)
		h.transmitData(rpc, pkt)
		h.metrics.ResentPackets.Inc()
		sent++
	}
	return sent
}

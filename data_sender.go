package homa

import (
	"github.com/homa-go/homa/internal/congestion"
)

// SendData attempts to transmit every packet of rpc's outbound
// message in [next_offset, granted) whose buffer isn't currently
// shared with a prior in-flight transmission (§4.E). It either sends
// packets immediately via the IP transmit primitive, or — once the
// NIC is judged backed up beyond tolerance and the message is long
// enough to be worth deferring — enqueues rpc onto the throttled list
// and returns.
//
// Callers must hold rpc's lock (§5).
func (h *Homa) SendData(rpc *RPC) {
	out := rpc.Out
	for out.NextOffset < out.Granted {
		pkt, ok := out.NextPacket()
		if !ok {
			break
		}

		if h.shouldThrottle(out) {
			h.throttle.Add(rpc)
			return
		}

		out.advanceCursor()

		var priority = out.SchedPriority
		if pkt.Header.Offset < out.Unscheduled {
			priority = rpc.Peer.UnschedPriority(out.Length)
		}

		if pkt.HeldElsewhere() {
			// A prior call's transmission of this packet hasn't
			// finished; skip it without retagging or resending (§4.E
			// step 4). next_offset has already advanced past it, so
			// the next pass over the message will naturally skip it
			// too.
			continue
		}

		congestion.TagPriority(pkt, priority)
		pkt.Header.Retransmit = false

		h.transmitData(rpc, pkt)
	}
}

// shouldThrottle implements §4.E step 1: a message bypasses pacing
// when it's short (remaining bytes at or below throttle_min_bytes) or
// throttling has been disabled outright; otherwise it's deferred once
// the NIC is modelled as backed up beyond max_nic_queue_cycles.
func (h *Homa) shouldThrottle(out *OutboundMessage) bool {
	if h.Config.DontThrottle {
		return false
	}
	if out.RemainingBytes() <= h.Config.ThrottleMinBytes {
		return false
	}
	return h.linkIdle.Backed()
}

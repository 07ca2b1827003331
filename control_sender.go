package homa

import (
	"github.com/homa-go/homa/internal/congestion"
	"github.com/homa-go/homa/internal/protocol"
	"github.com/homa-go/homa/internal/wire"
)

// SendControl emits a fixed-size control packet (grant, resend, ack,
// ...) to rpc's peer at the highest priority, independent of pacing
// (§4.D). payload is the type-specific portion, already marshaled
// (e.g. via wire.GrantPayload.Marshal); this method fills in and
// prepends the common header, then zero-pads the result up to
// protocol.MaxHeader bytes (§6).
//
// Control packets are not paced and never touch the link-idle clock
// (§4.D, "not paced and do not update the Link-Idle Clock").
func (h *Homa) SendControl(rpc *RPC, typ protocol.PacketType, payload []byte, alloc SkbAllocator) error {
	common := wire.CommonHeader{
		SPort: rpc.sourcePort(),
		DPort: rpc.DPort,
		ID:    rpc.ID,
		Type:  typ,
	}
	body := common.Marshal(nil)
	body = append(body, payload...)

	raw, err := alloc.Alloc(protocol.MaxHeader)
	if err != nil {
		return ErrNoBuffers
	}
	buf := NewControlPacketBuffer(raw, body)
	congestion.TagPriority(buf, h.Config.MaxPrio)
	buf.PinRoute(rpc.Peer.Dst())

	if err := h.xmit.QueueXmit(buf, buf.Route()); err != nil {
		h.metrics.ControlXmitErrors.Inc()
		h.anomalyCheck(buf, "control")
		return &xmitError{err: err}
	}
	h.metrics.PacketsSent.WithLabelValues(typ.String()).Inc()
	return nil
}

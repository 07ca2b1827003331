package homa

// transmitData is the common-transmit helper shared by DataSender and
// Retransmitter (§4.E.sub, "Call §4.E.sub (common transmit)"). It:
//
//  1. refreshes the header's cutoff_version from the peer (which may
//     have changed since the message was initialized);
//  2. pins the buffer's route if it isn't already pinned;
//  3. strips any stale pre-transport-header bytes from a prior IP run;
//  4. submits to the IP transmit primitive, holding our own temporary
//     reference across the call so a concurrent release elsewhere
//     can't tear the buffer down underneath it, then drops that
//     reference immediately so the refcount is back at baseline
//     before anything inspects it;
//  5. on error, increments the data_xmit_errors metric and runs the
//     anomaly check against that baseline (§7, §9's second open
//     question: both callers share this one code path now, so the
//     anomaly policy is applied uniformly instead of diverging between
//     the original send and resend paths);
//  6. regardless of outcome, advances the link-idle clock by the
//     packet's wire size.
//
// Per-packet errors are reported via metrics only (§7): this method
// never returns an error to its caller, since the send loop must
// neither abort nor retry inline.
func (h *Homa) transmitData(rpc *RPC, buf *PacketBuffer) {
	buf.Header.CutoffVersion = rpc.Peer.CutoffVersion()
	buf.PinRoute(rpc.Peer.Dst())
	buf.StripPreTransportHeader()

	buf.Retain()
	err := h.xmit.QueueXmit(buf, buf.Route())
	// Drop our own temporary reference before the anomaly check below,
	// the way control_sender.go's SendControl checks HeldElsewhere with
	// no surrounding Retain/Release at all — otherwise our own hold
	// would make HeldElsewhere true on every error, genuine leak or not.
	buf.Release()
	if err != nil {
		h.metrics.DataXmitErrors.Inc()
		h.anomalyCheck(buf, "data")
	}

	h.metrics.PacketsSent.WithLabelValues("DATA").Inc()
	h.linkIdle.Advance(buf.WireSize())
}

// anomalyCheck logs at notice level ("Errorf", the closest level this
// module's Logger exposes to the original's KERN_NOTICE) if the
// transmit primitive appears to have returned an error without
// freeing the buffer, i.e. some holder other than us is still
// referencing it (§7, §9).
func (h *Homa) anomalyCheck(buf *PacketBuffer, kind string) {
	if buf.HeldElsewhere() {
		h.logger.Errorf("ip transmit returned error without freeing %s packet", kind)
	}
}

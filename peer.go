package homa

import (
	"github.com/homa-go/homa/internal/protocol"
)

// Route stands in for the IP-layer route/flow cache entry a peer
// pins before transmitting (§6, "peer.dst"). The sender core never
// inspects it; it only holds and passes it to IPTransmitter.
type Route interface{}

// Peer is the external, read-only collaborator described in §3
// ("Peer (external, referenced read-only by sender)") and §6
// ("Required from collaborators"). Route caches, cutoff-version
// bookkeeping and the unscheduled-priority table are all owned by the
// receive path; the sender core only ever reads them.
type Peer interface {
	// Dst returns the destination route, pinning it if that hasn't
	// happened yet for this peer.
	Dst() Route

	// CutoffVersion returns the peer's current unscheduled-priority
	// cutoff generation number (§6, "peer.cutoff_version").
	CutoffVersion() uint16

	// UnschedPriority selects the priority for an unscheduled packet
	// of a message of the given total length, based on the peer's
	// advertised cutoff table (§6, "peer.unsched_priority").
	UnschedPriority(length protocol.ByteCount) protocol.Priority
}

// SkbAllocator is the buffer allocator collaborator of §6
// ("alloc_skb(size) -> Result<buffer, err>, free_skb(buffer)"). The
// sender core calls Alloc once per packet buffer it needs and never
// calls Free directly — PacketBuffer.Release is the free path, mirrors
// how quic-go's packetBuffer.Release returns storage to a sync.Pool
// rather than exposing a raw free function to callers.
type SkbAllocator interface {
	Alloc(size int) ([]byte, error)
}

// IPTransmitter is the IP-layer submission primitive of §6
// ("ip_queue_xmit(socket, buffer, flow) -> Result<(), errno>"). On
// error, the primitive is expected to free the buffer; if it does
// not, the core detects the anomaly via the buffer's reference count
// and logs it (§7).
type IPTransmitter interface {
	QueueXmit(buf *PacketBuffer, route Route) error
}

package homa

import (
	"container/list"
	"sync"
)

// RPC is the sender-side handle the core components operate on: one
// per request/response exchange, identified by (client_port, id) per
// the glossary. RPC lifecycle bookkeeping beyond what the sender
// mutates (state transitions, completion, receive-side fields) is an
// external collaborator's responsibility per §1; this type carries
// only the fields the outbound path needs.
type RPC struct {
	// mu is "the RPC's socket lock" of §5: DataSender, the pacer and
	// the retransmit path all mutate Out under it.
	mu sync.Mutex

	IsClient bool
	// ClientPort/ServerPort let ControlSender pick the right source
	// port (§4.D step 1) without needing a full socket abstraction.
	ClientPort uint16
	ServerPort uint16
	DPort      uint16
	ID         uint64

	Peer Peer
	Out  *OutboundMessage

	// throttleElem is non-nil while this RPC is linked into a
	// ThrottledList. It is read and written only while holding that
	// list's throttle_lock (§3, "throttle_lock: protects list
	// mutation"), never under mu.
	throttleElem *list.Element
}

// NewRPC builds an RPC wrapping an already-initialized OutboundMessage.
func NewRPC(isClient bool, clientPort, serverPort, dport uint16, id uint64, peer Peer, out *OutboundMessage) *RPC {
	return &RPC{
		IsClient:   isClient,
		ClientPort: clientPort,
		ServerPort: serverPort,
		DPort:      dport,
		ID:         id,
		Peer:       peer,
		Out:        out,
	}
}

// Lock acquires the RPC's socket lock.
func (r *RPC) Lock() { r.mu.Lock() }

// Unlock releases the RPC's socket lock.
func (r *RPC) Unlock() { r.mu.Unlock() }

// TryLock attempts to acquire the RPC's socket lock without blocking,
// used by the pacer to detect contention with a user-context caller
// (§4.H, "Acquire the RPC's socket lock; if contended ... release all
// locks and return without making progress").
func (r *RPC) TryLock() bool { return r.mu.TryLock() }

// sourcePort returns the source port ControlSender should stamp on a
// control packet for this RPC (§4.D step 1).
func (r *RPC) sourcePort() uint16 {
	if r.IsClient {
		return r.ClientPort
	}
	return r.ServerPort
}

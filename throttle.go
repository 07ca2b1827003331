package homa

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// ThrottledList is the ordered set of RPCs awaiting pacing, sorted by
// ascending remaining bytes — SRPT-like, shortest first (§3, §4.G).
// Writers (any send-path goroutine calling Add) serialize under mu;
// the pacer, the list's sole reader and sole remover, may read the
// current head via Head without taking mu at all, per §4.H's RCU-style
// guarantee ("readers see a consistent snapshot of the head even
// while the pacer mutates tail entries"). This is realized with an
// atomic pointer to the head RPC, updated by every mutation that
// changes what the front of the list is — the first variant suggested
// by §9's design note on RCU-style list reads.
type ThrottledList struct {
	mu   sync.Mutex
	l    list.List
	head atomic.Pointer[RPC]

	// wake is a capacity-1 channel: a buffered semaphore the pacer
	// parks on when the list is empty (§9, "a parked worker woken by
	// a counting semaphore or condition variable").
	wake chan struct{}
}

func newThrottledList() *ThrottledList {
	t := &ThrottledList{wake: make(chan struct{}, 1)}
	t.l.Init()
	return t
}

// Add links rpc into the list if it isn't already linked, preserving
// ascending-remaining-bytes order, then wakes the pacer (§4.G,
// "Add"). It is idempotent: an RPC already on the list is left where
// it is.
//
// Ties insert after existing equal-remaining-bytes entries (FIFO
// among ties), matching the original's "first entry whose remaining
// bytes *exceed* rpc's" scan.
func (t *ThrottledList) Add(rpc *RPC) {
	t.mu.Lock()
	if rpc.throttleElem != nil {
		t.mu.Unlock()
		return
	}
	remaining := rpc.Out.RemainingBytes()

	var inserted *list.Element
	for e := t.l.Front(); e != nil; e = e.Next() {
		candidate := e.Value.(*RPC)
		if candidate.Out.RemainingBytes() > remaining {
			inserted = t.l.InsertBefore(rpc, e)
			break
		}
	}
	if inserted == nil {
		inserted = t.l.PushBack(rpc)
	}
	rpc.throttleElem = inserted
	t.syncHeadLocked()
	t.mu.Unlock()

	t.wakePacer()
}

// Remove unlinks rpc from the list. Per §4.G/§4.H, only the pacer ever
// calls this, and only once it has determined the RPC is fully
// drained.
func (t *ThrottledList) Remove(rpc *RPC) {
	t.mu.Lock()
	if rpc.throttleElem != nil {
		t.l.Remove(rpc.throttleElem)
		rpc.throttleElem = nil
		t.syncHeadLocked()
	}
	t.mu.Unlock()
}

// syncHeadLocked refreshes the atomic head pointer; callers must hold
// mu.
func (t *ThrottledList) syncHeadLocked() {
	if e := t.l.Front(); e != nil {
		t.head.Store(e.Value.(*RPC))
	} else {
		t.head.Store(nil)
	}
}

// Head returns the RPC with the fewest remaining bytes, without
// blocking on a concurrent Add to some other position in the list
// (§4.H, §5).
func (t *ThrottledList) Head() (*RPC, bool) {
	rpc := t.head.Load()
	return rpc, rpc != nil
}

// Empty reports whether the list currently has no entries. It is a
// convenience wrapper around Head for the pacer's idle check (§4.H
// step 1).
func (t *ThrottledList) Empty() bool {
	_, ok := t.Head()
	return !ok
}

// wakePacer performs a non-blocking send on wake; if the pacer is
// already scheduled to wake (or already running), the buffered slot
// is already full and this is a no-op.
func (t *ThrottledList) wakePacer() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

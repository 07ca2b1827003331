package homa

import (
	"sync/atomic"
)

// Pacer is the dedicated long-running task of §4.H: it drains the
// head of the throttled list, respecting the link-idle clock, and is
// the throttled list's sole remover.
type Pacer struct {
	h *Homa

	exit    atomic.Bool
	wake    chan struct{}
	stopped chan struct{}
}

func newPacer(h *Homa) *Pacer {
	return &Pacer{
		h:       h,
		wake:    h.throttle.wake,
		stopped: make(chan struct{}),
	}
}

// start launches the pacer goroutine (§5, "a single dedicated pacer
// task").
func (p *Pacer) start() {
	go p.run()
}

// stop sets pacer_exit and wakes the pacer, then blocks until it has
// actually exited (§5, "Cancellation": "the shutdown call must not
// return until the pacer task has actually exited").
func (p *Pacer) stop() {
	p.exit.Store(true)
	select {
	case p.wake <- struct{}{}:
	default:
	}
	<-p.stopped
}

func (p *Pacer) run() {
	defer close(p.stopped)

	start, _ := p.h.linkIdle.Peek()
	for {
		if p.exit.Load() {
			return
		}
		if p.h.throttle.Empty() {
			now, _ := p.h.linkIdle.Peek()
			p.h.metrics.PacerCycles.Add(float64(now - start))
			<-p.wake
			start, _ = p.h.linkIdle.Peek()
			continue
		}
		p.pacerXmit()
		now, _ := p.h.linkIdle.Peek()
		p.h.metrics.PacerCycles.Add(float64(now - start))
		start = now
	}
}

// pacerXmit implements §4.H's PacerXmit: cooperative-spin until the
// NIC is below its max-queue threshold, then send from the head RPC.
func (p *Pacer) pacerXmit() {
	for p.h.linkIdle.Backed() {
		if p.exit.Load() {
			return
		}
	}

	rpc, ok := p.h.throttle.Head()
	if !ok {
		return
	}

	if !rpc.TryLock() {
		// Contended with a user-context caller; make no progress this
		// round rather than block (§4.H).
		return
	}
	defer rpc.Unlock()

	p.h.SendData(rpc)

	if rpc.Out.Drained() {
		p.h.throttle.Remove(rpc)
	}
}

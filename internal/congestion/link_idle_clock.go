// Package congestion holds the two small, performance-critical pieces
// of link modelling the sender core needs: the link-idle clock (§4.A)
// and the priority tag mapping (§4.B). It is named after quic-go's
// internal/congestion, whose token-bucket pacer (internal/congestion/pacer.go)
// this package's LinkIdleClock is adapted from — Homa's NIC-queue
// model tracks a future idle instant directly (via CAS) rather than a
// refillable byte budget, so the two are structurally similar
// (an atomically-updated "when can I send next" value) but not
// identical in algorithm.
package congestion

import (
	"sync/atomic"

	"github.com/homa-go/homa/internal/protocol"
)

// Clock returns a monotonic cycle count, standing in for the
// original's get_cycles(). Tests substitute a fake so link-idle-time
// arithmetic can be checked against exact literal values (§8).
type Clock interface {
	Cycles() int64
}

// TSCClock is the production Clock, using the Go runtime's monotonic
// clock reading (via time.Now()'s monotonic component) as a stand-in
// for a CPU timestamp counter. Cycle arithmetic throughout this
// package treats its output as opaque ticks, never as wall time.
type TSCClock struct{}

// Cycles implements Clock.
func (TSCClock) Cycles() int64 { return nowCycles() }

// LinkIdleClock atomically tracks the future instant at which a NIC's
// transmit queue is modelled to drain (§3, §4.A). All methods are
// lock-free: Advance is a bounded compare-and-swap retry loop, and
// Peek is a single atomic load.
//
// Parameters (cycles_per_kbyte, max_nic_queue_cycles) are recomputed
// from link_mbps/max_nic_queue_ns whenever they change; see
// RecomputeParams, which preserves the original's operation order to
// avoid 64-bit overflow at expected values (§4.A).
type LinkIdleClock struct {
	clock Clock

	linkIdleTime int64 // atomic; cycles

	cyclesPerKbyte    int64 // atomic
	maxNICQueueCycles int64 // atomic
}

// NewLinkIdleClock builds a LinkIdleClock backed by clock, with
// parameters computed from the given link rate and max queue delay.
// cpuKHz is the assumed frequency of the Cycles() counter.
func NewLinkIdleClock(clock Clock, linkMbps int, maxNICQueueNs int64, cpuKHz int64) *LinkIdleClock {
	c := &LinkIdleClock{clock: clock}
	c.RecomputeParams(linkMbps, maxNICQueueNs, cpuKHz)
	now := clock.Cycles()
	atomic.StoreInt64(&c.linkIdleTime, now)
	return c
}

// RecomputeParams recomputes cycles_per_kbyte and max_nic_queue_cycles
// from link_mbps/max_nic_queue_ns/cpu_khz, preserving the original
// homa_outgoing_sysctl_changed()'s operation order:
//
//	cycles_per_kbyte      = 8*cpu_khz / link_mbps
//	max_nic_queue_cycles  = (max_nic_queue_ns * cpu_khz) / 1_000_000
//
// Changing this order can overflow or lose precision at expected
// parameter values; see §4.A.
func (c *LinkIdleClock) RecomputeParams(linkMbps int, maxNICQueueNs int64, cpuKHz int64) {
	cyclesPerKbyte := (8 * cpuKHz) / int64(linkMbps)
	maxNICQueueCycles := (maxNICQueueNs * cpuKHz) / 1000000
	atomic.StoreInt64(&c.cyclesPerKbyte, cyclesPerKbyte)
	atomic.StoreInt64(&c.maxNICQueueCycles, maxNICQueueCycles)
}

// MaxNICQueueCycles returns the current max-nic-queue-cycles
// parameter (recomputed by RecomputeParams).
func (c *LinkIdleClock) MaxNICQueueCycles() int64 {
	return atomic.LoadInt64(&c.maxNICQueueCycles)
}

// Peek returns the current (now, link_idle) pair. Callers use it to
// test `now + max_nic_queue_cycles < link_idle`, i.e. whether the NIC
// is backed up beyond tolerance (§4.A).
func (c *LinkIdleClock) Peek() (now, linkIdle int64) {
	return c.clock.Cycles(), atomic.LoadInt64(&c.linkIdleTime)
}

// Backed reports whether the NIC queue is currently modelled as
// backed up beyond max_nic_queue_cycles, i.e. now + maxNICQueueCycles
// < link_idle_time.
func (c *LinkIdleClock) Backed() bool {
	now, idle := c.Peek()
	return now+c.MaxNICQueueCycles() < idle
}

// Advance accounts for a packet of wireBytes (payload size, excluding
// IP/VLAN/Ethernet framing, which this method adds) just handed to
// the transmit primitive, by moving link_idle_time forward. It is
// lock-free: a bounded compare-and-swap retry loop, safe under
// concurrent callers on both the send path and the pacer (§4.A,
// §5 "Link-idle clock: lock-free atomic CAS").
func (c *LinkIdleClock) Advance(wireBytes protocol.ByteCount) {
	bytes := wireBytes + protocol.IPHeaderBytes + protocol.VLANHeaderBytes + protocol.EthOverheadBytes
	cyclesPerKbyte := atomic.LoadInt64(&c.cyclesPerKbyte)
	cyclesForPacket := (int64(bytes) * cyclesPerKbyte) / 1000

	for {
		now := c.clock.Cycles()
		oldIdle := atomic.LoadInt64(&c.linkIdleTime)
		base := oldIdle
		if oldIdle < now {
			base = now
		}
		newIdle := base + cyclesForPacket
		if atomic.CompareAndSwapInt64(&c.linkIdleTime, oldIdle, newIdle) {
			return
		}
	}
}

// Package homa implements the outbound side of a Homa-style low
// latency datagram RPC transport: message fragmentation, paced
// transmission, unscheduled/scheduled priority assignment,
// retransmission and the SRPT pacer that serializes transmission
// across competing RPCs (see spec §1-§2).
package homa

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/homa-go/homa/internal/congestion"
	"github.com/homa-go/homa/internal/protocol"
	"github.com/homa-go/homa/internal/utils"
	"github.com/homa-go/homa/metrics"
)

// Config bundles the process-wide knobs of §6 ("Configuration
// knobs"), mirroring the defaults-plus-populate idiom of quic-go's
// config.go.
type Config struct {
	// LinkMbps is the modelled link rate in megabits/second.
	LinkMbps int
	// MaxNICQueueNs is the largest NIC transmit queue delay, in
	// nanoseconds, the sender will tolerate before throttling.
	MaxNICQueueNs int64
	// RTTBytes is the default unscheduled-byte budget for a new
	// message. InitOutboundMessage stores it as the message's
	// Unscheduled value without capping it by the message length; only
	// the initial Granted is clamped to min(length, RTTBytes).
	RTTBytes protocol.ByteCount
	// ThrottleMinBytes is the remaining-bytes floor at or below which a
	// message bypasses pacing entirely (§4.E step 1).
	ThrottleMinBytes protocol.ByteCount
	// MaxPrio is the highest priority level available (§3).
	MaxPrio protocol.Priority
	// DontThrottle corresponds to HOMA_FLAG_DONT_THROTTLE: when set,
	// the data sender never enqueues onto the throttled list.
	DontThrottle bool
	// CPUKHz is the assumed frequency of the link-idle clock's cycle
	// counter (§6, "cpu_khz").
	CPUKHz int64

	// Clock overrides the link-idle clock's time source; nil selects
	// congestion.TSCClock{}. Tests supply a fake to hit exact literal
	// values (§8's end-to-end scenarios).
	Clock congestion.Clock

	// Logger overrides library-internal logging; nil selects
	// utils.NopLogger.
	Logger utils.Logger

	// Registerer is the Prometheus registerer metrics are registered
	// against; nil selects prometheus.NewRegistry() (not
	// DefaultRegisterer, so that multiple Homa contexts in one
	// process — as tests routinely create — don't collide).
	Registerer prometheus.Registerer
}

// DefaultConfig returns a Config populated with the values used
// throughout §8's end-to-end scenarios' surrounding text and typical
// datacenter NIC parameters.
func DefaultConfig() *Config {
	return &Config{
		LinkMbps:         10000,
		MaxNICQueueNs:    200000,
		RTTBytes:         10000,
		ThrottleMinBytes: 1000,
		MaxPrio:          protocol.MaxPrio,
		// congestion.TSCClock, the default Clock, ticks in nanoseconds.
		CPUKHz: 1000000,
	}
}

func populateConfig(c *Config) *Config {
	if c == nil {
		c = &Config{}
	}
	cfg := *c
	if cfg.LinkMbps == 0 {
		cfg.LinkMbps = DefaultConfig().LinkMbps
	}
	if cfg.MaxNICQueueNs == 0 {
		cfg.MaxNICQueueNs = DefaultConfig().MaxNICQueueNs
	}
	if cfg.RTTBytes == 0 {
		cfg.RTTBytes = DefaultConfig().RTTBytes
	}
	if cfg.ThrottleMinBytes == 0 {
		cfg.ThrottleMinBytes = DefaultConfig().ThrottleMinBytes
	}
	if cfg.MaxPrio == 0 {
		cfg.MaxPrio = DefaultConfig().MaxPrio
	}
	if cfg.CPUKHz == 0 {
		cfg.CPUKHz = DefaultConfig().CPUKHz
	}
	if cfg.Clock == nil {
		cfg.Clock = congestion.TSCClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = utils.NopLogger
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}
	return &cfg
}

// Homa is the process-wide state of §3 ("Homa (process-wide) State"):
// the link-idle clock, the throttled list and its pacer, and the
// configuration knobs everything else reads. One value is normally
// shared by every RPC in a process; a test harness may construct
// several independent ones.
type Homa struct {
	Config *Config

	linkIdle *congestion.LinkIdleClock
	throttle *ThrottledList
	metrics  *metrics.Metrics
	logger   utils.Logger
	pacer    *Pacer
	xmit     IPTransmitter
}

// New builds a Homa context and starts its pacer goroutine. Callers
// must call Close to stop the pacer before dropping the last
// reference (§5, "Cancellation").
func New(config *Config, xmit IPTransmitter) *Homa {
	cfg := populateConfig(config)
	h := &Homa{
		Config:   cfg,
		linkIdle: congestion.NewLinkIdleClock(cfg.Clock, cfg.LinkMbps, cfg.MaxNICQueueNs, cfg.CPUKHz),
		throttle: newThrottledList(),
		metrics:  metrics.New(cfg.Registerer),
		logger:   cfg.Logger,
		xmit:     xmit,
	}
	h.pacer = newPacer(h)
	h.pacer.start()
	return h
}

// Close shuts the pacer down and waits for it to exit (§5,
// "Cancellation": "the shutdown call must not return until the pacer
// task has actually exited").
func (h *Homa) Close() {
	h.pacer.stop()
}

// RecomputeLinkParams recomputes cycles_per_kbyte and
// max_nic_queue_cycles after LinkMbps or MaxNICQueueNs changes (§4.A,
// "Parameter recomputation").
func (h *Homa) RecomputeLinkParams(linkMbps int, maxNICQueueNs int64) {
	h.Config.LinkMbps = linkMbps
	h.Config.MaxNICQueueNs = maxNICQueueNs
	h.linkIdle.RecomputeParams(linkMbps, maxNICQueueNs, h.Config.CPUKHz)
}

// Metrics exposes the counters this context increments, for a
// diagnostic snapshot loop (see cmd/homasend) or a test assertion.
func (h *Homa) Metrics() *metrics.Metrics { return h.metrics }

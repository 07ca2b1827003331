// Package metrics exposes the counters listed in §6 ("Metrics
// emitted") as Prometheus collectors, following the same
// registerer-scoped construction pattern as quic-go's
// metrics/tracer.go.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "homa"

// Metrics bundles the counters the sender core increments. A value is
// owned by one *Homa context (see the root package), so that two
// contexts created in the same process (as tests routinely do) don't
// fight over one set of process-wide Prometheus collectors.
type Metrics struct {
	PacketsSent       *prometheus.CounterVec
	ControlXmitErrors prometheus.Counter
	DataXmitErrors    prometheus.Counter
	ResentPackets     prometheus.Counter
	PacerCycles       prometheus.Counter
}

// New creates a Metrics bundle and registers it with registerer. Pass
// prometheus.NewRegistry() in tests to avoid collisions with other
// Homa contexts in the same process; pass prometheus.DefaultRegisterer
// in a long-running process.
func New(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		PacketsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_sent_total",
			Help:      "Packets transmitted, by packet type.",
		}, []string{"type"}),
		ControlXmitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_xmit_errors_total",
			Help:      "Control packet transmissions that returned an error from the IP layer.",
		}),
		DataXmitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_xmit_errors_total",
			Help:      "Data packet transmissions that returned an error from the IP layer.",
		}),
		ResentPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resent_packets_total",
			Help:      "Packets emitted by the retransmitter.",
		}),
		PacerCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pacer_cycles_total",
			Help:      "Cycles the pacer has spent active, excluding time parked waiting for throttled_rpcs to become non-empty.",
		}),
	}
	for _, c := range []prometheus.Collector{
		m.PacketsSent, m.ControlXmitErrors, m.DataXmitErrors, m.ResentPackets, m.PacerCycles,
	} {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}
	return m
}

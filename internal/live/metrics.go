// Package live – Prometheus collectors for the delivery layer.
package live

import "github.com/prometheus/client_golang/prometheus"

var (
	// connectionsGauge tracks the total number of open live sinks.
	connectionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Current number of registered live event sinks.",
		},
	)

	// dispatchedEvents counts successful sink writes by event type.
	dispatchedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_events_dispatched_total",
			Help: "Total number of events written to live sinks.",
		},
		[]string{"type"},
	)

	// dispatchFailures counts swallowed sink write failures by event type.
	dispatchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "live_dispatch_failures_total",
			Help: "Total number of sink writes that failed and were dropped.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(connectionsGauge, dispatchedEvents, dispatchFailures)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package presence

import "github.com/prometheus/client_golang/prometheus"

// Connections is the gauge of live presence sessions by role.
// Use RegisterMetrics to register this with a Prometheus registry.
var Connections = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "gatehouse_presence_connections",
		Help: "Number of live presence connections",
	},
	[]string{"role"},
)

// EventsDropped counts events evicted from lagging subscribers.
var EventsDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "gatehouse_presence_events_dropped_total",
		Help: "Total number of presence events dropped for lagging subscribers",
	},
)

// RegisterMetrics registers presence metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Connections)
	reg.MustRegister(EventsDropped)
}

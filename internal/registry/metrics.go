package registry

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the registry's Prometheus collectors, grounded on the
// teacher's metrics.go counter/gauge set adapted from WebSocket connection
// metrics to service-registration metrics.
type Metrics struct {
	registrationsTotal prometheus.Counter
	activeServices     prometheus.Gauge
	lookupsTotal        prometheus.Counter
	activeWatches       prometheus.Gauge
	notificationsSent   prometheus.Counter
	notificationsDropped prometheus.Counter
	connectionsTotal    prometheus.Counter
	malformedFrames     prometheus.Counter
}

// NewMetrics registers and returns a fresh Metrics set against reg. Callers
// that need isolated test registries should pass prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		registrationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "registry", Name: "registrations_total",
			Help: "Total number of RegisterService requests processed.",
		}),
		activeServices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind", Subsystem: "registry", Name: "active_services",
			Help: "Number of currently live (non-expired) service entries.",
		}),
		lookupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "registry", Name: "lookups_total",
			Help: "Total number of Lookup/Discover requests processed.",
		}),
		activeWatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind", Subsystem: "registry", Name: "active_watches",
			Help: "Number of currently open Watch streams.",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "registry", Name: "watch_notifications_sent_total",
			Help: "Total number of watch notifications successfully delivered to a sink.",
		}),
		notificationsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "registry", Name: "watch_notifications_dropped_total",
			Help: "Total number of watch notifications dropped due to a full or stale sink.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "registry", Name: "connections_total",
			Help: "Total number of TCP connections accepted.",
		}),
		malformedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "registry", Name: "malformed_frames_total",
			Help: "Total number of connections dropped due to a malformed frame.",
		}),
	}
	reg.MustRegister(
		m.registrationsTotal, m.activeServices, m.lookupsTotal, m.activeWatches,
		m.notificationsSent, m.notificationsDropped, m.connectionsTotal, m.malformedFrames,
	)
	return m
}

// refresh pulls point-in-time counts from store/watches into the gauges.
// Counters are updated incrementally at the call site instead.
func (m *Metrics) refresh(storeStats Stats, watchStats WatchStats) {
	m.activeServices.Set(float64(storeStats.ActiveServices))
	m.activeWatches.Set(float64(watchStats.ActiveWatches))
}

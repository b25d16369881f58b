package publisher

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds one publisher's Prometheus collectors, grounded on the
// teacher's metrics.go (droppedBroadcastsDetailed, clientSendBufferSize)
// generalized from per-connection WS broadcast metrics to per-topic
// fan-out metrics. Registered against the default registry so a process
// embedding several Publishers distinguishes them by the "service" label.
type Metrics struct {
	publishesTotal    prometheus.Counter
	fanoutWrites      prometheus.Counter
	fanoutDropped     prometheus.Counter
	activeSubscribers prometheus.Gauge
	heartbeatFailures prometheus.Counter
}

func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		publishesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "publisher", Name: "publishes_total",
			Help: "Total number of values published on this topic.", ConstLabels: labels,
		}),
		fanoutWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "publisher", Name: "fanout_writes_total",
			Help: "Total number of Publish frames successfully written to subscribers.", ConstLabels: labels,
		}),
		fanoutDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "publisher", Name: "fanout_dropped_total",
			Help: "Total number of values dropped: fan-out channel overflow or subscriber write failure.", ConstLabels: labels,
		}),
		activeSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wind", Subsystem: "publisher", Name: "active_subscribers",
			Help: "Number of currently connected subscribers.", ConstLabels: labels,
		}),
		heartbeatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "publisher", Name: "heartbeat_failures_total",
			Help: "Total number of failed registry re-registration attempts.", ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{m.publishesTotal, m.fanoutWrites, m.fanoutDropped, m.activeSubscribers, m.heartbeatFailures} {
		_ = prometheus.Register(c)
	}
	return m
}

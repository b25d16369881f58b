package client

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds client-side Prometheus collectors shared across
// Subscribe/Call callers in one process, grounded on metrics.go's counter
// conventions.
type Metrics struct {
	rpcCallsTotal   prometheus.Counter
	rpcTimeouts     prometheus.Counter
	rpcErrors       prometheus.Counter
	subReconnects   prometheus.Counter
}

var defaultMetrics = newMetrics()

func newMetrics() *Metrics {
	m := &Metrics{
		rpcCallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "client", Name: "rpc_calls_total",
			Help: "Total number of RPC calls issued.",
		}),
		rpcTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "client", Name: "rpc_timeouts_total",
			Help: "Total number of RPC calls that timed out.",
		}),
		rpcErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "client", Name: "rpc_errors_total",
			Help: "Total number of RPC calls that returned a server-side error.",
		}),
		subReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "client", Name: "subscription_reconnects_total",
			Help: "Total number of subscription reconnect attempts.",
		}),
	}
	for _, c := range []prometheus.Collector{m.rpcCallsTotal, m.rpcTimeouts, m.rpcErrors, m.subReconnects} {
		_ = prometheus.Register(c)
	}
	return m
}

package rpcserver

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds one RPC server's Prometheus collectors, grounded on
// metrics.go's counter/gauge conventions.
type Metrics struct {
	callsTotal        prometheus.Counter
	callErrors        prometheus.Counter
	methodNotFound    prometheus.Counter
	heartbeatFailures prometheus.Counter
}

func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}
	m := &Metrics{
		callsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "rpcserver", Name: "calls_total",
			Help: "Total number of RpcCall requests received.", ConstLabels: labels,
		}),
		callErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "rpcserver", Name: "call_errors_total",
			Help: "Total number of RpcCall requests that returned a handler error.", ConstLabels: labels,
		}),
		methodNotFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "rpcserver", Name: "method_not_found_total",
			Help: "Total number of RpcCall requests for an unregistered method.", ConstLabels: labels,
		}),
		heartbeatFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wind", Subsystem: "rpcserver", Name: "heartbeat_failures_total",
			Help: "Total number of failed registry re-registration attempts.", ConstLabels: labels,
		}),
	}
	for _, c := range []prometheus.Collector{m.callsTotal, m.callErrors, m.methodNotFound, m.heartbeatFailures} {
		_ = prometheus.Register(c)
	}
	return m
}

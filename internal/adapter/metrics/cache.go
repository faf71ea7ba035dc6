package metrics

import "github.com/prometheus/client_golang/prometheus"

// StateStoreMetrics holds Prometheus metrics for the last-reading mirror.
type StateStoreMetrics struct {
	Operations   *prometheus.CounterVec
	CircuitState prometheus.Gauge
}

// NewStateStoreMetrics creates and registers state store metrics on the given registry.
func NewStateStoreMetrics(reg prometheus.Registerer) *StateStoreMetrics {
	m := &StateStoreMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "state_store",
			Name:      "operations_total",
			Help:      "Total number of state store operations, by operation and status.",
		}, []string{"operation", "status"}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state_store",
			Name:      "circuit_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.Operations, m.CircuitState)
	return m
}

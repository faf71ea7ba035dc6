package metrics

import "github.com/prometheus/client_golang/prometheus"

// SensorMetrics holds Prometheus metrics for reading sources.
type SensorMetrics struct {
	ReadingsReceived *prometheus.CounterVec
	DecodeFailures   *prometheus.CounterVec
	PublishFailures  prometheus.Counter
}

// NewSensorMetrics creates and registers sensor metrics on the given registry.
func NewSensorMetrics(reg prometheus.Registerer) *SensorMetrics {
	m := &SensorMetrics{
		ReadingsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "readings_received_total",
			Help:      "Total number of readings produced by a source, by source.",
		}, []string{"source"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "decode_failures_total",
			Help:      "Messages from a source that could not be decoded into a reading.",
		}, []string{"source"}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sensor",
			Name:      "publish_failures_total",
			Help:      "Readings rejected by the broadcaster.",
		}),
	}

	reg.MustRegister(m.ReadingsReceived, m.DecodeFailures, m.PublishFailures)
	return m
}

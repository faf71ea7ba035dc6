package sensor

import (
	"log/slog"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
)

const (
	sourceSimulator = "simulator"
	sourceMQTT      = "mqtt"
	sourceKafka     = "kafka"
)

// forward decodes a bus payload and hands it to pub. Bad payloads and rejected
// readings are logged and counted; they never stop the source.
func forward(source string, payload []byte, pub domain.Publisher, m *metrics.SensorMetrics) bool {
	r, err := domain.DecodeReading(payload)
	if err != nil {
		if m != nil {
			m.DecodeFailures.WithLabelValues(source).Inc()
		}
		slog.Warn("Dropping undecodable sensor message", "source", source, "error", err, "bytes", len(payload))
		return false
	}
	return publish(source, r, pub, m)
}

func publish(source string, r domain.Reading, pub domain.Publisher, m *metrics.SensorMetrics) bool {
	if m != nil {
		m.ReadingsReceived.WithLabelValues(source).Inc()
	}
	if err := pub.Publish(r); err != nil {
		if m != nil {
			m.PublishFailures.Inc()
		}
		slog.Error("Publish reading failed", "source", source, "reading", r.String(), "error", err)
		return false
	}
	return true
}

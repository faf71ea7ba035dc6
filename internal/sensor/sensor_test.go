package sensor

import (
	"sync"
	"testing"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu       sync.Mutex
	readings []domain.Reading
	err      error
}

func (p *recordingPublisher) Publish(r domain.Reading) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.readings = append(p.readings, r)
	return nil
}

func (p *recordingPublisher) published() []domain.Reading {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Reading, len(p.readings))
	copy(out, p.readings)
	return out
}

func newTestSensorMetrics() *metrics.SensorMetrics {
	return metrics.NewSensorMetrics(prometheus.NewRegistry())
}

func TestForward_DecodesAndPublishes(t *testing.T) {
	pub := &recordingPublisher{}
	m := newTestSensorMetrics()

	ok := forward(sourceMQTT, []byte(`{"timestamp":"2024-03-01T08:00:05Z","motionDetected":true}`), pub, m)

	require.True(t, ok)
	require.Len(t, pub.published(), 1)
	assert.True(t, domain.NewReading(testStart.Add(5*time.Second), true).Equal(pub.published()[0]))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReadingsReceived.WithLabelValues(sourceMQTT)))
}

func TestForward_DropsBadPayload(t *testing.T) {
	pub := &recordingPublisher{}
	m := newTestSensorMetrics()

	for _, payload := range []string{`not json`, `{"motionDetected":true}`, `{"timestamp":"2024-03-01T08:00:05Z"}`} {
		assert.False(t, forward(sourceKafka, []byte(payload), pub, m), payload)
	}

	assert.Empty(t, pub.published())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.DecodeFailures.WithLabelValues(sourceKafka)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ReadingsReceived.WithLabelValues(sourceKafka)))
}

func TestForward_CountsPublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: domain.ErrInvalidReading}
	m := newTestSensorMetrics()

	ok := forward(sourceKafka, []byte(`{"timestamp":"2024-03-01T08:00:05Z","motionDetected":false}`), pub, m)

	assert.False(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PublishFailures))
}

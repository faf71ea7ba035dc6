package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasons used for the pruned, rejected and disconnect counters.
const (
	ReasonClosed     = "closed"
	ReasonSlow       = "slow"
	ReasonNotUpgrade = "not_upgrade"
	ReasonHandshake  = "handshake"
	ReasonCapacity   = "capacity"
	ReasonStopped    = "stopped"
	ReasonTimeout    = "timeout"
	ReasonTransport  = "transport_error"
)

// BroadcastMetrics holds Prometheus metrics for the motion broadcast channel.
type BroadcastMetrics struct {
	ActiveSubscribers   prometheus.Gauge
	ReadingsPublished   prometheus.Counter
	MotionReadings      prometheus.Counter
	SubscribersPruned   *prometheus.CounterVec
	ConnectionsRejected *prometheus.CounterVec
	Disconnects         *prometheus.CounterVec
	FanoutDuration      prometheus.Histogram
	FrameWriteDuration  prometheus.Histogram
	PingFailures        prometheus.Counter
}

// NewBroadcastMetrics creates and registers broadcast metrics on the given registry.
func NewBroadcastMetrics(reg prometheus.Registerer) *BroadcastMetrics {
	m := &BroadcastMetrics{
		ActiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_subscribers",
			Help:      "Number of WebSocket subscribers currently registered.",
		}),
		ReadingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "readings_published_total",
			Help:      "Total number of readings fanned out to subscribers.",
		}),
		MotionReadings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "motion_readings_total",
			Help:      "Total number of published readings with motion detected.",
		}),
		SubscribersPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "subscribers_pruned_total",
			Help:      "Subscribers removed after a failed send, by reason.",
		}, []string{"reason"}),
		ConnectionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_rejected_total",
			Help:      "Connection attempts that never reached the open state, by reason.",
		}, []string{"reason"}),
		Disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "subscriber_disconnects_total",
			Help:      "Open subscribers whose read loop ended, by reason.",
		}, []string{"reason"}),
		FanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "fanout_duration_seconds",
			Help:      "Time spent enqueueing one reading for all subscribers.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
		FrameWriteDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "frame_write_duration_seconds",
			Help:      "Time spent writing a single frame to a subscriber connection.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Keepalive pings that could not be written.",
		}),
	}

	reg.MustRegister(
		m.ActiveSubscribers,
		m.ReadingsPublished,
		m.MotionReadings,
		m.SubscribersPruned,
		m.ConnectionsRejected,
		m.Disconnects,
		m.FanoutDuration,
		m.FrameWriteDuration,
		m.PingFailures,
	)
	return m
}

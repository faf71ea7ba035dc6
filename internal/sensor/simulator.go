package sensor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultInterval          = 5 * time.Second
	DefaultMotionProbability = 0.3
)

type SimulatorConfig struct {
	Interval          time.Duration
	MotionProbability float64
	// Seed makes the motion sequence reproducible. Zero picks a random seed.
	Seed uint64
}

// Simulator emits a reading on every tick, reporting motion with a fixed probability.
type Simulator struct {
	clock       clockwork.Clock
	interval    time.Duration
	probability float64
	rng         *rand.Rand
	metrics     *metrics.SensorMetrics
}

func NewSimulator(cfg SimulatorConfig, clock clockwork.Clock, m *metrics.SensorMetrics) *Simulator {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Simulator{
		clock:       clock,
		interval:    cfg.Interval,
		probability: cfg.MotionProbability,
		rng:         rand.New(rand.NewPCG(seed, seed>>1|1)),
		metrics:     m,
	}
}

// Run publishes one reading per interval until ctx is cancelled.
func (s *Simulator) Run(ctx context.Context, pub domain.Publisher) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Sensor simulator started", "interval", s.interval, "motion_probability", s.probability)
	defer slog.Info("Sensor simulator stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			publish(sourceSimulator, s.next(), pub, s.metrics)
		}
	}
}

// next is only called from the Run goroutine; rng is not safe for concurrent use.
func (s *Simulator) next() domain.Reading {
	return domain.NewReading(s.clock.Now(), s.rng.Float64() < s.probability)
}

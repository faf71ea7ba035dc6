package broadcast

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// sendResult is the outcome of one delivery attempt during a fan-out.
type sendResult struct {
	subscriber *Subscriber
	err        error
}

// Engine publishes readings to every registered subscriber.
type Engine struct {
	// mu orders cache updates, fan-out enqueues and bootstrap sends against each other.
	mu       sync.Mutex
	registry *Registry
	cache    *StateCache
	clock    clockwork.Clock
	metrics  *metrics.BroadcastMetrics
	stopped  bool
}

var _ domain.Publisher = (*Engine)(nil)

// NewEngine creates an engine over registry and cache. m may be nil.
func NewEngine(registry *Registry, cache *StateCache, clock clockwork.Clock, m *metrics.BroadcastMetrics) *Engine {
	return &Engine{
		registry: registry,
		cache:    cache,
		clock:    clock,
		metrics:  m,
	}
}

// Publish stores r as the current reading and delivers it to every subscriber.
// Individual delivery failures prune the failing subscriber and are never returned;
// the only error is a reading that cannot be encoded, in which case nothing changes.
func (e *Engine) Publish(r domain.Reading) error {
	payload, err := domain.EncodeReading(r)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	start := e.clock.Now()

	e.mu.Lock()
	e.cache.Set(r)
	subs := e.registry.Snapshot()
	results := make([]sendResult, 0, len(subs))
	for _, sub := range subs {
		results = append(results, sendResult{subscriber: sub, err: sub.Send(payload)})
	}
	e.mu.Unlock()

	pruned := e.prune(results)

	if e.metrics != nil {
		e.metrics.FanoutDuration.Observe(e.clock.Since(start).Seconds())
		e.metrics.ReadingsPublished.Inc()
		if r.MotionDetected() {
			e.metrics.MotionReadings.Inc()
		}
	}

	slog.Debug("Reading published",
		"motion_detected", r.MotionDetected(),
		"timestamp", r.Timestamp(),
		"subscribers", len(subs),
		"pruned", pruned,
	)
	return nil
}

// prune removes every subscriber whose send failed and returns how many were removed.
func (e *Engine) prune(results []sendResult) int {
	pruned := 0
	for _, res := range results {
		if res.err == nil {
			continue
		}

		if e.registry.Remove(res.subscriber) {
			pruned++
			reason := metrics.ReasonClosed
			if errors.Is(res.err, ErrSubscriberSlow) {
				reason = metrics.ReasonSlow
			}
			if e.metrics != nil {
				e.metrics.SubscribersPruned.WithLabelValues(reason).Inc()
			}
			slog.Warn("Pruning subscriber after failed send",
				"subscriber_id", res.subscriber.ID().String(),
				"reason", reason,
			)
		}
		res.subscriber.stop()
	}

	if pruned > 0 {
		e.updateGauge()
	}
	return pruned
}

// Attach queues the current reading to sub and registers it, atomically with respect
// to Publish: sub sees the cached reading first and then every later reading.
func (e *Engine) Attach(sub *Subscriber) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return domain.ErrEngineStopped
	}

	payload, err := domain.EncodeReading(e.cache.Get())
	if err != nil {
		return fmt.Errorf("bootstrap subscriber: %w", err)
	}
	if err := sub.Send(payload); err != nil {
		return fmt.Errorf("bootstrap subscriber: %w", err)
	}

	e.registry.Add(sub)
	e.updateGauge()
	return nil
}

// Detach unregisters sub and releases its connection. Safe to call after the engine
// already pruned the same subscriber.
func (e *Engine) Detach(sub *Subscriber) bool {
	removed := e.registry.Remove(sub)
	sub.stop()
	if removed {
		e.updateGauge()
	}
	return removed
}

// Current returns the cached reading.
func (e *Engine) Current() domain.Reading {
	return e.cache.Get()
}

// Seed replaces the cached reading without notifying subscribers.
func (e *Engine) Seed(r domain.Reading) error {
	if _, err := domain.EncodeReading(r); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.Set(r)
	return nil
}

func (e *Engine) SubscriberCount() int {
	return e.registry.Len()
}

// Shutdown stops accepting subscribers and sends a close frame to each registered one.
// It blocks until every connection is closed.
func (e *Engine) Shutdown(reason string) {
	e.mu.Lock()
	e.stopped = true
	subs := e.registry.Snapshot()
	for _, sub := range subs {
		e.registry.Remove(sub)
	}
	e.mu.Unlock()

	slog.Info("Broadcast engine shutting down", "subscribers", len(subs))

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.closeGraceful(websocket.CloseGoingAway, reason)
		}()
	}
	wg.Wait()

	e.updateGauge()
	slog.Info("Broadcast engine shutdown complete", "disconnected_subscribers", len(subs))
}

func (e *Engine) updateGauge() {
	if e.metrics != nil {
		e.metrics.ActiveSubscribers.Set(float64(e.registry.Len()))
	}
}

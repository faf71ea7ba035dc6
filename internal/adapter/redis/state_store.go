package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	lastReadingKey = "smartcam:last_reading"
	// A mirror older than this is not worth bootstrapping viewers with.
	lastReadingTTL = 24 * time.Hour
)

// StateStore keeps the last published reading under a single key.
type StateStore struct {
	rdb     goredis.Cmdable
	metrics *metrics.StateStoreMetrics
}

var _ domain.StateStore = (*StateStore)(nil)

func NewStateStore(rdb goredis.Cmdable, m *metrics.StateStoreMetrics) *StateStore {
	return &StateStore{rdb: rdb, metrics: m}
}

func (s *StateStore) Save(ctx context.Context, r domain.Reading) error {
	payload, err := domain.EncodeReading(r)
	if err != nil {
		s.observe("save", "invalid")
		return err
	}
	if err := s.rdb.Set(ctx, lastReadingKey, payload, lastReadingTTL).Err(); err != nil {
		s.observe("save", "error")
		return fmt.Errorf("save last reading: %w", err)
	}
	s.observe("save", "ok")
	return nil
}

// Load returns domain.ErrNoReading when nothing was saved yet.
func (s *StateStore) Load(ctx context.Context) (domain.Reading, error) {
	payload, err := s.rdb.Get(ctx, lastReadingKey).Bytes()
	if errors.Is(err, goredis.Nil) {
		s.observe("load", "miss")
		return domain.Reading{}, domain.ErrNoReading
	}
	if err != nil {
		s.observe("load", "error")
		return domain.Reading{}, fmt.Errorf("load last reading: %w", err)
	}

	r, err := domain.DecodeReading(payload)
	if err != nil {
		s.observe("load", "invalid")
		return domain.Reading{}, fmt.Errorf("load last reading: %w", err)
	}
	s.observe("load", "ok")
	return r, nil
}

func (s *StateStore) observe(operation, status string) {
	if s.metrics != nil {
		s.metrics.Operations.WithLabelValues(operation, status).Inc()
	}
}

package sensor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/adapter/metrics"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/retry"
	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// messageReader is the subset of *kafka.Reader the source needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource consumes readings from a topic as a member of a consumer group.
// Offsets are committed after the reading was handed to the publisher.
type KafkaSource struct {
	cfg     KafkaConfig
	reader  messageReader
	metrics *metrics.SensorMetrics
	policy  retry.Policy
}

func NewKafkaSource(cfg KafkaConfig, m *metrics.SensorMetrics) (*KafkaSource, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka source: at least one broker is required")
	}
	if cfg.Topic == "" || cfg.GroupID == "" {
		return nil, errors.New("kafka source: topic and group id are required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    1e6,
		MaxWait:     time.Second,
	})
	return newKafkaSource(cfg, reader, m), nil
}

func newKafkaSource(cfg KafkaConfig, reader messageReader, m *metrics.SensorMetrics) *KafkaSource {
	return &KafkaSource{
		cfg:     cfg,
		reader:  reader,
		metrics: m,
		policy: retry.Policy{
			MaxAttempts:    5,
			InitialBackoff: 200 * time.Millisecond,
			OnRetry: func(attempt int, err error, backoff time.Duration) {
				slog.Warn("Kafka commit failed, retrying", "attempt", attempt, "error", err, "backoff", backoff)
			},
		},
	}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (s *KafkaSource) Run(ctx context.Context, pub domain.Publisher) error {
	defer func() {
		if err := s.reader.Close(); err != nil {
			slog.Warn("Kafka reader close failed", "error", err)
		}
	}()

	slog.Info("Kafka source started", "brokers", s.cfg.Brokers, "topic", s.cfg.Topic, "group", s.cfg.GroupID)

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, kafka.ErrGroupClosed) {
				slog.Info("Kafka source stopped")
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		forward(sourceKafka, msg.Value, pub, s.metrics)

		err = retry.DoVoid(ctx, s.policy, classifyCommitError, func() error {
			return s.reader.CommitMessages(ctx, msg)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Kafka commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func classifyCommitError(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, kafka.ErrGroupClosed) {
		return retry.Stop
	}
	return retry.Retry
}

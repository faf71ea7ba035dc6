package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/afrodev/NoTrust-iot-smartcam/internal/platform/correlation"
)

const defaultSaveTimeout = 500 * time.Millisecond

// ErrFeedStopped is reported by Check once the source stopped on its own.
var ErrFeedStopped = errors.New("reading feed stopped")

// Broadcaster is the part of the broadcast engine the feed drives.
type Broadcaster interface {
	Publish(r domain.Reading) error
	Seed(r domain.Reading) error
}

// Feed connects a reading source to the broadcaster and mirrors every published
// reading into an optional state store.
type Feed struct {
	source      domain.ReadingSource
	broadcaster Broadcaster
	store       domain.StateStore
	saveTimeout time.Duration

	mu      sync.Mutex
	stopErr error
}

// NewFeed creates a feed. store may be nil.
func NewFeed(source domain.ReadingSource, broadcaster Broadcaster, store domain.StateStore) *Feed {
	return &Feed{
		source:      source,
		broadcaster: broadcaster,
		store:       store,
		saveTimeout: defaultSaveTimeout,
	}
}

// Run drives the source until ctx is cancelled or the source fails. A source that
// ends while ctx is still live leaves the feed unhealthy.
func (f *Feed) Run(ctx context.Context) error {
	err := f.source.Run(ctx, f)
	if err != nil {
		err = fmt.Errorf("reading source: %w", err)
	}

	if ctx.Err() == nil {
		f.mu.Lock()
		if err != nil {
			f.stopErr = fmt.Errorf("%w: %w", ErrFeedStopped, err)
		} else {
			f.stopErr = ErrFeedStopped
		}
		f.mu.Unlock()
	}
	return err
}

// Check fails once the source stopped without being asked to. It backs the
// readiness probe, so viewers are not served a frozen reading silently.
func (f *Feed) Check(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopErr
}

// Publish fans r out to viewers, then saves it to the store. A store failure is
// logged and never fails the publish.
func (f *Feed) Publish(r domain.Reading) error {
	if err := f.broadcaster.Publish(r); err != nil {
		return err
	}
	if f.store == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(correlation.WithID(context.Background(), correlation.NewID()), f.saveTimeout)
	defer cancel()
	if err := f.store.Save(ctx, r); err != nil {
		slog.WarnContext(ctx, "Feed: mirroring reading failed", "reading", r.String(), "error", err)
	}
	return nil
}

// Restore seeds the broadcaster with the stored reading so that viewers of a
// restarted process are bootstrapped with the last real observation.
// It reports whether a reading was restored.
func (f *Feed) Restore(ctx context.Context) (bool, error) {
	if f.store == nil {
		return false, nil
	}

	r, err := f.store.Load(ctx)
	if errors.Is(err, domain.ErrNoReading) {
		slog.InfoContext(ctx, "Feed: no stored reading to restore")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load last reading: %w", err)
	}

	if err := f.broadcaster.Seed(r); err != nil {
		return false, fmt.Errorf("seed last reading: %w", err)
	}
	slog.InfoContext(ctx, "Feed: restored last reading", "reading", r.String())
	return true, nil
}

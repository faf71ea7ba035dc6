package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStateCache_ReturnsInitialUntilSet(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewStateCache(domain.InitialReading(start))

	got := cache.Get()
	assert.False(t, got.MotionDetected())
	assert.True(t, got.Timestamp().Equal(start))

	next := domain.NewReading(start.Add(time.Second), true)
	cache.Set(next)
	assert.True(t, next.Equal(cache.Get()))
}

func TestStateCache_ConcurrentAccess(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := NewStateCache(domain.InitialReading(base))

	written := make(map[int64]struct{})
	for i := range 100 {
		written[base.Add(time.Duration(i)*time.Second).UnixNano()] = struct{}{}
	}

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			cache.Set(domain.NewReading(base.Add(time.Duration(i)*time.Second), i%2 == 1))
		}()
		go func() {
			defer wg.Done()
			got := cache.Get()
			_, ok := written[got.Timestamp().UnixNano()]
			assert.True(t, ok, "observed a value that was never written: %s", got)
		}()
	}
	wg.Wait()
}

package broadcast

import (
	"sync"

	"github.com/afrodev/NoTrust-iot-smartcam/internal/domain"
)

// StateCache holds the most recently published reading.
type StateCache struct {
	mu      sync.RWMutex
	current domain.Reading
}

// NewStateCache returns a cache holding initial until the first Set.
func NewStateCache(initial domain.Reading) *StateCache {
	return &StateCache{current: initial}
}

func (c *StateCache) Get() domain.Reading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *StateCache) Set(r domain.Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = r
}

package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the set of currently connected subscribers.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*Subscriber
}

func NewRegistry() *Registry {
	return &Registry{subscribers: make(map[uuid.UUID]*Subscriber)}
}

// Add inserts sub. Every connection has a fresh identity, so duplicates are not checked.
func (r *Registry) Add(sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers[sub.ID()] = sub
}

// Remove deletes sub and reports whether it was present. Removing an absent
// subscriber is a no-op.
func (r *Registry) Remove(sub *Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.subscribers[sub.ID()]
	if !ok || current != sub {
		return false
	}
	delete(r.subscribers, sub.ID())
	return true
}

// Snapshot returns a copy of the current members. The slice is owned by the caller and
// unaffected by later Add/Remove calls.
func (r *Registry) Snapshot() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]*Subscriber, 0, len(r.subscribers))
	for _, sub := range r.subscribers {
		subs = append(subs, sub)
	}
	return subs
}

func (r *Registry) Contains(sub *Subscriber) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subscribers[sub.ID()] == sub
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

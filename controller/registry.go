package controller

import (
	"sync"
	"time"

	"mailassist/utils"
)

// Factory builds the controller for a new session
type Factory func(sessionID string) *Controller

// Registry keeps one controller per browser session in memory. Idle
// sessions expire after the TTL.
type Registry struct {
	cache   *utils.MemoryCache
	ttl     time.Duration
	factory Factory
	mu      sync.Mutex
}

func NewRegistry(ttl time.Duration, factory Factory) *Registry {
	return &Registry{
		cache:   utils.NewMemoryCache(time.Minute),
		ttl:     ttl,
		factory: factory,
	}
}

// Get returns the session's controller, creating it on first use. created
// reports whether a new controller was built.
func (r *Registry) Get(sessionID string) (ctrl *Controller, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.cache.Get(sessionID); ok {
		r.cache.Touch(sessionID, r.ttl)
		return v.(*Controller), false
	}

	ctrl = r.factory(sessionID)
	r.cache.Set(sessionID, ctrl, r.ttl)
	utils.Log.WithField("session", shortID(sessionID)).Debug("panel session created")
	return ctrl, true
}

// Lookup returns an existing controller without creating one
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	v, ok := r.cache.Get(sessionID)
	if !ok {
		return nil, false
	}
	return v.(*Controller), true
}

// Remove drops the session's controller
func (r *Registry) Remove(sessionID string) {
	r.cache.Delete(sessionID)
}

func (r *Registry) Len() int {
	return r.cache.Size()
}

// Close stops the expiry sweep
func (r *Registry) Close() {
	r.cache.Close()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package params

import "sync"

// SurfaceSession holds the last committed value for each control on one
// playground surface. Entries are committed only after a verified write or a
// verified read; any doubt evicts. The zero value is not usable, call
// NewSurfaceSession.
type SurfaceSession struct {
	mu    sync.Mutex
	cache map[Role]any
}

// NewSurfaceSession returns an empty session cache.
func NewSurfaceSession() *SurfaceSession {
	return &SurfaceSession{cache: make(map[Role]any)}
}

// Invalidate drops every cached value. Called on navigation, page reload, or
// any event that may have reset the surface out from under the engine.
func (s *SurfaceSession) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.cache {
		delete(s.cache, k)
	}
}

// lock serializes all reconciliation against this surface. Concurrent
// adjustment of a shared single-writer surface is never safe, so every
// reconciler takes the session lock for its full read-compare-write-verify
// span, not just the cache access.
func (s *SurfaceSession) lock()   { s.mu.Lock() }
func (s *SurfaceSession) unlock() { s.mu.Unlock() }

// cached returns the committed value for a role. Callers must hold the lock.
func (s *SurfaceSession) cached(role Role) (any, bool) {
	v, ok := s.cache[role]
	return v, ok
}

// commit records a verified value. Callers must hold the lock.
func (s *SurfaceSession) commit(role Role, v any) {
	s.cache[role] = v
}

// evict drops a role's entry after a failed verification. Callers must hold
// the lock.
func (s *SurfaceSession) evict(role Role) {
	delete(s.cache, role)
}

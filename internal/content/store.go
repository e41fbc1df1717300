package content

import "sync/atomic"

// Store holds the live resume. Readers never block writers.
type Store struct {
	cur atomic.Pointer[Resume]
}

// NewStore creates a store holding r.
func NewStore(r *Resume) *Store {
	s := &Store{}
	s.cur.Store(r)
	return s
}

// Get returns the current resume. Callers must not mutate it.
func (s *Store) Get() *Resume { return s.cur.Load() }

// Set swaps in a new resume.
func (s *Store) Set(r *Resume) { s.cur.Store(r) }

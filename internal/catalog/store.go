package catalog

import (
	"sync/atomic"

	"orderbot/internal/model"
)

// Store publishes the current snapshot. Readers always get an immutable
// reference; writers replace it whole.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty())
	return s
}

// Current returns the latest snapshot. It is never nil.
func (s *Store) Current() *Snapshot {
	if snap := s.current.Load(); snap != nil {
		return snap
	}
	return Empty()
}

// Swap publishes snap and returns the one it replaced.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	if snap == nil {
		snap = Empty()
	}
	return s.current.Swap(snap)
}

// Stats reports on the current snapshot.
func (s *Store) Stats() model.CatalogStats {
	return s.Current().Stats()
}

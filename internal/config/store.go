package config

import "sync/atomic"

// Store holds the live Configuration behind an atomic pointer, giving the
// read path (every dispatcher call) a non-blocking, always-consistent
// snapshot per spec §5 ("Configuration and branch-collection snapshot
// acquisition is non-blocking on the read path"). Grounded on
// upstream.Fs's cacheExpiry atomic.Int64 pattern, generalized from an
// int64 to a whole struct pointer.
type Store struct {
	current atomic.Pointer[Configuration]
}

// NewStore builds a Store initialized to cfg.
func NewStore(cfg *Configuration) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Snapshot returns the current Configuration. The returned value must be
// treated as immutable by the caller — mutate via Update instead.
func (s *Store) Snapshot() *Configuration {
	return s.current.Load()
}

// Update atomically replaces the live configuration with the result of
// applying mutate to a clone of the current one. mutate returning an
// error aborts the update and leaves the store unchanged — this is how
// the control entry's per-key validation (§6: ENOATTR/EINVAL/EROFS) is
// wired without ever exposing a half-applied configuration to a
// concurrent reader.
func (s *Store) Update(mutate func(*Configuration) error) error {
	cur := s.current.Load()
	next := cur.clone()
	if err := mutate(next); err != nil {
		return err
	}
	s.current.Store(next)
	return nil
}

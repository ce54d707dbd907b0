package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory revocation store. It is meant for tests and
// single-process development; records do not survive a restart.
type MemoryStore struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		revoked: make(map[string]time.Time),
	}
}

// Add marks a token id as revoked
func (s *MemoryStore) Add(ctx context.Context, id string, notValidAfter time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.revoked[id]; ok {
		// Keep the later horizon so a record is never shortened.
		if notValidAfter.After(existing) {
			s.revoked[id] = notValidAfter
		}
		return false, nil
	}

	s.revoked[id] = notValidAfter
	return true, nil
}

// Contains checks if a token id is revoked
func (s *MemoryStore) Contains(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.revoked[id]
	return ok, nil
}

// Sweep drops records that expired before now
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, notValidAfter := range s.revoked {
		if notValidAfter.Before(now) {
			delete(s.revoked, id)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of stored records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.revoked)
}

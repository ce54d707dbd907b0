// Package identity provides account lookups for login and for resolving the
// subject of an access token.
package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/layer-3/quill/core"
)

// MemoryStore keeps identities in a map. Used by tests and the local profile.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*core.Identity
	byEmail map[string]*core.Identity
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*core.Identity),
		byEmail: make(map[string]*core.Identity),
	}
}

// Create hashes password and stores a new identity
func (s *MemoryStore) Create(ctx context.Context, email, password string, active bool) (*core.Identity, error) {
	hash, err := core.HashPassword(password)
	if err != nil {
		return nil, err
	}

	identity := &core.Identity{
		ID:           uuid.NewString(),
		Email:        core.NormalizeIdentifier(email),
		PasswordHash: hash,
		IsActive:     active,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[identity.Email]; taken {
		return nil, core.ErrIdentityExists
	}
	s.byID[identity.ID] = identity
	s.byEmail[identity.Email] = identity

	return copyIdentity(identity), nil
}

// Put stores identity as-is, replacing any entry with the same ID
func (s *MemoryStore) Put(identity *core.Identity) {
	stored := copyIdentity(identity)
	stored.Email = core.NormalizeIdentifier(stored.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[stored.ID]; ok {
		delete(s.byEmail, old.Email)
	}
	s.byID[stored.ID] = stored
	s.byEmail[stored.Email] = stored
}

// FindByIdentifier looks an identity up by email, ignoring case
func (s *MemoryStore) FindByIdentifier(ctx context.Context, identifier string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byEmail[core.NormalizeIdentifier(identifier)]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	return copyIdentity(identity), nil
}

// FindByID looks an identity up by subject id
func (s *MemoryStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byID[id]
	if !ok {
		return nil, core.ErrIdentityNotFound
	}
	return copyIdentity(identity), nil
}

func copyIdentity(identity *core.Identity) *core.Identity {
	c := *identity
	return &c
}

package ports

import (
	"context"

	"github.com/layer-3/quill/core"
)

// IdentityStore resolves accounts. Both lookups return core.ErrIdentityNotFound
// when nothing matches.
type IdentityStore interface {
	FindByIdentifier(ctx context.Context, identifier string) (*core.Identity, error)
	FindByID(ctx context.Context, id string) (*core.Identity, error)
}

// IdentityRegistry is an IdentityStore that can also create accounts
type IdentityRegistry interface {
	IdentityStore

	// Create stores a new account with a bcrypt hash of password. An email that
	// is already taken, ignoring case, returns core.ErrIdentityExists.
	Create(ctx context.Context, email, password string, active bool) (*core.Identity, error)
}

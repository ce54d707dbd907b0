package mocks

import (
	"context"

	"github.com/layer-3/quill/core"
	"github.com/stretchr/testify/mock"
)

type IdentityStore struct{ mock.Mock }

func (m *IdentityStore) FindByIdentifier(ctx context.Context, identifier string) (*core.Identity, error) {
	args := m.Called(ctx, identifier)
	var out *core.Identity
	if v := args.Get(0); v != nil {
		out = v.(*core.Identity)
	}
	return out, args.Error(1)
}

func (m *IdentityStore) FindByID(ctx context.Context, id string) (*core.Identity, error) {
	args := m.Called(ctx, id)
	var out *core.Identity
	if v := args.Get(0); v != nil {
		out = v.(*core.Identity)
	}
	return out, args.Error(1)
}

func (m *IdentityStore) Create(ctx context.Context, email, password string, active bool) (*core.Identity, error) {
	args := m.Called(ctx, email, password, active)
	var out *core.Identity
	if v := args.Get(0); v != nil {
		out = v.(*core.Identity)
	}
	return out, args.Error(1)
}

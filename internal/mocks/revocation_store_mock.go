package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type RevocationStore struct{ mock.Mock }

func (m *RevocationStore) Add(ctx context.Context, id string, notValidAfter time.Time) (bool, error) {
	args := m.Called(ctx, id, notValidAfter)
	return args.Bool(0), args.Error(1)
}

func (m *RevocationStore) Contains(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *RevocationStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

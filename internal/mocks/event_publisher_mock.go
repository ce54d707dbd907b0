package mocks

import (
	"context"

	"github.com/layer-3/quill/core"
	"github.com/stretchr/testify/mock"
)

type EventPublisher struct{ mock.Mock }

func (m *EventPublisher) PublishRevocation(ctx context.Context, subjectID string, tokenID string, reason core.RevocationReason) error {
	return m.Called(ctx, subjectID, tokenID, reason).Error(0)
}

package ports

import (
	"context"

	"github.com/layer-3/quill/core"
)

// EventPublisher notifies other services that a refresh token was revoked
type EventPublisher interface {
	PublishRevocation(ctx context.Context, subjectID string, tokenID string, reason core.RevocationReason) error
}

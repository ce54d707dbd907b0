package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/quill/core"
)

// RevocationTopic carries one message per revoked refresh token
const RevocationTopic = "quill.revocation"

// RevocationEvent represents a revoked refresh token
type RevocationEvent struct {
	SubjectID string                `json:"subject_id"`
	TokenID   string                `json:"token_id"`
	Reason    core.RevocationReason `json:"reason"`
}

// WatermillPublisher implements the EventPublisher port using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     RevocationTopic,
	}
}

// PublishRevocation publishes a revocation event
func (p *WatermillPublisher) PublishRevocation(ctx context.Context, subjectID string, tokenID string, reason core.RevocationReason) error {
	event := RevocationEvent{
		SubjectID: subjectID,
		TokenID:   tokenID,
		Reason:    reason,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("reason", string(reason))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

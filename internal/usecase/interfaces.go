package usecase

import (
	"context"

	"dialist/internal/domain/entity"
)

// Conversations is the chat transport consumed by the negotiation flow.
// EnsureConversation must succeed before a new channel is persisted so a
// stored channel never lacks a communication target; PostSystemEvent is
// best-effort and its failure is logged, never propagated.
type Conversations interface {
	EnsureConversation(ctx context.Context, channel *entity.Channel) (string, error)
	PostSystemEvent(ctx context.Context, conversationID, eventType, content, actorID string, metadata map[string]interface{}) error
}

// Notifier delivers push notifications. Best-effort, same failure policy
// as PostSystemEvent.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, title, body string, data map[string]string) error
}

package messaging

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"dialist/internal/domain/entity"
	ws "dialist/internal/infrastructure/websocket"
	"dialist/pkg/errors"
	"dialist/pkg/logger"
)

// Conversation is the chat-side record a channel binds to. The chat
// product owns message delivery; the negotiation core only ensures the
// record exists and appends system events to it.
type Conversation struct {
	ID           string    `json:"id" firestore:"id"`
	ChannelID    string    `json:"channel_id" firestore:"channelId"`
	Participants []string  `json:"participants" firestore:"participants"`
	LastEvent    string    `json:"last_event,omitempty" firestore:"lastEvent,omitempty"`
	CreatedAt    time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updatedAt"`
}

type SystemEvent struct {
	ID        string                 `json:"id" firestore:"id"`
	EventType string                 `json:"event_type" firestore:"eventType"`
	Content   string                 `json:"content" firestore:"content"`
	ActorID   string                 `json:"actor_id,omitempty" firestore:"actorId,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at" firestore:"createdAt"`
}

// ConversationClient implements usecase.Conversations on Firestore, with
// connected participants additionally notified over WebSocket.
type ConversationClient struct {
	client    *firestore.Client
	wsManager *ws.Manager
}

func NewConversationClient(client *firestore.Client, wsManager *ws.Manager) *ConversationClient {
	return &ConversationClient{
		client:    client,
		wsManager: wsManager,
	}
}

// EnsureConversation resolves or creates the conversation bound to the
// channel's identity key. The conversation document reuses the channel's
// deterministic ID so racing creators converge on the same record.
func (c *ConversationClient) EnsureConversation(ctx context.Context, channel *entity.Channel) (string, error) {
	docRef := c.client.Collection("conversations").Doc(channel.ID)

	doc, err := docRef.Get(ctx)
	if err == nil {
		var conversation Conversation
		if err := doc.DataTo(&conversation); err != nil {
			return "", errors.Internal("Failed to parse conversation data", err)
		}
		return conversation.ID, nil
	}
	if status.Code(err) != codes.NotFound {
		return "", errors.Internal("Failed to look up conversation", err)
	}

	now := time.Now()
	conversation := Conversation{
		ID:           channel.ID,
		ChannelID:    channel.ID,
		Participants: channel.Participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := docRef.Create(ctx, conversation); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return conversation.ID, nil
		}
		return "", errors.Internal("Failed to create conversation", err)
	}

	return conversation.ID, nil
}

func (c *ConversationClient) PostSystemEvent(ctx context.Context, conversationID, eventType, content, actorID string, metadata map[string]interface{}) error {
	event := SystemEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Content:   content,
		ActorID:   actorID,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}

	docRef := c.client.Collection("conversations").Doc(conversationID)
	if _, err := docRef.Collection("events").Doc(event.ID).Set(ctx, event); err != nil {
		return errors.Internal("Failed to post system event", err)
	}

	if _, err := docRef.Update(ctx, []firestore.Update{
		{Path: "lastEvent", Value: content},
		{Path: "updatedAt", Value: event.CreatedAt},
	}); err != nil {
		logger.Warn("Failed to update conversation %s after event: %v", conversationID, err)
	}

	c.broadcast(ctx, conversationID, &event)
	return nil
}

func (c *ConversationClient) broadcast(ctx context.Context, conversationID string, event *SystemEvent) {
	doc, err := c.client.Collection("conversations").Doc(conversationID).Get(ctx)
	if err != nil {
		logger.Warn("Failed to load conversation %s for broadcast: %v", conversationID, err)
		return
	}

	var conversation Conversation
	if err := doc.DataTo(&conversation); err != nil {
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":            "system_event",
		"conversation_id": conversationID,
		"event":           event,
	})
	if err != nil {
		return
	}

	c.wsManager.SendToUsers(conversation.Participants, payload)
}

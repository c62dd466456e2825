package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role constants for messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// provisionalPrefix marks locally generated message IDs that have not been
// assigned a durable ID by the service.
const provisionalPrefix = "local-"

// Message is a single turn in a conversation. Messages are immutable once
// appended, except the in-progress assistant message whose Content grows
// while a stream is being consumed.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Role           string         `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewProvisionalMessage creates a message with a locally generated ID,
// used as the optimistic echo before the service has persisted anything.
func NewProvisionalMessage(conversationID, role, content string) Message {
	return Message{
		ID:             provisionalPrefix + uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      time.Now(),
	}
}

// Provisional reports whether the message ID was generated locally.
func (m Message) Provisional() bool {
	return strings.HasPrefix(m.ID, provisionalPrefix)
}

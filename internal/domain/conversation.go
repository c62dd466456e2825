package domain

import "time"

// Conversation is a catalogue entry. It carries no message bodies; the
// full transcript is fetched on demand as a ConversationDetail.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	MessageCount int       `json:"message_count,omitempty"`
	IsSaved      bool      `json:"is_saved"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationDetail is a conversation with its ordered transcript.
type ConversationDetail struct {
	Conversation
	Messages []Message `json:"messages,omitempty"`
}

// DisplayTitle returns the title, falling back to the summary and then a
// generic placeholder for unsaved conversations.
func (c Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Summary != "" {
		return c.Summary
	}
	return "New Estimate"
}

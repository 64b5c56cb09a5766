// Package conversation owns multi-session chat history. Conversations are
// durable; all mutation goes through the Store so the add/remove pair that
// brackets a model call stays atomic.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn. A system message, when present, is always
// first and is excluded from window trimming and transcript display.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is a titled, timestamped, ordered message sequence.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// Summary is the per-conversation entry of the history list.
type Summary struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	titleMaxLen  = 40
	defaultTitle = "New conversation"
)

// titleFrom derives a conversation title from its first user message.
func titleFrom(content string) string {
	runes := []rune(content)
	if len(runes) > titleMaxLen {
		return string(runes[:titleMaxLen]) + "..."
	}
	if content == "" {
		return defaultTitle
	}
	return content
}

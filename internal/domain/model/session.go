package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session ties a client conversation to exactly one chatbot. ChatbotID is
// immutable after creation.
type Session struct {
	ID           string    `json:"session_id"`
	ChatbotID    string    `json:"chatbot_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

func NewSession(chatbotID string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		ChatbotID:    chatbotID,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Message is one turn in a conversation. Rows are append-only; the sequence
// for a session ordered by Timestamp is the canonical history.
type Message struct {
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

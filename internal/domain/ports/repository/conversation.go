package repository

import (
	"context"

	"saas-chatbot-backend/internal/domain/model"
)

// -----------------------------
// Conversations
// -----------------------------

type ConversationRepository interface {
	// Append writes a single message row; the timestamp is taken from the
	// message (assigned at write time by the caller).
	Append(ctx context.Context, m *model.Message) error
	// ListBySession returns the full history ordered by timestamp ascending.
	ListBySession(ctx context.Context, sessionID string) ([]model.Message, error)
}

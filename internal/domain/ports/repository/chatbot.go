package repository

import (
	"context"

	"saas-chatbot-backend/internal/domain/model"
)

// -----------------------------
// Chatbots
// -----------------------------

type ChatbotRepository interface {
	// FindByID returns the chatbot row or domain.ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Chatbot, error)
}

// File: internal/usecase/auth_uc.go
package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

type AuthUseCase interface {
	// Authorize reports whether api_key matches the chatbot's stored key.
	// A missing chatbot and a wrong key are indistinguishable to callers.
	// Store failures propagate as errors (fail closed, not forbidden).
	Authorize(ctx context.Context, apiKey, chatbotID string) (bool, error)
}

type authUC struct {
	bots repository.ChatbotRepository
	log  *zerolog.Logger
}

func NewAuthUseCase(bots repository.ChatbotRepository, logger *zerolog.Logger) *authUC {
	return &authUC{bots: bots, log: logger}
}

func (a *authUC) Authorize(ctx context.Context, apiKey, chatbotID string) (bool, error) {
	if apiKey == "" || chatbotID == "" {
		return false, domain.ErrInvalidArgument
	}

	bot, err := a.bots.FindByID(ctx, chatbotID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bot.APIKey == apiKey, nil
}

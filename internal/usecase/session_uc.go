// File: internal/usecase/session_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/repository"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

type SessionUseCase interface {
	// Create checks the chatbot exists, then writes a fresh session row.
	// Returns domain.ErrNotFound when the chatbot does not exist.
	Create(ctx context.Context, chatbotID string) (sessionID string, err error)
	// ResolveChatbot returns the chatbot a session was created under.
	ResolveChatbot(ctx context.Context, sessionID string) (chatbotID string, err error)
	// Touch updates last_activity. Best-effort: failures are logged, never
	// returned, since the field is non-critical telemetry.
	Touch(ctx context.Context, sessionID string)
}

type sessionUC struct {
	bots     repository.ChatbotRepository
	sessions repository.SessionRepository
	log      *zerolog.Logger
}

func NewSessionUseCase(bots repository.ChatbotRepository, sessions repository.SessionRepository, logger *zerolog.Logger) *sessionUC {
	return &sessionUC{bots: bots, sessions: sessions, log: logger}
}

func (u *sessionUC) Create(ctx context.Context, chatbotID string) (string, error) {
	if _, err := u.bots.FindByID(ctx, chatbotID); err != nil {
		return "", err
	}

	s := model.NewSession(chatbotID)
	if err := u.sessions.Insert(ctx, s); err != nil {
		return "", err
	}
	return s.ID, nil
}

func (u *sessionUC) ResolveChatbot(ctx context.Context, sessionID string) (string, error) {
	s, err := u.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.ChatbotID, nil
}

func (u *sessionUC) Touch(ctx context.Context, sessionID string) {
	if err := u.sessions.TouchLastActivity(ctx, sessionID, time.Now()); err != nil {
		u.log.Warn().Err(err).Str("session_id", sessionID).Msg("touch last_activity failed")
	}
}

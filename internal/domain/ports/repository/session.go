package repository

import (
	"context"
	"time"

	"saas-chatbot-backend/internal/domain/model"
)

// -----------------------------
// Sessions
// -----------------------------

type SessionRepository interface {
	Insert(ctx context.Context, s *model.Session) error
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// TouchLastActivity updates last_activity; callers treat failures as
	// non-fatal telemetry loss.
	TouchLastActivity(ctx context.Context, id string, at time.Time) error
}

// File: internal/infra/db/postgres/postgres_session_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/repository"
	"saas-chatbot-backend/internal/infra/metrics"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) Insert(ctx context.Context, s *model.Session) error {
	const q = `
INSERT INTO sessions (session_id, chatbot_id, created_at, last_activity)
VALUES ($1,$2,$3,$4);`
	_, err := r.pool.Exec(ctx, q, s.ID, s.ChatbotID, s.CreatedAt, s.LastActivity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		metrics.IncDBError("sessions.insert")
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	const q = `SELECT session_id, chatbot_id, created_at, last_activity FROM sessions WHERE session_id=$1;`
	var s model.Session
	if err := r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.ChatbotID, &s.CreatedAt, &s.LastActivity); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		metrics.IncDBError("sessions.find_by_id")
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepo) TouchLastActivity(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE sessions SET last_activity=$2 WHERE session_id=$1;`
	tag, err := r.pool.Exec(ctx, q, id, at)
	if err != nil {
		metrics.IncDBError("sessions.touch")
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// File: internal/infra/db/postgres/postgres_conversation_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/repository"
	"saas-chatbot-backend/internal/infra/metrics"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

// ConversationRepo appends and replays message rows. Rows are never updated
// or deleted here; history is reconstructed by ordering on timestamp.
type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

func (r *ConversationRepo) Append(ctx context.Context, m *model.Message) error {
	const q = `
INSERT INTO conversations (session_id, role, content, timestamp)
VALUES ($1,$2,$3,$4);`
	if _, err := r.pool.Exec(ctx, q, m.SessionID, m.Role, m.Content, m.Timestamp); err != nil {
		metrics.IncDBError("conversations.append")
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (r *ConversationRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	const q = `SELECT session_id, role, content, timestamp FROM conversations WHERE session_id=$1 ORDER BY timestamp ASC;`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		metrics.IncDBError("conversations.list")
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.SessionID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

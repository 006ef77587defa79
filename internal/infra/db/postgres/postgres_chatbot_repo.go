// File: internal/infra/db/postgres/postgres_chatbot_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/repository"
	"saas-chatbot-backend/internal/infra/metrics"
)

var _ repository.ChatbotRepository = (*ChatbotRepo)(nil)

// ChatbotRepo reads tenant chatbot rows. The table is administered elsewhere;
// this service never writes to it.
type ChatbotRepo struct {
	pool *pgxpool.Pool
}

func NewChatbotRepo(pool *pgxpool.Pool) *ChatbotRepo {
	return &ChatbotRepo{pool: pool}
}

func (r *ChatbotRepo) FindByID(ctx context.Context, id string) (*model.Chatbot, error) {
	const q = `SELECT id, api_key, model_name FROM chatbots WHERE id=$1;`
	var c model.Chatbot
	if err := r.pool.QueryRow(ctx, q, id).Scan(&c.ID, &c.APIKey, &c.ModelName); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		metrics.IncDBError("chatbots.find_by_id")
		return nil, fmt.Errorf("scan chatbot: %w", err)
	}
	return &c, nil
}

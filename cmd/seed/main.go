// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"saas-chatbot-backend/internal/config"
	pg "saas-chatbot-backend/internal/infra/db/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Creates the schema if it does not exist and seeds a demo chatbot so the
// API can be exercised right after `docker compose up`.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	demoModel := flag.String("model", "openai/gpt-4o-mini", "model name for the demo chatbot")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := createSchema(ctx, pool); err != nil {
		log.Fatalf("create schema: %v", err)
	}
	fmt.Println("schema ready")

	// If a chatbot already exists, do nothing.
	var existing int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM chatbots`).Scan(&existing); err != nil {
		log.Fatalf("count chatbots: %v", err)
	}
	if existing > 0 {
		fmt.Printf("%d chatbots already present. No changes.\n", existing)
		return
	}

	id := uuid.NewString()
	apiKey := "cb_" + uuid.NewString()
	_, err = pool.Exec(ctx,
		`INSERT INTO chatbots (id, api_key, model_name) VALUES ($1, $2, $3)`,
		id, apiKey, *demoModel)
	if err != nil {
		log.Fatalf("insert demo chatbot: %v", err)
	}
	fmt.Printf("seeded demo chatbot:\n  id=%s\n  api_key=%s\n  model=%s\n", id, apiKey, *demoModel)
	fmt.Println("✅ Seeding complete.")
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS chatbots (
			id         TEXT PRIMARY KEY,
			api_key    TEXT NOT NULL UNIQUE,
			model_name TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id    TEXT PRIMARY KEY,
			chatbot_id    TEXT NOT NULL REFERENCES chatbots(id) ON DELETE CASCADE,
			created_at    TIMESTAMPTZ NOT NULL,
			last_activity TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_chatbot ON sessions(chatbot_id)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			timestamp  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id, timestamp)`,
	}
	for _, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

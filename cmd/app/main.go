// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saas-chatbot-backend/internal/config"
	"saas-chatbot-backend/internal/domain/ports/adapter"
	aiAdapters "saas-chatbot-backend/internal/infra/adapters/ai"
	"saas-chatbot-backend/internal/infra/api"
	pg "saas-chatbot-backend/internal/infra/db/postgres"
	"saas-chatbot-backend/internal/infra/logging"
	"saas-chatbot-backend/internal/infra/metrics"
	red "saas-chatbot-backend/internal/infra/redis"
	"saas-chatbot-backend/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop provider fallback)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	dedup := red.NewTurnDedup(redisClient, cfg.Limits.TurnDedupTTL)

	// ---- Repositories ----
	botRepo := pg.NewChatbotRepoCacheDecorator(pg.NewChatbotRepo(pool), redisClient, cfg.Redis.TTL)
	sessionRepo := pg.NewSessionRepo(pool)
	convRepo := pg.NewConversationRepo(pool)

	// ---- Completion adapter (OpenRouter -> OpenAI -> noop in dev) ----
	var ai adapter.CompletionAdapter
	switch {
	case cfg.AI.OpenRouterKey != "":
		ai, err = aiAdapters.NewOpenRouterAdapter(cfg.AI.OpenRouterKey, cfg.AI.OpenRouterBaseURL,
			cfg.AI.Temperature, cfg.AI.MaxTokens, cfg.AI.Timeout)
		if err != nil {
			log.Fatalf("openrouter adapter: %v", err)
		}
		logger.Info().Str("base", cfg.AI.OpenRouterBaseURL).Msg("completion adapter: OpenRouter")
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.Temperature, cfg.AI.MaxTokens, cfg.AI.Timeout)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Msg("completion adapter: OpenAI")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAdapter()
		logger.Warn().Msg("completion adapter: noop (dev)")
	default:
		log.Fatalf("no completion provider configured: set ai.openrouter_key or ai.openai_key in %s", *cfgPath)
	}
	ai = aiAdapters.NewLimitedCompleter(ai, cfg.AI.ConcurrentLimit)

	// ---- Use cases ----
	authUC := usecase.NewAuthUseCase(botRepo, logger)
	sessionUC := usecase.NewSessionUseCase(botRepo, sessionRepo, logger)
	chatUC := usecase.NewChatUseCase(authUC, sessionUC, botRepo, convRepo, ai, locker, dedup, cfg.Limits.TurnLockTTL, logger)

	// ---- HTTP ----
	srv := api.NewServer(authUC, sessionUC, chatUC, rateLimiter, cfg.Limits, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(cfg.Server.RequestTimeout),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	if err := server.Shutdown(shCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

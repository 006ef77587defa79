package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"saas-chatbot-backend/internal/config"
	red "saas-chatbot-backend/internal/infra/redis"
	"saas-chatbot-backend/internal/usecase"
)

// Server maps the chat API onto the use cases. All error-to-status mapping
// lives in handlers.go; nothing below this layer knows HTTP.
type Server struct {
	authUC    usecase.AuthUseCase
	sessionUC usecase.SessionUseCase
	chatUC    usecase.ChatUseCase
	limiter   *red.RateLimiter
	limits    config.LimitsConfig
	log       *zerolog.Logger
}

func NewServer(
	authUC usecase.AuthUseCase,
	sessionUC usecase.SessionUseCase,
	chatUC usecase.ChatUseCase,
	limiter *red.RateLimiter,
	limits config.LimitsConfig,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		authUC:    authUC,
		sessionUC: sessionUC,
		chatUC:    chatUC,
		limiter:   limiter,
		limits:    limits,
		log:       logger,
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router(requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(requestTimeout))

	r.Post("/api/chat/session", s.handleCreateSession)
	r.Post("/api/chat", s.handleChat)
	r.Post("/api/chat/widget/session", s.handleCreateWidgetSession)
	r.Post("/api/chat/widget", s.handleWidgetChat)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

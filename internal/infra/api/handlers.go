package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/ports/adapter"
	"saas-chatbot-backend/internal/infra/logging"
	red "saas-chatbot-backend/internal/infra/redis"
)

type createSessionRequest struct {
	APIKey      string `json:"api_key"`
	AssistantID string `json:"assistant_id"`
}

type chatRequest struct {
	APIKey      string            `json:"api_key"`
	SessionID   string            `json:"session_id"`
	AssistantID string            `json:"assistant_id"`
	TurnID      string            `json:"turn_id,omitempty"`
	Messages    []adapter.Message `json:"messages"`
}

type createWidgetSessionRequest struct {
	ChatbotID string `json:"chatbot_id"`
}

type widgetChatRequest struct {
	SessionID string `json:"session_id"`
	TurnID    string `json:"turn_id,omitempty"`
	Message   string `json:"message"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusUnauthorized, "API key is missing")
		return
	}
	if req.AssistantID == "" {
		writeError(w, http.StatusBadRequest, "assistant_id is required")
		return
	}

	ok, err := s.authUC.Authorize(ctx, req.APIKey, req.AssistantID)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusForbidden, "Invalid API key or assistant ID")
		return
	}

	sessionID, err := s.sessionUC.Create(ctx, req.AssistantID)
	if err != nil {
		s.mapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.APIKey == "" {
		writeError(w, http.StatusUnauthorized, "API key is missing")
		return
	}
	if req.SessionID == "" || req.AssistantID == "" || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "session_id, assistant_id and messages are required")
		return
	}

	ctx = logging.WithSessID(ctx, req.SessionID)
	ctx = logging.WithChatbotID(ctx, req.AssistantID)

	reply, err := s.chatUC.Chat(ctx, req.APIKey, req.SessionID, req.AssistantID, req.TurnID, req.Messages)
	if err != nil {
		s.mapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleCreateWidgetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createWidgetSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ChatbotID == "" {
		writeError(w, http.StatusBadRequest, "chatbot_id is required")
		return
	}

	if !s.allowWidget(w, r, "rate_limit:widget_session:"+req.ChatbotID) {
		return
	}

	sessionID, err := s.sessionUC.Create(ctx, req.ChatbotID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chatbot not found")
			return
		}
		s.serverError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

func (s *Server) handleWidgetChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req widgetChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "session_id and message are required")
		return
	}

	if !s.allowWidget(w, r, red.WidgetSessionKey(req.SessionID)) {
		return
	}

	ctx = logging.WithSessID(ctx, req.SessionID)

	reply, err := s.chatUC.WidgetChat(ctx, req.SessionID, req.TurnID, req.Message)
	if err != nil {
		s.mapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// allowWidget applies the fixed-window limiter to the unauthenticated widget
// surface. A limiter failure counts as allowed; rate limiting is protection,
// not a correctness dependency.
func (s *Server) allowWidget(w http.ResponseWriter, r *http.Request, key string) bool {
	allowed, err := s.limiter.Allow(r.Context(), key, s.limits.WidgetRequests, s.limits.WidgetWindow)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("widget rate limiter unavailable")
		return true
	}
	if !allowed {
		writeError(w, http.StatusTooManyRequests, "Too many requests")
		return false
	}
	return true
}

// mapError translates domain errors into response codes. Everything not in
// the taxonomy is a 500.
func (s *Server) mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "Invalid API key or assistant ID")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "Session not found or does not belong to the assistant")
	case errors.Is(err, domain.ErrDuplicateTurn):
		writeError(w, http.StatusConflict, "Turn already processed")
	case errors.Is(err, domain.ErrSessionBusy):
		writeError(w, http.StatusConflict, "Session is processing another turn")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	l := logging.With(r.Context(), s.log)
	if domain.IsUpstream(err) {
		l.Error().Err(err).Msg("completion provider failure")
		writeError(w, http.StatusInternalServerError, "Error processing your request")
		return
	}
	l.Error().Err(err).Msg("internal failure")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

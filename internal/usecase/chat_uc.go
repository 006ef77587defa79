// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/adapter"
	"saas-chatbot-backend/internal/domain/ports/repository"
	"saas-chatbot-backend/internal/infra/metrics"
	red "saas-chatbot-backend/internal/infra/redis"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

type ChatUseCase interface {
	// Chat runs one authenticated turn: authorize, resolve the session,
	// replay history, call the provider, persist the exchange.
	// turnID is an optional client idempotency token; "" disables dedup.
	Chat(ctx context.Context, apiKey, sessionID, chatbotID, turnID string, msgs []adapter.Message) (reply string, err error)
	// WidgetChat is the unauthenticated variant: the session is trusted to
	// pre-authorize its chatbot and exactly one user message is appended.
	WidgetChat(ctx context.Context, sessionID, turnID, message string) (reply string, err error)
}

type chatUC struct {
	auth     AuthUseCase
	sessions SessionUseCase
	bots     repository.ChatbotRepository
	convs    repository.ConversationRepository
	ai       adapter.CompletionAdapter
	locker   red.Locker
	dedup    *red.TurnDedup
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewChatUseCase(
	auth AuthUseCase,
	sessions SessionUseCase,
	bots repository.ChatbotRepository,
	convs repository.ConversationRepository,
	ai adapter.CompletionAdapter,
	locker red.Locker,
	dedup *red.TurnDedup,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *chatUC {
	return &chatUC{
		auth:     auth,
		sessions: sessions,
		bots:     bots,
		convs:    convs,
		ai:       ai,
		locker:   locker,
		dedup:    dedup,
		lockTTL:  lockTTL,
		log:      logger,
	}
}

func (c *chatUC) Chat(ctx context.Context, apiKey, sessionID, chatbotID, turnID string, msgs []adapter.Message) (string, error) {
	ok, err := c.auth.Authorize(ctx, apiKey, chatbotID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", domain.ErrForbidden
	}

	// Keep entries the client authored as the user; anything else the client
	// claims (assistant, system) is not trusted and silently dropped.
	userMsgs := make([]adapter.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			userMsgs = append(userMsgs, m)
		}
	}

	return c.turn(ctx, sessionID, chatbotID, turnID, userMsgs)
}

func (c *chatUC) WidgetChat(ctx context.Context, sessionID, turnID, message string) (string, error) {
	if message == "" {
		return "", domain.ErrInvalidArgument
	}
	return c.turn(ctx, sessionID, "", turnID, []adapter.Message{{Role: model.RoleUser, Content: message}})
}

// turn is the shared read-complete-write cycle. wantChatbotID != "" enables
// the cross-tenant check; a session must never be usable with a chatbot other
// than the one it was created under.
func (c *chatUC) turn(ctx context.Context, sessionID, wantChatbotID, turnID string, userMsgs []adapter.Message) (string, error) {
	resolved, err := c.sessions.ResolveChatbot(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if wantChatbotID != "" && resolved != wantChatbotID {
		return "", domain.ErrNotFound
	}

	bot, err := c.bots.FindByID(ctx, resolved)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && bot.ModelName == "") {
		// A session pointing at a missing or half-configured chatbot is an
		// operator problem, not a client one.
		return "", fmt.Errorf("chatbot %s configuration error", resolved)
	}
	if err != nil {
		return "", err
	}

	// One turn at a time per session; concurrent turns would interleave
	// their history reads and writes.
	token, err := c.locker.TryLock(ctx, red.SessionLockKey(sessionID), c.lockTTL)
	if err != nil {
		return "", err
	}
	defer func() { _ = c.locker.Unlock(context.WithoutCancel(ctx), red.SessionLockKey(sessionID), token) }()

	if turnID != "" {
		claimed, err := c.dedup.Claim(ctx, sessionID, turnID)
		if err != nil {
			return "", err
		}
		if !claimed {
			return "", domain.ErrDuplicateTurn
		}
	}

	reply, err := c.completeAndPersist(ctx, bot.ModelName, sessionID, turnID, userMsgs)
	if err != nil {
		return "", err
	}

	c.sessions.Touch(ctx, sessionID)
	return reply, nil
}

func (c *chatUC) completeAndPersist(ctx context.Context, modelName, sessionID, turnID string, userMsgs []adapter.Message) (string, error) {
	history, err := c.convs.ListBySession(ctx, sessionID)
	if err != nil {
		c.releaseTurn(ctx, sessionID, turnID)
		return "", err
	}

	// Full replay: the entire persisted history, oldest first, then the new
	// user messages in supplied order. No windowing is applied; prompt size
	// grows with the session (tracked below).
	prompt := make([]adapter.Message, 0, len(history)+len(userMsgs))
	for _, m := range history {
		prompt = append(prompt, adapter.Message{Role: m.Role, Content: m.Content})
	}
	prompt = append(prompt, userMsgs...)

	if est, err := c.ai.CountTokens(ctx, modelName, prompt); err == nil {
		c.log.Debug().Str("session_id", sessionID).Int("prompt_tokens_est", est).Int("messages", len(prompt)).Msg("prompt assembled")
	}

	start := time.Now()
	reply, usage, err := c.ai.ChatWithUsage(ctx, modelName, prompt)
	metrics.ObserveChatUsage(modelName, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens,
		int(time.Since(start).Milliseconds()), err == nil)
	if err != nil {
		c.releaseTurn(ctx, sessionID, turnID)
		return "", err
	}

	// Persist-first: the reply is only returned once the whole exchange is
	// on disk. Each row gets its own write-time timestamp so multiple user
	// messages in one turn keep their relative order.
	wrote := false
	for _, m := range userMsgs {
		if err := c.convs.Append(ctx, &model.Message{
			SessionID: sessionID,
			Role:      model.RoleUser,
			Content:   m.Content,
			Timestamp: time.Now(),
		}); err != nil {
			if !wrote {
				c.releaseTurn(ctx, sessionID, turnID)
			}
			return "", err
		}
		wrote = true
	}
	if err := c.convs.Append(ctx, &model.Message{
		SessionID: sessionID,
		Role:      model.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	}); err != nil {
		return "", err
	}

	return reply, nil
}

// releaseTurn frees the idempotency claim when nothing was persisted, so the
// client may safely retry with the same turn id.
func (c *chatUC) releaseTurn(ctx context.Context, sessionID, turnID string) {
	if turnID == "" {
		return
	}
	if err := c.dedup.Release(ctx, sessionID, turnID); err != nil {
		c.log.Warn().Err(err).Str("session_id", sessionID).Str("turn_id", turnID).Msg("release turn claim failed")
	}
}

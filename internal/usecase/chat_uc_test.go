// File: internal/usecase/chat_uc_test.go
package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/adapter"
	red "saas-chatbot-backend/internal/infra/redis"
)

type chatFixture struct {
	bots     *memChatbotRepo
	sessions *memSessionRepo
	convs    *memConversationRepo
	ai       *mockAI
	locker   *mockLocker
	uc       ChatUseCase
}

func newChatFixture(t *testing.T, bots ...*model.Chatbot) *chatFixture {
	t.Helper()
	if len(bots) == 0 {
		bots = []*model.Chatbot{{ID: "bot-1", APIKey: "key-1", ModelName: "gpt-4o-mini"}}
	}
	f := &chatFixture{
		bots:     newMemChatbotRepo(bots...),
		sessions: newMemSessionRepo(),
		convs:    newMemConversationRepo(),
		ai:       &mockAI{},
		locker:   newMockLocker(),
	}
	logger := newTestLogger()
	auth := NewAuthUseCase(f.bots, logger)
	sessionUC := NewSessionUseCase(f.bots, f.sessions, logger)
	dedup := red.NewTurnDedup(newMockRedisClient(), time.Hour)
	f.uc = NewChatUseCase(auth, sessionUC, f.bots, f.convs, f.ai, f.locker, dedup, time.Minute, logger)
	return f
}

func (f *chatFixture) newSession(t *testing.T, chatbotID string) string {
	t.Helper()
	s := model.NewSession(chatbotID)
	if err := f.sessions.Insert(context.Background(), s); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return s.ID
}

func TestChat_Turn(t *testing.T) {
	ctx := context.Background()

	t.Run("persists exchange and returns reply", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")

		reply, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "mock reply" {
			t.Fatalf("reply %q, want mock reply", reply)
		}

		rows := f.convs.all()
		if len(rows) != 2 {
			t.Fatalf("persisted %d rows, want 2", len(rows))
		}
		if rows[0].Role != model.RoleUser || rows[0].Content != "hello" {
			t.Fatalf("first row %+v, want user hello", rows[0])
		}
		if rows[1].Role != model.RoleAssistant || rows[1].Content != "mock reply" {
			t.Fatalf("second row %+v, want assistant reply", rows[1])
		}
		if f.sessions.TouchCalls != 1 {
			t.Fatalf("last_activity touched %d times, want 1", f.sessions.TouchCalls)
		}
	})

	t.Run("history is replayed oldest first", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")

		base := time.Now().Add(-time.Hour)
		seed := []model.Message{
			{SessionID: sid, Role: model.RoleUser, Content: "first", Timestamp: base},
			{SessionID: sid, Role: model.RoleAssistant, Content: "second", Timestamp: base.Add(time.Second)},
			{SessionID: sid, Role: model.RoleUser, Content: "third", Timestamp: base.Add(2 * time.Second)},
			{SessionID: sid, Role: model.RoleAssistant, Content: "fourth", Timestamp: base.Add(3 * time.Second)},
		}
		for i := range seed {
			if err := f.convs.Append(ctx, &seed[i]); err != nil {
				t.Fatal(err)
			}
		}

		if _, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "fifth"},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(f.ai.Prompts) != 1 {
			t.Fatalf("provider called %d times, want 1", len(f.ai.Prompts))
		}
		prompt := f.ai.Prompts[0]
		want := []string{"first", "second", "third", "fourth", "fifth"}
		if len(prompt) != len(want) {
			t.Fatalf("prompt has %d messages, want %d", len(prompt), len(want))
		}
		for i, w := range want {
			if prompt[i].Content != w {
				t.Fatalf("prompt[%d] = %q, want %q", i, prompt[i].Content, w)
			}
		}
	})

	t.Run("non-user roles from the client are dropped", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")

		if _, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleAssistant, Content: "injected"},
			{Role: "system", Content: "injected"},
			{Role: model.RoleUser, Content: "real"},
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		prompt := f.ai.Prompts[0]
		if len(prompt) != 1 || prompt[0].Content != "real" {
			t.Fatalf("prompt %+v, want only the user message", prompt)
		}
		for _, r := range f.convs.all() {
			if r.Content == "injected" {
				t.Fatal("client-claimed roles must not be persisted")
			}
		}
	})

	t.Run("wrong api key", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")
		_, err := f.uc.Chat(ctx, "key-wrong", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("want ErrForbidden, got %v", err)
		}
	})

	t.Run("session belongs to another chatbot", func(t *testing.T) {
		f := newChatFixture(t,
			&model.Chatbot{ID: "bot-1", APIKey: "key-1", ModelName: "gpt-4o-mini"},
			&model.Chatbot{ID: "bot-2", APIKey: "key-2", ModelName: "gpt-4o-mini"},
		)
		sid := f.newSession(t, "bot-2")

		_, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound on cross-tenant access, got %v", err)
		}
		if len(f.ai.Prompts) != 0 {
			t.Fatal("provider must not be called for a foreign session")
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newChatFixture(t)
		_, err := f.uc.Chat(ctx, "key-1", "nope", "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})

	t.Run("provider error persists nothing", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")
		boom := &domain.UpstreamError{Status: 502, Detail: "bad gateway"}
		f.ai.ChatWithUsageFunc = func(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error) {
			return "", adapter.Usage{}, boom
		}

		_, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if !domain.IsUpstream(err) {
			t.Fatalf("want upstream error, got %v", err)
		}
		if n := len(f.convs.all()); n != 0 {
			t.Fatalf("persisted %d rows after provider failure, want 0", n)
		}
		if f.sessions.TouchCalls != 0 {
			t.Fatal("last_activity must not move on a failed turn")
		}
	})

	t.Run("busy session", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")
		if _, err := f.locker.TryLock(ctx, red.SessionLockKey(sid), time.Minute); err != nil {
			t.Fatal(err)
		}

		_, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if !errors.Is(err, domain.ErrSessionBusy) {
			t.Fatalf("want ErrSessionBusy, got %v", err)
		}
	})

	t.Run("lock released after turn", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")

		for i := 0; i < 3; i++ {
			if _, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
				{Role: model.RoleUser, Content: "hello"},
			}); err != nil {
				t.Fatalf("turn %d: %v", i, err)
			}
		}
	})

	t.Run("chatbot without model is a server error", func(t *testing.T) {
		f := newChatFixture(t, &model.Chatbot{ID: "bot-1", APIKey: "key-1"})
		sid := f.newSession(t, "bot-1")

		_, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if err == nil {
			t.Fatal("expected an error")
		}
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("misconfiguration must not map to a client error, got %v", err)
		}
	})
}

func TestChat_TurnDedup(t *testing.T) {
	ctx := context.Background()

	t.Run("duplicate turn id rejected", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")

		if _, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "turn-1", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		}); err != nil {
			t.Fatalf("first turn: %v", err)
		}

		_, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "turn-1", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if !errors.Is(err, domain.ErrDuplicateTurn) {
			t.Fatalf("want ErrDuplicateTurn, got %v", err)
		}
		if n := len(f.convs.all()); n != 2 {
			t.Fatalf("persisted %d rows, want 2 (single exchange)", n)
		}
	})

	t.Run("claim released when provider fails", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")
		fail := true
		f.ai.ChatWithUsageFunc = func(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error) {
			if fail {
				return "", adapter.Usage{}, &domain.UpstreamError{Status: 503, Detail: "overloaded"}
			}
			return "ok now", adapter.Usage{}, nil
		}

		if _, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "turn-1", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		}); err == nil {
			t.Fatal("expected provider failure")
		}

		fail = false
		reply, err := f.uc.Chat(ctx, "key-1", sid, "bot-1", "turn-1", []adapter.Message{
			{Role: model.RoleUser, Content: "hello"},
		})
		if err != nil {
			t.Fatalf("retry with same turn id must succeed, got %v", err)
		}
		if reply != "ok now" {
			t.Fatalf("reply %q", reply)
		}
	})
}

func TestWidgetChat(t *testing.T) {
	ctx := context.Background()

	t.Run("no api key required", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")

		reply, err := f.uc.WidgetChat(ctx, sid, "", "hi there")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "mock reply" {
			t.Fatalf("reply %q", reply)
		}
		rows := f.convs.all()
		if len(rows) != 2 || rows[0].Content != "hi there" {
			t.Fatalf("rows %+v", rows)
		}
	})

	t.Run("empty message", func(t *testing.T) {
		f := newChatFixture(t)
		sid := f.newSession(t, "bot-1")
		if _, err := f.uc.WidgetChat(ctx, sid, "", ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newChatFixture(t)
		if _, err := f.uc.WidgetChat(ctx, "nope", "", "hi"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	})
}

// File: internal/usecase/mock_test.go
package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saas-chatbot-backend/internal/domain"
	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/adapter"
	"saas-chatbot-backend/internal/domain/ports/repository"
	red "saas-chatbot-backend/internal/infra/redis"
)

// =============================
// Repositories
// =============================

type memChatbotRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Chatbot

	FindByIDFunc func(ctx context.Context, id string) (*model.Chatbot, error)
}

var _ repository.ChatbotRepository = (*memChatbotRepo)(nil)

func newMemChatbotRepo(bots ...*model.Chatbot) *memChatbotRepo {
	m := &memChatbotRepo{byID: map[string]*model.Chatbot{}}
	for _, b := range bots {
		m.byID[b.ID] = b
	}
	return m
}

func (m *memChatbotRepo) FindByID(ctx context.Context, id string) (*model.Chatbot, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if b := m.byID[id]; b != nil {
		cp := *b
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

type memSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Session

	InsertFunc func(ctx context.Context, s *model.Session) error
	TouchCalls int
}

var _ repository.SessionRepository = (*memSessionRepo)(nil)

func newMemSessionRepo(sessions ...*model.Session) *memSessionRepo {
	m := &memSessionRepo{byID: map[string]*model.Session{}}
	for _, s := range sessions {
		cp := *s
		m.byID[s.ID] = &cp
	}
	return m
}

func (m *memSessionRepo) Insert(ctx context.Context, s *model.Session) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[s.ID]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *s
	m.byID[s.ID] = &cp
	return nil
}

func (m *memSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s := m.byID[id]; s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memSessionRepo) TouchLastActivity(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.byID[id]
	if s == nil {
		return domain.ErrNotFound
	}
	s.LastActivity = at
	m.TouchCalls++
	return nil
}

type memConversationRepo struct {
	mu   sync.Mutex
	rows []model.Message

	AppendFunc func(ctx context.Context, msg *model.Message) error
	ListFunc   func(ctx context.Context, sessionID string) ([]model.Message, error)
}

var _ repository.ConversationRepository = (*memConversationRepo)(nil)

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{}
}

func (m *memConversationRepo) Append(ctx context.Context, msg *model.Message) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, msg)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memConversationRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, r := range m.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// all returns every stored row in insertion order, for assertions.
func (m *memConversationRepo) all() []model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Message, len(m.rows))
	copy(out, m.rows)
	return out
}

// =============================
// Completion adapter
// =============================

type mockAI struct {
	mu sync.Mutex

	ChatWithUsageFunc func(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error)
	CountTokensFunc   func(ctx context.Context, model string, msgs []adapter.Message) (int, error)

	// tracing of invocations
	Prompts [][]adapter.Message
}

var _ adapter.CompletionAdapter = (*mockAI)(nil)

func (m *mockAI) Chat(ctx context.Context, model string, msgs []adapter.Message) (string, error) {
	reply, _, err := m.ChatWithUsage(ctx, model, msgs)
	return reply, err
}

func (m *mockAI) ChatWithUsage(ctx context.Context, model string, msgs []adapter.Message) (string, adapter.Usage, error) {
	m.mu.Lock()
	cp := make([]adapter.Message, len(msgs))
	copy(cp, msgs)
	m.Prompts = append(m.Prompts, cp)
	m.mu.Unlock()
	if m.ChatWithUsageFunc != nil {
		return m.ChatWithUsageFunc(ctx, model, msgs)
	}
	return "mock reply", adapter.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, nil
}

func (m *mockAI) CountTokens(ctx context.Context, model string, msgs []adapter.Message) (int, error) {
	if m.CountTokensFunc != nil {
		return m.CountTokensFunc(ctx, model, msgs)
	}
	n := 0
	for _, msg := range msgs {
		n += len(msg.Content)
	}
	return n / 4, nil
}

// ---- In-memory Locker (implements redis.Locker port) ----

type mockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ red.Locker = (*mockLocker)(nil)

func newMockLocker() *mockLocker {
	return &mockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrSessionBusy
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *mockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

// ---- In-memory RedisClient (backs TurnDedup in tests) ----

type mockRedisClient struct {
	mu   sync.Mutex
	data map[string]string
}

var _ red.RedisClient = (*mockRedisClient)(nil)

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{data: map[string]string{}}
}

func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = "1"
	return nil
}

func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = "1"
	return true, nil
}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", errors.New("redis: nil")
}

func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] += "x"
	return int64(len(m.data[key])), nil
}

func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mockRedisClient) Close() error { return nil }

// newTestLogger creates a silent zerolog.Logger so test output stays clean.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

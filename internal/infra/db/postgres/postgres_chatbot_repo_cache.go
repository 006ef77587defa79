package postgres

import (
	"context"
	"encoding/json"
	"time"

	"saas-chatbot-backend/internal/domain/model"
	"saas-chatbot-backend/internal/domain/ports/repository"
	"saas-chatbot-backend/internal/infra/metrics"
	red "saas-chatbot-backend/internal/infra/redis"
)

var _ repository.ChatbotRepository = (*chatbotRepoCacheDecorator)(nil)

// chatbotRepoCacheDecorator keeps chatbot rows warm so the authorization
// check on every turn does not hit Postgres each time. The table is read-only
// from this service, so staleness is bounded by the TTL and harmless.
type chatbotRepoCacheDecorator struct {
	inner repository.ChatbotRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewChatbotRepoCacheDecorator(inner repository.ChatbotRepository, cache red.RedisClient, ttl time.Duration) repository.ChatbotRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &chatbotRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func (d *chatbotRepoCacheDecorator) FindByID(ctx context.Context, id string) (*model.Chatbot, error) {
	key := "chatbot:id:" + id
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		metrics.IncCacheRequest("chatbot", "hit")
		var bot model.Chatbot
		if json.Unmarshal([]byte(val), &bot) == nil {
			return &bot, nil
		}
	}

	metrics.IncCacheRequest("chatbot", "miss")
	bot, err := d.inner.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot != nil {
		bytes, _ := json.Marshal(bot)
		_ = d.cache.Set(ctx, key, bytes, d.ttl)
	}
	return bot, nil
}

package redis

import (
	"context"
	"time"
)

// TurnDedup claims client-supplied turn identifiers so a blind retry after a
// timeout cannot append the same user message twice.
type TurnDedup struct {
	client RedisClient
	ttl    time.Duration
}

func NewTurnDedup(client RedisClient, ttl time.Duration) *TurnDedup {
	return &TurnDedup{client: client, ttl: ttl}
}

// Claim returns false when the turn id was already seen within the TTL.
func (d *TurnDedup) Claim(ctx context.Context, sessionID, turnID string) (bool, error) {
	key := "turn:" + sessionID + ":" + turnID
	return d.client.SetNX(ctx, key, 1, d.ttl)
}

// Release frees a claimed turn id so the client may retry after a failed
// turn (nothing was persisted).
func (d *TurnDedup) Release(ctx context.Context, sessionID, turnID string) error {
	return d.client.Del(ctx, "turn:"+sessionID+":"+turnID)
}

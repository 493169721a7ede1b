package ingest

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "gridpulse:idem:"

// Deduper backs the sender-side idempotency tokens with a redis SET-NX-EX
// per token.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeduper returns a token store with the given retention window.
func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{client: client, ttl: ttl}
}

// FirstSeen records the token and reports whether this is its first
// appearance within the TTL window.
func (d *Deduper) FirstSeen(ctx context.Context, token string) (bool, error) {
	return d.client.SetNX(ctx, idempotencyKeyPrefix+token, 1, d.ttl).Result()
}

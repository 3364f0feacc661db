package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DeliveryTTL = 24 * time.Hour

// DeliveryGuard remembers webhook ids that were applied. It only short-circuits
// redeliveries; database constraints stay the source of truth.
type DeliveryGuard interface {
	Seen(ctx context.Context, provider, webhookID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, webhookID string) error
}

func DeliveryKey(provider, webhookID string) string {
	return "webhook:" + provider + ":" + webhookID
}

type RedisGuard struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisGuard(client redis.Cmdable, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = DeliveryTTL
	}
	return &RedisGuard{client: client, ttl: ttl}
}

func (g *RedisGuard) Seen(ctx context.Context, provider, webhookID string) (bool, error) {
	err := g.client.Get(ctx, DeliveryKey(provider, webhookID)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (g *RedisGuard) MarkProcessed(ctx context.Context, provider, webhookID string) error {
	return g.client.Set(ctx, DeliveryKey(provider, webhookID), time.Now().UTC().Format(time.RFC3339), g.ttl).Err()
}

// NoopGuard never remembers anything. Used when no cache is configured.
type NoopGuard struct{}

func (NoopGuard) Seen(context.Context, string, string) (bool, error)  { return false, nil }
func (NoopGuard) MarkProcessed(context.Context, string, string) error { return nil }

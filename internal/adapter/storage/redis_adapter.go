package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pantry/internal/port"
)

const (
	idempotencyKeyPrefix  = "idempotency:"
	DefaultIdempotencyTTL = 24 * time.Hour

	claimPending = "pending"
	claimDone    = "done"
)

var _ port.IdempotencyRepository = (*RedisAdapter)(nil)

// releaseScript deletes a claim only while it is still pending, so a request
// that already completed cannot be replayed after a late failure report.
var releaseScript = redis.NewScript(`
local key = KEYS[1]

local current = redis.call('GET', key)
if current == ARGV[1] then
	redis.call('DEL', key)
	return 1
end

return 0
`)

type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, claimPending, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) Complete(ctx context.Context, key string) error {
	err := r.client.SetArgs(ctx, idempotencyKeyPrefix+key, claimDone, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

func (r *RedisAdapter) Release(ctx context.Context, key string) error {
	return releaseScript.Run(ctx, r.client, []string{idempotencyKeyPrefix + key}, claimPending).Err()
}

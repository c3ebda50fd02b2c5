package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld indica que outro processo já está com o lock
var ErrHeld = errors.New("lock held by another worker")

// releaseScript só apaga a chave se o token ainda for o nosso (lock não expirou e foi pego por outro)
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker coordena vários settlement-workers sobre o mesmo ledger
type RedisLocker struct {
	Client *redis.Client
	Prefix string
}

func NewRedisLocker(c *redis.Client) *RedisLocker {
	return &RedisLocker{Client: c, Prefix: "settlement:lock:"}
}

// Acquire tenta o lock sem bloquear; devolve a função de liberação
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	token := uuid.NewString()
	k := l.Prefix + key

	ok, err := l.Client.SetNX(ctx, k, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.Client, []string{k}, token).Err()
	}
	return release, nil
}

package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLockRepository struct {
	redis *redis.Client
}

func NewRedisLockRepository(redisClient *redis.Client) *RedisLockRepository {
	return &RedisLockRepository{redis: redisClient}
}

func (r *RedisLockRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.redis.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (r *RedisLockRepository) Release(ctx context.Context, key string, token string) error {
	err := releaseScript.Run(ctx, r.redis, []string{key}, token).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// unlockScript deletes the key only while it still holds our token, so a lock
// that expired and was taken by another terminal is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLockStore is a SETNX lock shared by every terminal on the same Redis.
type RedisLockStore struct {
	rdb   *redis.Client
	ttl   time.Duration
	owner string
}

func NewRedisLockStore(rdb *redis.Client, ttl time.Duration) *RedisLockStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLockStore{rdb: rdb, ttl: ttl, owner: uuid.NewString()}
}

func lockKey(scope, key string) string { return "lock:" + scope + ":" + key }

func (s *RedisLockStore) TryLock(ctx context.Context, scope, key string) (bool, error) {
	return s.rdb.SetNX(ctx, lockKey(scope, key), s.owner, s.ttl).Result()
}

func (s *RedisLockStore) Unlock(ctx context.Context, scope, key string) error {
	return unlockScript.Run(ctx, s.rdb, []string{lockKey(scope, key)}, s.owner).Err()
}

func (s *RedisLockStore) TTL() time.Duration { return s.ttl }

// Extend pushes the expiry a full TTL out while the lock is still ours.
func (s *RedisLockStore) Extend(ctx context.Context, scope, key string) (bool, error) {
	n, err := extendScript.Run(ctx, s.rdb, []string{lockKey(scope, key)}, s.owner, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ usecase.ExpiringLockStore = (*RedisLockStore)(nil)

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aq2208/campuspay-terminal/internal/security"
	"github.com/aq2208/campuspay-terminal/internal/session"
)

// RedisTokenStore persists the backend session sealed with the terminal key,
// so a restarted terminal stays signed in.
type RedisTokenStore struct {
	rdb    *redis.Client
	crypto security.CryptoService
	key    string
}

func NewRedisTokenStore(rdb *redis.Client, cs security.CryptoService, terminal string) *RedisTokenStore {
	return &RedisTokenStore{rdb: rdb, crypto: cs, key: "session:" + terminal}
}

func (s *RedisTokenStore) Load(ctx context.Context) (session.Tokens, bool, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return session.Tokens{}, false, nil
	}
	if err != nil {
		return session.Tokens{}, false, err
	}
	plain, err := s.crypto.Open(raw)
	if err != nil {
		return session.Tokens{}, false, fmt.Errorf("open session: %w", err)
	}
	var t session.Tokens
	if err := json.Unmarshal(plain, &t); err != nil {
		return session.Tokens{}, false, fmt.Errorf("decode session: %w", err)
	}
	return t, true, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, t session.Tokens) error {
	plain, err := json.Marshal(t)
	if err != nil {
		return err
	}
	sealed, err := s.crypto.Seal(plain)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, sealed, 0).Err()
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

var _ session.Store = (*RedisTokenStore)(nil)

package cache

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

// RedisSettlementLedger stores order:settlement:<id> = TRANSFERRED:<attempt> | SETTLED.
type RedisSettlementLedger struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSettlementLedger keeps entries for ttl; 0 keeps them until deleted.
func NewRedisSettlementLedger(rdb *redis.Client, ttl time.Duration) *RedisSettlementLedger {
	return &RedisSettlementLedger{rdb: rdb, ttl: ttl}
}

func ledgerKey(orderID int64) string {
	return "order:settlement:" + strconv.FormatInt(orderID, 10)
}

func (l *RedisSettlementLedger) Status(ctx context.Context, orderID int64) (usecase.SettlementStatus, error) {
	val, err := l.rdb.Get(ctx, ledgerKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return usecase.SettlementNone, nil
	}
	if err != nil {
		return usecase.SettlementNone, err
	}
	status, _, _ := strings.Cut(val, ":")
	return usecase.SettlementStatus(status), nil
}

// MarkTransferred never downgrades an order already settled.
func (l *RedisSettlementLedger) MarkTransferred(ctx context.Context, orderID int64, attemptID string) error {
	val := string(usecase.SettlementTransferred) + ":" + attemptID
	key := ledgerKey(orderID)
	return l.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur == string(usecase.SettlementSettled) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, val, l.ttl)
			return nil
		})
		return err
	}, key)
}

func (l *RedisSettlementLedger) MarkSettled(ctx context.Context, orderID int64) error {
	return l.rdb.Set(ctx, ledgerKey(orderID), string(usecase.SettlementSettled), l.ttl).Err()
}

// Clear drops the entry once an operator reconciled the order with the backend.
func (l *RedisSettlementLedger) Clear(ctx context.Context, orderID int64) error {
	return l.rdb.Del(ctx, ledgerKey(orderID)).Err()
}

var _ usecase.SettlementLedger = (*RedisSettlementLedger)(nil)

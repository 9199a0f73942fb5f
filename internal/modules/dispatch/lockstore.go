// README: Paired (order, driver) mutual-exclusion keys on Redis.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleet/internal/types"
)

// LockStore is the atomic primitive set the engine coordinates through.
// Acquisition must be a single atomic set-if-absent: a read followed by a
// separate write would let two offers claim the same key between the calls.
type LockStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

const (
	driverLockPrefix = "driver_lock:"
	orderLockPrefix  = "order_lock:"
)

func driverLockKey(driverID types.ID) string {
	return driverLockPrefix + string(driverID)
}

func orderLockKey(orderID types.ID) string {
	return orderLockPrefix + string(orderID)
}

// RedisLockStore implements LockStore with SET NX EX.
type RedisLockStore struct {
	redis *redis.Client
}

func NewRedisLockStore(redis *redis.Client) *RedisLockStore {
	return &RedisLockStore{redis: redis}
}

func (s *RedisLockStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.redis.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

func (s *RedisLockStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storeErr(err)
	}
	return val, true, nil
}

func (s *RedisLockStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return storeErr(err)
	}
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

package dispatch

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func setupLockStore(t *testing.T) *RedisLockStore {
	t.Helper()

	addr := os.Getenv("FLEET_TEST_REDIS")
	if addr == "" {
		t.Skip("FLEET_TEST_REDIS not set; skipping Redis-backed tests")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	return NewRedisLockStore(client)
}

func TestRedisLockStore_SetIfAbsent(t *testing.T) {
	s := setupLockStore(t)
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "driver_lock:d1", "o1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	ok, err = s.SetIfAbsent(ctx, "driver_lock:d1", "o2", time.Minute)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if ok {
		t.Fatal("acquiring a held key must fail")
	}

	val, held, err := s.Get(ctx, "driver_lock:d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !held || val != "o1" {
		t.Fatalf("got %q held=%v, want o1 held by first acquirer", val, held)
	}
}

func TestRedisLockStore_GetAbsent(t *testing.T) {
	s := setupLockStore(t)
	_, held, err := s.Get(context.Background(), "order_lock:missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if held {
		t.Fatal("missing key reported as held")
	}
}

func TestRedisLockStore_Delete(t *testing.T) {
	s := setupLockStore(t)
	ctx := context.Background()

	if _, err := s.SetIfAbsent(ctx, "order_lock:o1", "d1", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := s.Delete(ctx, "order_lock:o1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ok, err := s.SetIfAbsent(ctx, "order_lock:o1", "d2", time.Minute)
	if err != nil || !ok {
		t.Fatalf("reacquire after delete: ok=%v err=%v", ok, err)
	}
}

func TestRedisLockStore_TTLExpiry(t *testing.T) {
	s := setupLockStore(t)
	ctx := context.Background()

	if _, err := s.SetIfAbsent(ctx, "driver_lock:d1", "o1", 50*time.Millisecond); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	_, held, err := s.Get(ctx, "driver_lock:d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if held {
		t.Fatal("key must expire with its TTL")
	}
}

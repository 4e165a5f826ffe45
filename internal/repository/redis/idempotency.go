package redisrepo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idemLock   = "LOCK"
	idemResult = "RES:"
)

// IdempotencyStore remembers the response of a keyed request so a retried
// POST returns the first outcome instead of charging twice.
type IdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewIdempotencyStore(rdb *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) AcquireLock(ctx context.Context, key string, lockTTL time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, key, idemLock, lockTTL).Result()
}

// SaveResult stores the status code and body of the finished request.
func (s *IdempotencyStore) SaveResult(ctx context.Context, key string, status int, body string) error {
	val := idemResult + strconv.Itoa(status) + "|" + body
	return s.rdb.Set(ctx, key, val, s.ttl).Err()
}

func (s *IdempotencyStore) GetResult(ctx context.Context, key string) (int, string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	if !strings.HasPrefix(v, idemResult) {
		return 0, "", false, nil
	}

	code, body, ok := strings.Cut(strings.TrimPrefix(v, idemResult), "|")
	if !ok {
		return 0, "", false, nil
	}
	status, err := strconv.Atoi(code)
	if err != nil {
		return 0, "", false, nil
	}

	return status, body, true, nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "coursebot:attempt:"

// RedisStore shares attempts between bot processes. Entries expire after ttl
// so abandoned quizzes do not accumulate.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore connects to addr and verifies the connection
func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(rdb, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(learnerID int64) string {
	return redisKeyPrefix + strconv.FormatInt(learnerID, 10)
}

func (s *RedisStore) Get(ctx context.Context, learnerID int64) (*Attempt, error) {
	raw, err := s.rdb.Get(ctx, s.key(learnerID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNoActiveAttempt
	}
	if err != nil {
		return nil, fmt.Errorf("redis get attempt: %w", err)
	}
	var a Attempt
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode attempt: %w", err)
	}
	return &a, nil
}

func (s *RedisStore) Save(ctx context.Context, a *Attempt) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(a.LearnerID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set attempt: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, learnerID int64) error {
	if err := s.rdb.Del(ctx, s.key(learnerID)).Err(); err != nil {
		return fmt.Errorf("redis delete attempt: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

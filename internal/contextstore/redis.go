package contextstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// RedisStore keeps the per-user turn window in a redis list so context
// survives process restarts and is shared across instances. RPUSH+LTRIM
// keeps only the window; the TTL evicts idle conversations.
type RedisStore struct {
	client *redisv9.Client
	window int
	ttl    time.Duration
}

func NewRedisStore(client *redisv9.Client, window int, ttl time.Duration) *RedisStore {
	if window <= 0 {
		window = DefaultWindow
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{
		client: client,
		window: window,
		ttl:    ttl,
	}
}

func (s *RedisStore) AppendTurn(ctx context.Context, userID, role, text string) error {
	key := s.key(userID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, FormatTurn(role, text))
	pipe.LTrim(ctx, key, int64(-s.window), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append turn failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Context(ctx context.Context, userID string) (string, error) {
	entries, err := s.client.LRange(ctx, s.key(userID), int64(-s.window), -1).Result()
	if err != nil {
		return "", fmt.Errorf("redis read context failed: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}
	return strings.Join(entries, "\n"), nil
}

func (s *RedisStore) key(userID string) string {
	return "chat:context:" + userID
}

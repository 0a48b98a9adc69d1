package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps counters in one Redis hash per guest.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server at url. Guest hashes expire ttl
// after their last increment; zero keeps them forever.
func NewRedisStore(url, prefix string, ttl time.Duration) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("usage: redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("usage: parse redis url: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts), prefix: prefix, ttl: ttl}, nil
}

func (s *RedisStore) key(guestID string) string {
	return s.prefix + "usage:" + guestID
}

// Counts implements Store.
func (s *RedisStore) Counts(ctx context.Context, guestID string) (Counts, error) {
	vals, err := s.client.HGetAll(ctx, s.key(guestID)).Result()
	if err != nil {
		return nil, err
	}
	counts := make(Counts, len(vals))
	for feature, v := range vals {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		counts[feature] = n
	}
	return counts, nil
}

// Add implements Store.
func (s *RedisStore) Add(ctx context.Context, guestID, feature string, delta int) (int, error) {
	key := s.key(guestID)
	n, err := s.client.HIncrBy(ctx, key, feature, int64(delta)).Result()
	if err != nil {
		return 0, fmt.Errorf("usage: add %s: %w", feature, err)
	}
	if n < 0 {
		if err := s.client.HSet(ctx, key, feature, 0).Err(); err != nil {
			return 0, fmt.Errorf("usage: reset %s: %w", feature, err)
		}
		n = 0
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return 0, fmt.Errorf("usage: expire %s: %w", key, err)
		}
	}
	return int(n), nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

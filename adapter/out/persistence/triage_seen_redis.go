package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"triage_server/core/port/out"
)

// SeenSetKey Redis key for the seen message ID set.
const SeenSetKey = "triage:seen"

// seenTTL expires the set after a quiet period so the key does not grow
// forever when the worker is decommissioned.
const seenTTL = 30 * 24 * time.Hour

// RedisSeenStore keeps seen message IDs in a Redis set. SADD makes the
// check-and-mark atomic, so concurrent workers sharing the set cannot both
// claim an id. The set is cleared at each worker start; within a run it
// outlives process crashes.
type RedisSeenStore struct {
	client *redis.Client
}

func NewRedisSeenStore(client *redis.Client) *RedisSeenStore {
	return &RedisSeenStore{client: client}
}

// MarkSeen adds id to the set and reports whether it was newly added.
// SADD returns the number of members actually inserted, which makes the
// check-and-mark a single atomic operation.
func (s *RedisSeenStore) MarkSeen(ctx context.Context, id string) (bool, error) {
	added, err := s.client.SAdd(ctx, SeenSetKey, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message seen: %w", err)
	}
	if err := s.client.Expire(ctx, SeenSetKey, seenTTL).Err(); err != nil {
		return false, fmt.Errorf("failed to refresh seen set ttl: %w", err)
	}
	return added == 1, nil
}

// Reset drops the whole set.
func (s *RedisSeenStore) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, SeenSetKey).Err(); err != nil {
		return fmt.Errorf("failed to reset seen set: %w", err)
	}
	return nil
}

var _ out.SeenStore = (*RedisSeenStore)(nil)

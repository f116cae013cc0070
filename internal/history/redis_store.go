package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one JSON record per (queue, user). The key carries both
// the queue and the user id to avoid cross-context collisions.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func stateKey(queue, userID string) string {
	return fmt.Sprintf("votingstate:%s:%s", queue, userID)
}

func (s *RedisStore) Load(ctx context.Context, queue, userID string) (*State, error) {
	raw, err := s.rdb.Get(ctx, stateKey(queue, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return NewState(), nil // first-time voter
	}
	if err != nil {
		return nil, err
	}

	var r record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		// Corrupt saved state degrades to a fresh start rather than
		// blocking the session.
		return NewState(), nil
	}
	return fromRecord(r), nil
}

func (s *RedisStore) Save(ctx context.Context, queue, userID string, st *State) error {
	raw, err := json.Marshal(toRecord(st))
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(queue, userID), raw, 0).Err()
}

func (s *RedisStore) Reset(ctx context.Context, queue, userID string) error {
	return s.rdb.Del(ctx, stateKey(queue, userID)).Err()
}

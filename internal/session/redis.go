package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in a shared redis.
const keyPrefix = "memeyard/session/"

// RedisStore keeps sessions in redis as JSON so they survive restarts.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the redis at url and checks it with a ping.
// A zero ttl keeps sessions until they are replaced.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("session: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session: ping redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func redisKey(userID string) string {
	return keyPrefix + userID
}

func (r *RedisStore) Get(ctx context.Context, userID string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", userID, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", userID, err)
	}
	return &s, nil
}

func (r *RedisStore) Put(ctx context.Context, s *Session) error {
	if s == nil || s.UserID == "" {
		return ErrNoUser
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", s.UserID, err)
	}
	if err := r.client.Set(ctx, redisKey(s.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: put %s: %w", s.UserID, err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

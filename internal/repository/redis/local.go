package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LocalStore keeps client-local state (cart, session) in Redis. It satisfies
// storage.Local. Writes are announced on the change feed when one is set.
type LocalStore struct {
	rdb     *redis.Client
	profile string
	ttl     time.Duration
	feed    *ChangeFeed
}

type LocalOption func(*LocalStore)

// WithTTL expires stored values after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) LocalOption { return func(s *LocalStore) { s.ttl = ttl } }

// WithFeed publishes every Set and Remove on feed.
func WithFeed(feed *ChangeFeed) LocalOption { return func(s *LocalStore) { s.feed = feed } }

func NewLocalStore(rdb *redis.Client, profile string, opts ...LocalOption) *LocalStore {
	if profile == "" {
		profile = "default"
	}

	s := &LocalStore{rdb: rdb, profile: profile}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "redis.LocalStore.Get"

	v, err := s.rdb.Get(ctx, KeyLocal(s.profile, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return v, true, nil
}

func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	const op = "redis.LocalStore.Set"

	if err := s.rdb.Set(ctx, KeyLocal(s.profile, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.announce(ctx, op, key)
}

func (s *LocalStore) Remove(ctx context.Context, key string) error {
	const op = "redis.LocalStore.Remove"

	if err := s.rdb.Del(ctx, KeyLocal(s.profile, key)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return s.announce(ctx, op, key)
}

func (s *LocalStore) announce(ctx context.Context, op, key string) error {
	if s.feed == nil {
		return nil
	}
	if err := s.feed.Publish(ctx, key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

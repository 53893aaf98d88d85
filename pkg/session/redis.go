package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkit-hq/linkit-engine/pkg/models"
)

const (
	redisKeyPrefix     = "linkit:session:"
	maxOptimisticTries = 8
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a store shared by every engine instance. A zero ttl never expires.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

var _ Store = (*redisStore)(nil)

func redisFeedKey(key Key, kind models.FeedKind) string {
	return redisKeyPrefix + feedKey(key, kind)
}

func (s *redisStore) SaveFeed(ctx context.Context, key Key, state *FeedState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode feed: %w", err)
	}
	if err := s.client.Set(ctx, redisFeedKey(key, state.Kind), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save feed: %w", err)
	}
	return nil
}

func (s *redisStore) LoadFeed(ctx context.Context, key Key, kind models.FeedKind) (*FeedState, error) {
	data, err := s.client.Get(ctx, redisFeedKey(key, kind)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoFeed
		}
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return decodeFeed(data)
}

// UpdateFeed uses WATCH/MULTI so concurrent cursor moves on different instances
// never overwrite each other. A lost race re-reads and reapplies fn.
func (s *redisStore) UpdateFeed(ctx context.Context, key Key, kind models.FeedKind, fn func(state *FeedState) error) error {
	k := redisFeedKey(key, kind)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNoFeed
			}
			return fmt.Errorf("failed to load feed: %w", err)
		}
		state, err := decodeFeed(data)
		if err != nil {
			return err
		}
		if err := fn(state); err != nil {
			return err
		}
		payload, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("failed to encode feed: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxOptimisticTries; i++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContended
}

func (s *redisStore) Clear(ctx context.Context, key Key) error {
	keys := make([]string, 0, len(feedKinds))
	for _, kind := range feedKinds {
		keys = append(keys, redisFeedKey(key, kind))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func decodeFeed(data []byte) (*FeedState, error) {
	var state FeedState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode feed: %w", err)
	}
	return &state, nil
}

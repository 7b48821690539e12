package docstore

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore stores each document as a JSON string under "<collection>:<key>".
// Update uses WATCH/MULTI so concurrent writers to the same key retry instead of overwriting.
type RedisStore struct {
	client     redis.UniversalClient
	maxRetries int
}

func NewRedisStore(client redis.UniversalClient, maxRetries int) *RedisStore {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &RedisStore{client: client, maxRetries: maxRetries}
}

func (s *RedisStore) Get(ctx context.Context, collection, key string) ([]byte, error) {
	raw, err := s.client.Get(ctx, docKey(collection, key)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s/%s: %w", collection, key, err)
	}
	return raw, nil
}

func (s *RedisStore) Set(ctx context.Context, collection, key string, doc []byte) error {
	if err := s.client.Set(ctx, docKey(collection, key), doc, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s/%s: %w", collection, key, err)
	}
	return nil
}

func (s *RedisStore) Update(ctx context.Context, collection, key string, mutate MutateFunc) error {
	k := docKey(collection, key)

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, k).Bytes()
		if stderrors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return err
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, next, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return nil
		}
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("redis update %s/%s: %w", collection, key, err)
	}
	return ErrConflict
}

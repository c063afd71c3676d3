package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis stores blobs in Redis with a companion <key>:version counter,
// using WATCH/MULTI for compare-and-swap. Used when the deployment keeps
// analytics state in Redis instead of Postgres.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func versionKey(key string) string {
	return key + ":version"
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, int64, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %q: %w", key, err)
	}

	version, err := r.client.Get(ctx, versionKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		version = 0
	} else if err != nil {
		return nil, 0, fmt.Errorf("get version %q: %w", key, err)
	}
	return value, version, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte, expect int64) (int64, error) {
	var next int64

	txn := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, versionKey(key)).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expect {
			return ErrStaleWrite
		}

		next = current + 1
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			pipe.Set(ctx, versionKey(key), next, 0)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txn, versionKey(key))
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer slipped in between WATCH and EXEC.
		return 0, ErrStaleWrite
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

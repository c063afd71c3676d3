// Package store provides the key-value persistence boundary the analytics
// engine writes through. Values are opaque blobs carrying a version stamp;
// writes are compare-and-swap so a stale writer loses instead of silently
// overwriting a newer blob.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value exists under the key.
var ErrNotFound = errors.New("store: key not found")

// ErrStaleWrite is returned by Put when the expected version no longer
// matches the stored one. The caller should reload and retry.
var ErrStaleWrite = errors.New("store: stale write rejected")

// KV is a durable key-value store with optimistic concurrency. Get returns
// the current value and its version; Put succeeds only when expect matches
// the stored version (expect 0 means "create, key must not exist yet").
type KV interface {
	Get(ctx context.Context, key string) (value []byte, version int64, err error)
	Put(ctx context.Context, key string, value []byte, expect int64) (int64, error)
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores blobs in the kv_state table with a version column used
// for compare-and-swap. This is the production backing for the analytics
// blob.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, int64, error) {
	var value []byte
	var version int64
	err := p.db.QueryRow(ctx,
		`SELECT value, version FROM kv_state WHERE key = $1`, key,
	).Scan(&value, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("get %q: %w", key, err)
	}
	return value, version, nil
}

func (p *Postgres) Put(ctx context.Context, key string, value []byte, expect int64) (int64, error) {
	if expect == 0 {
		tag, err := p.db.Exec(ctx,
			`INSERT INTO kv_state (key, value, version) VALUES ($1, $2, 1)
			 ON CONFLICT (key) DO NOTHING`, key, value)
		if err != nil {
			return 0, fmt.Errorf("insert %q: %w", key, err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrStaleWrite
		}
		return 1, nil
	}

	next := expect + 1
	tag, err := p.db.Exec(ctx,
		`UPDATE kv_state SET value = $2, version = $3 WHERE key = $1 AND version = $4`,
		key, value, next, expect)
	if err != nil {
		return 0, fmt.Errorf("update %q: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrStaleWrite
	}
	return next, nil
}

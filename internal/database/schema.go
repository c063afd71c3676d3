package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the tables the server needs if they do not exist yet.
// kv_state backs the versioned analytics blob; the rest are plain rows.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS vehicles (
			id UUID PRIMARY KEY,
			stock_number TEXT NOT NULL,
			vin TEXT NOT NULL DEFAULT '',
			year INT NOT NULL,
			make TEXT NOT NULL,
			model TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			checklist JSONB NOT NULL,
			status JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS team_notes (
			id UUID PRIMARY KEY,
			vehicle_id UUID NOT NULL REFERENCES vehicles(id) ON DELETE CASCADE,
			author TEXT NOT NULL,
			note_text TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			initials TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			pin_hash TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS kv_state (
			key TEXT PRIMARY KEY,
			value JSONB NOT NULL,
			version BIGINT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vehicles_stock_number ON vehicles(stock_number);`,
		`CREATE INDEX IF NOT EXISTS idx_team_notes_vehicle_id ON team_notes(vehicle_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

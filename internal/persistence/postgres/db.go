package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens a Postgres pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the tables the repositories need.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS segments (
		id BIGSERIAL PRIMARY KEY,
		symbol TEXT NOT NULL,
		start_pdi INT NOT NULL,
		end_pdi INT NOT NULL,
		ob_leg_start_pdi INT NOT NULL,
		ob_leg_end_pdi INT NOT NULL,
		top_price DOUBLE PRECISION NOT NULL,
		bottom_price DOUBLE PRECISION NOT NULL,
		ob_formation_start_pdi INT NOT NULL,
		broken_lpl_pdi INT NOT NULL,
		trend_type TEXT NOT NULL,
		formation TEXT NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_segments_symbol ON segments (symbol, start_pdi);

	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		order_block_id TEXT NOT NULL,
		type TEXT NOT NULL,
		entry_price DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

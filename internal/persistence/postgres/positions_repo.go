package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/structrun/internal/persistence"
)

// positionRepo implements persistence.PositionRepo for PostgreSQL.
type positionRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewPositionRepo creates a PostgreSQL position repository.
func NewPositionRepo(db *sqlx.DB, timeout time.Duration) persistence.PositionRepo {
	return &positionRepo{db: db, timeout: timeout}
}

// Insert stores a newly formed position.
func (r *positionRepo) Insert(ctx context.Context, rec persistence.PositionRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO positions (id, symbol, order_block_id, type, entry_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Symbol, rec.OrderBlock, rec.Type, rec.EntryPrice, rec.Status)
	if err != nil {
		return fmt.Errorf("insert position %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateStatus records a lifecycle transition.
func (r *positionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `UPDATE positions SET status = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update position %s: %w", id, err)
	}
	return nil
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sawpanic/structrun/internal/persistence"
)

// segmentRepo implements persistence.SegmentRepo for PostgreSQL.
type segmentRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSegmentRepo creates a PostgreSQL segment repository.
func NewSegmentRepo(db *sqlx.DB, timeout time.Duration) persistence.SegmentRepo {
	return &segmentRepo{db: db, timeout: timeout}
}

// Insert stores an emitted segment.
func (r *segmentRepo) Insert(ctx context.Context, rec persistence.SegmentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO segments
		(symbol, start_pdi, end_pdi, ob_leg_start_pdi, ob_leg_end_pdi,
		 top_price, bottom_price, ob_formation_start_pdi, broken_lpl_pdi,
		 trend_type, formation, start_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		rec.Symbol, rec.StartPDI, rec.EndPDI, rec.OBLegStartPDI, rec.OBLegEndPDI,
		rec.TopPrice, rec.BottomPrice, rec.OBFormationStartPDI, rec.BrokenLPLPDI,
		rec.TrendType, rec.Formation, rec.StartTime)
	if err != nil {
		return fmt.Errorf("insert segment for %s: %w", rec.Symbol, err)
	}
	return nil
}

// BySymbol returns the stored segments for a symbol in emission order.
func (r *segmentRepo) BySymbol(ctx context.Context, symbol string) ([]persistence.SegmentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, symbol, start_pdi, end_pdi, ob_leg_start_pdi, ob_leg_end_pdi,
		       top_price, bottom_price, ob_formation_start_pdi, broken_lpl_pdi,
		       trend_type, formation, start_time, created_at
		FROM segments
		WHERE symbol = $1
		ORDER BY id ASC`

	var recs []persistence.SegmentRecord
	if err := r.db.SelectContext(ctx, &recs, query, symbol); err != nil {
		return nil, fmt.Errorf("select segments for %s: %w", symbol, err)
	}
	return recs, nil
}

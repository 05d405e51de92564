package persistence

import (
	"context"
	"time"
)

// SegmentRecord is an emitted segment flattened for storage.
type SegmentRecord struct {
	ID                  int64     `json:"id" db:"id"`
	Symbol              string    `json:"symbol" db:"symbol"`
	StartPDI            int       `json:"start_pdi" db:"start_pdi"`
	EndPDI              int       `json:"end_pdi" db:"end_pdi"`
	OBLegStartPDI       int       `json:"ob_leg_start_pdi" db:"ob_leg_start_pdi"`
	OBLegEndPDI         int       `json:"ob_leg_end_pdi" db:"ob_leg_end_pdi"`
	TopPrice            float64   `json:"top_price" db:"top_price"`
	BottomPrice         float64   `json:"bottom_price" db:"bottom_price"`
	OBFormationStartPDI int       `json:"ob_formation_start_pdi" db:"ob_formation_start_pdi"`
	BrokenLPLPDI        int       `json:"broken_lpl_pdi" db:"broken_lpl_pdi"`
	TrendType           string    `json:"trend_type" db:"trend_type"`
	Formation           string    `json:"formation" db:"formation"`
	StartTime           time.Time `json:"start_time" db:"start_time"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

// PositionRecord tracks a position's lifecycle for later analysis.
type PositionRecord struct {
	ID         string    `json:"id" db:"id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	OrderBlock string    `json:"order_block_id" db:"order_block_id"`
	Type       string    `json:"type" db:"type"`
	EntryPrice float64   `json:"entry_price" db:"entry_price"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// SegmentRepo stores emitted segments.
type SegmentRepo interface {
	Insert(ctx context.Context, rec SegmentRecord) error
	BySymbol(ctx context.Context, symbol string) ([]SegmentRecord, error)
}

// PositionRepo stores positions and their status transitions.
type PositionRepo interface {
	Insert(ctx context.Context, rec PositionRecord) error
	UpdateStatus(ctx context.Context, id, status string) error
}

// StateStore records, per symbol, the start time of the segment the current
// positions were found in. A lifecycle gate reads it to tell a genuinely new
// segment from a re-observed one across process restarts.
type StateStore interface {
	LatestSegmentStart(ctx context.Context, symbol string) (time.Time, bool, error)
	SetLatestSegmentStart(ctx context.Context, symbol string, t time.Time) error
}

package application

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/structrun/internal/data"
	"github.com/sawpanic/structrun/internal/domain"
	"github.com/sawpanic/structrun/internal/domain/structure"
	httpmetrics "github.com/sawpanic/structrun/internal/interfaces/http"
	"github.com/sawpanic/structrun/internal/persistence"
)

// BacktestRunner replays stored candle histories through the detection
// pipeline, one engine per symbol, and persists the emitted segments. Symbols
// are independent: one symbol's failure is logged and the rest proceed.
type BacktestRunner struct {
	cfg      *Config
	metrics  *httpmetrics.MetricsRegistry
	segments persistence.SegmentRepo // nil disables persistence
}

// BacktestResult summarizes one symbol's replay.
type BacktestResult struct {
	Symbol   string
	Candles  int
	Pivots   int
	Segments []structure.Segment
	Window   *structure.PositionWindow
}

// NewBacktestRunner builds a runner. segments may be nil to skip persistence.
func NewBacktestRunner(cfg *Config, metrics *httpmetrics.MetricsRegistry, segments persistence.SegmentRepo) *BacktestRunner {
	return &BacktestRunner{cfg: cfg, metrics: metrics, segments: segments}
}

// Run replays every configured symbol and returns the per-symbol results.
func (r *BacktestRunner) Run(ctx context.Context) []BacktestResult {
	results := make([]BacktestResult, 0, len(r.cfg.Symbols))
	for _, symbol := range r.cfg.Symbols {
		res, err := r.runSymbol(ctx, symbol)
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("backtest failed, skipping symbol")
			continue
		}
		results = append(results, res)
	}
	return results
}

func (r *BacktestRunner) runSymbol(ctx context.Context, symbol string) (BacktestResult, error) {
	path := filepath.Join(r.cfg.DataDir, symbol+".csv")
	candles, err := data.LoadCandlesCSV(path)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("load candles: %w", err)
	}

	series := domain.SeriesFrom(candles)
	engine := structure.NewEngine(symbol, series)

	start := time.Now()
	engine.Process()
	if r.metrics != nil {
		r.metrics.ProcessDuration.WithLabelValues(symbol).Observe(time.Since(start).Seconds())
		r.metrics.PivotsCommitted.WithLabelValues(symbol).Set(float64(engine.Zigzag().Len()))
	}

	res := BacktestResult{
		Symbol:   symbol,
		Candles:  series.Len(),
		Pivots:   engine.Zigzag().Len(),
		Segments: engine.Segments(),
	}

	for _, seg := range engine.Segments() {
		if r.metrics != nil {
			r.metrics.SegmentsEmitted.WithLabelValues(symbol, string(seg.Formation)).Inc()
		}
		if r.segments != nil {
			if err := r.segments.Insert(ctx, segmentRecord(symbol, seg, series)); err != nil {
				log.Error().Err(err).Str("symbol", symbol).Msg("segment persist failed")
			}
		}
	}

	if latest, ok := engine.LatestSegment(); ok {
		if w, ok := engine.PositionSearchWindow(latest); ok {
			res.Window = &w
		}
	}

	log.Info().Str("symbol", symbol).
		Int("candles", res.Candles).
		Int("pivots", res.Pivots).
		Int("segments", len(res.Segments)).
		Msg("backtest complete")
	return res, nil
}

// segmentRecord flattens a segment for storage, resolving its start time.
func segmentRecord(symbol string, seg structure.Segment, series *domain.Series) persistence.SegmentRecord {
	startTime, _ := series.TimeAt(seg.StartPDI)
	return persistence.SegmentRecord{
		Symbol:              symbol,
		StartPDI:            seg.StartPDI,
		EndPDI:              seg.EndPDI,
		OBLegStartPDI:       seg.OBLegStartPDI,
		OBLegEndPDI:         seg.OBLegEndPDI,
		TopPrice:            seg.TopPrice,
		BottomPrice:         seg.BottomPrice,
		OBFormationStartPDI: seg.OBFormationStartPDI,
		BrokenLPLPDI:        seg.BrokenLPLPDI,
		TrendType:           string(seg.Type),
		Formation:           string(seg.Formation),
		StartTime:           startTime,
	}
}

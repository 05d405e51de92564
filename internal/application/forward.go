package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/structrun/internal/data/ws"
	"github.com/sawpanic/structrun/internal/domain"
	"github.com/sawpanic/structrun/internal/domain/orderblock"
	"github.com/sawpanic/structrun/internal/domain/structure"
	httpmetrics "github.com/sawpanic/structrun/internal/interfaces/http"
	"github.com/sawpanic/structrun/internal/persistence"
	"github.com/sawpanic/structrun/internal/trading"
)

// ForwardRunner drives one detection engine per symbol from a live kline
// feed. Each symbol runs single-threaded on its own worker; symbols share
// nothing but the feed connection and the (concurrency-safe) gate, stores and
// metrics.
type ForwardRunner struct {
	cfg       *Config
	feed      *ws.Client
	gate      *trading.LifecycleGate
	metrics   *httpmetrics.MetricsRegistry
	segments  persistence.SegmentRepo  // nil disables persistence
	positions persistence.PositionRepo // nil disables persistence

	wg sync.WaitGroup
}

// NewForwardRunner wires a forward runner from its collaborators.
func NewForwardRunner(cfg *Config, feed *ws.Client, gate *trading.LifecycleGate,
	metrics *httpmetrics.MetricsRegistry, segments persistence.SegmentRepo,
	positions persistence.PositionRepo) *ForwardRunner {
	return &ForwardRunner{
		cfg:       cfg,
		feed:      feed,
		gate:      gate,
		metrics:   metrics,
		segments:  segments,
		positions: positions,
	}
}

// Run subscribes every configured symbol and blocks until the context ends.
func (r *ForwardRunner) Run(ctx context.Context) error {
	if err := r.feed.Connect(ctx); err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}
	defer r.feed.Close()

	for _, symbol := range r.cfg.Symbols {
		w := newSymbolWorker(r, symbol)
		updates := make(chan ws.Kline, 64)
		if err := r.feed.SubscribeKlines(symbol, r.cfg.Interval, func(k ws.Kline) {
			select {
			case updates <- k:
			default:
				log.Warn().Str("symbol", k.Symbol).Msg("kline update dropped, worker behind")
			}
		}); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("subscribe failed, skipping symbol")
			continue
		}

		r.metrics.ActiveSymbols.Inc()
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer r.metrics.ActiveSymbols.Dec()
			w.loop(ctx, updates)
		}()
	}

	<-ctx.Done()
	r.wg.Wait()
	return nil
}

// symbolWorker owns one symbol's series, engine and open positions.
type symbolWorker struct {
	runner *ForwardRunner
	symbol string
	series *domain.Series
	engine *structure.Engine
}

func newSymbolWorker(r *ForwardRunner, symbol string) *symbolWorker {
	series := domain.NewSeries()
	return &symbolWorker{
		runner: r,
		symbol: symbol,
		series: series,
		engine: structure.NewEngine(symbol, series),
	}
}

func (w *symbolWorker) loop(ctx context.Context, updates <-chan ws.Kline) {
	for {
		select {
		case <-ctx.Done():
			return
		case k := <-updates:
			w.runner.metrics.FeedMessages.WithLabelValues(w.symbol).Inc()
			w.onKline(ctx, k)
		}
	}
}

// onKline folds a feed update into the series and, when a bar closes, runs
// one full detection pass. A panic in one symbol's pass must not take down
// the others, so the pass is recovered and logged.
func (w *symbolWorker) onKline(ctx context.Context, k ws.Kline) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("symbol", w.symbol).
				Msg("detection pass panicked, symbol continues on next bar")
		}
	}()

	if last, ok := w.series.Last(); ok && last.Time.Equal(k.Candle.Time) {
		w.series.ReplaceLast(k.Candle)
	} else {
		w.series.Append(k.Candle)
	}
	if !k.Closed {
		return
	}

	start := time.Now()
	emitted := w.engine.Process()
	w.runner.metrics.ProcessDuration.WithLabelValues(w.symbol).Observe(time.Since(start).Seconds())
	w.runner.metrics.PivotsCommitted.WithLabelValues(w.symbol).Set(float64(w.engine.Zigzag().Len()))

	latest, ok := w.engine.LatestSegment()
	if !ok {
		return
	}
	if emitted > 0 {
		w.persistSegments(ctx, emitted)
	}

	segStart, _ := w.series.TimeAt(latest.StartPDI)
	signal, err := w.runner.gate.Evaluate(ctx, w.symbol, segStart)
	if err != nil {
		log.Error().Err(err).Str("symbol", w.symbol).Msg("lifecycle gate failed")
		return
	}
	if signal == trading.SignalReset {
		w.searchPositions(ctx, latest)
	}
	w.registerEntries(ctx)
}

func (w *symbolWorker) persistSegments(ctx context.Context, emitted int) {
	segs := w.engine.Segments()
	for _, seg := range segs[len(segs)-emitted:] {
		w.runner.metrics.SegmentsEmitted.WithLabelValues(w.symbol, string(seg.Formation)).Inc()
		if w.runner.segments == nil {
			continue
		}
		if err := w.runner.segments.Insert(ctx, segmentRecord(w.symbol, seg, w.series)); err != nil {
			log.Error().Err(err).Str("symbol", w.symbol).Msg("segment persist failed")
		}
	}
}

// searchPositions looks for tradeable order blocks inside the latest
// segment's search window and registers pending positions for the valid
// ones.
func (w *symbolWorker) searchPositions(ctx context.Context, latest structure.Segment) {
	window, ok := w.engine.PositionSearchWindow(latest)
	if !ok {
		log.Debug().Str("symbol", w.symbol).Msg("position window unavailable, leg has no break yet")
		return
	}

	baseType := latest.Type.StartPivotType()
	if latest.Formation == structure.FormationCHOCH {
		baseType = baseType.Opposite()
	}

	for _, p := range w.engine.Zigzag().Pivots() {
		if p.PDI < window.StartPDI || p.PDI > window.EndPDI || p.Type != baseType {
			continue
		}
		base, ok := w.series.At(p.PDI)
		if !ok {
			continue
		}
		ob := w.engine.FormPotentialOB(base, p.Type, p.Value, window.ActivationThresholdPDI, w.runner.cfg.ValidationMode)
		if ob == nil || ob.ReentryViolated || ob.StopBroken || !ob.HasFVG {
			continue
		}

		pos := orderblock.NewPosition(ob)
		w.runner.gate.Track(w.symbol, pos)
		log.Info().Str("symbol", w.symbol).Str("position", pos.ID).
			Str("type", string(pos.Type)).Float64("entry", pos.EntryPrice).
			Msg("pending position registered")

		if w.runner.positions != nil {
			rec := persistence.PositionRecord{
				ID:         pos.ID,
				Symbol:     w.symbol,
				OrderBlock: ob.ID,
				Type:       string(pos.Type),
				EntryPrice: pos.EntryPrice,
				Status:     string(pos.Status),
			}
			if err := w.runner.positions.Insert(ctx, rec); err != nil {
				log.Error().Err(err).Str("symbol", w.symbol).Msg("position persist failed")
			}
		}
	}
}

// registerEntries marks pending positions entered when the latest candle
// crossed their entry price.
func (w *symbolWorker) registerEntries(ctx context.Context) {
	latest, ok := w.series.Last()
	if !ok {
		return
	}
	for _, pos := range w.runner.gate.Tracked(w.symbol) {
		if pos.Status != orderblock.StatusPending {
			continue
		}
		structure.RegisterPossibleEntries(pos, latest)
		if pos.Status == orderblock.StatusEntered && w.runner.positions != nil {
			if err := w.runner.positions.UpdateStatus(ctx, pos.ID, string(pos.Status)); err != nil {
				log.Error().Err(err).Str("symbol", w.symbol).Msg("position status persist failed")
			}
		}
	}
}

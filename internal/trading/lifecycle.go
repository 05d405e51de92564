package trading

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/structrun/internal/domain/orderblock"
	"github.com/sawpanic/structrun/internal/persistence"
)

// Signal is the lifecycle gate's verdict for a symbol.
type Signal string

const (
	SignalReset        Signal = "RESET"
	SignalNoNewSegment Signal = "NO_NEW_SEGMENT"
)

// cancelAttempts bounds the retry loop for a single position cancel.
const cancelAttempts = 3

// LifecycleGate decides, per symbol, whether tracked positions were
// invalidated by a newer segment. When the latest segment's start time is
// strictly later than the recorded one (or nothing was recorded yet) every
// tracked position is canceled and the new start time recorded.
//
// Symbols are independent: a cancel failure on one symbol is logged and
// abandoned without affecting any other.
type LifecycleGate struct {
	store  persistence.StateStore
	broker Broker

	// Observe, when set, receives the result of every cancel attempt.
	Observe func(symbol, result string)

	mu      sync.Mutex
	tracked map[string][]*orderblock.Position
}

// NewLifecycleGate builds a gate over the given state store and broker.
func NewLifecycleGate(store persistence.StateStore, broker Broker) *LifecycleGate {
	return &LifecycleGate{
		store:   store,
		broker:  broker,
		tracked: make(map[string][]*orderblock.Position),
	}
}

// Track registers a position under its symbol for lifecycle management.
func (g *LifecycleGate) Track(symbol string, p *orderblock.Position) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracked[symbol] = append(g.tracked[symbol], p)
}

// Tracked returns the positions currently tracked for a symbol.
func (g *LifecycleGate) Tracked(symbol string) []*orderblock.Position {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*orderblock.Position(nil), g.tracked[symbol]...)
}

// Evaluate compares the latest segment start against the recorded one. On a
// strictly newer start (or none recorded) it cancels every tracked position,
// clears the list, records the new start time and signals a reset.
func (g *LifecycleGate) Evaluate(ctx context.Context, symbol string, latestSegmentStart time.Time) (Signal, error) {
	recorded, ok, err := g.store.LatestSegmentStart(ctx, symbol)
	if err != nil {
		return SignalNoNewSegment, err
	}
	if ok && !latestSegmentStart.After(recorded) {
		return SignalNoNewSegment, nil
	}

	if !ok {
		log.Info().Str("symbol", symbol).Msg("no prior segment history, starting fresh")
	} else {
		log.Info().Str("symbol", symbol).Time("segment_start", latestSegmentStart).
			Msg("new segment found, canceling prior positions")
	}

	g.mu.Lock()
	positions := g.tracked[symbol]
	g.tracked[symbol] = nil
	g.mu.Unlock()

	for _, p := range positions {
		g.cancelWithRetry(ctx, symbol, p)
	}

	if err := g.store.SetLatestSegmentStart(ctx, symbol, latestSegmentStart); err != nil {
		return SignalReset, err
	}
	return SignalReset, nil
}

func (g *LifecycleGate) observe(symbol, result string) {
	if g.Observe != nil {
		g.Observe(symbol, result)
	}
}

// cancelWithRetry attempts a cancel up to cancelAttempts times. An
// already-entered position is benign and stops the retries immediately; any
// other persistent failure is logged and abandoned so the symbol keeps
// operating, at the operational risk of a stale position lingering.
func (g *LifecycleGate) cancelWithRetry(ctx context.Context, symbol string, p *orderblock.Position) {
	var lastErr error
	for attempt := 1; attempt <= cancelAttempts; attempt++ {
		err := g.broker.CancelPosition(ctx, p)
		if err == nil {
			g.observe(symbol, "success")
			log.Info().Str("symbol", symbol).Str("position", p.ID).Msg("canceled position")
			return
		}
		if errors.Is(err, orderblock.ErrAlreadyEntered) {
			g.observe(symbol, "already_entered")
			log.Warn().Str("symbol", symbol).Str("position", p.ID).
				Msg("position not canceled, entry already occurred")
			return
		}
		g.observe(symbol, "error")
		lastErr = err
	}
	log.Error().Err(lastErr).Str("symbol", symbol).Str("position", p.ID).
		Int("attempts", cancelAttempts).Msg("failed to cancel position, abandoning")
}

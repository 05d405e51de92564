package trading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/sawpanic/structrun/internal/domain/orderblock"
)

// Broker cancels working positions at the venue. Implementations surface
// orderblock.ErrAlreadyEntered when the position filled before the cancel
// landed.
type Broker interface {
	CancelPosition(ctx context.Context, p *orderblock.Position) error
}

// PaperBroker applies lifecycle transitions locally with no venue round trip.
// Backtests and dry runs use it.
type PaperBroker struct{}

// CancelPosition cancels the position in memory.
func (PaperBroker) CancelPosition(_ context.Context, p *orderblock.Position) error {
	return p.Cancel()
}

// CancelFunc performs the venue-side cancel call for a position id.
type CancelFunc func(ctx context.Context, positionID string) error

// GatewayBroker wraps a venue transport with a circuit breaker and a token
// bucket rate limit, so a misbehaving venue degrades to fast failures instead
// of stalling every symbol's loop.
type GatewayBroker struct {
	cancel  CancelFunc
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// GatewayConfig tunes the broker's protective wrappers.
type GatewayConfig struct {
	RPS                 float64
	Burst               int
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultGatewayConfig returns conservative venue protection settings.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RPS:                 5,
		Burst:               10,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// NewGatewayBroker builds a broker around the given venue cancel transport.
// A nil transport runs in paper mode: the venue call succeeds without doing
// anything and only the local transition applies.
func NewGatewayBroker(cancel CancelFunc, cfg GatewayConfig) *GatewayBroker {
	if cancel == nil {
		cancel = func(context.Context, string) error { return nil }
	}
	settings := gobreaker.Settings{
		Name:    "order-gateway",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("order gateway breaker state change")
		},
	}
	return &GatewayBroker{
		cancel:  cancel,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
	}
}

// CancelPosition rate-limits and breaker-guards the venue cancel, then
// applies the local transition. A fill that beat the cancel surfaces as
// orderblock.ErrAlreadyEntered.
func (b *GatewayBroker) CancelPosition(ctx context.Context, p *orderblock.Position) error {
	if p.Status == orderblock.StatusEntered {
		return orderblock.ErrAlreadyEntered
	}
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.cancel(ctx, p.ID)
	})
	if err != nil {
		return fmt.Errorf("venue cancel %s: %w", p.ID, err)
	}
	return p.Cancel()
}

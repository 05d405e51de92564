package orderblock

import (
	"github.com/google/uuid"

	"github.com/sawpanic/structrun/internal/domain"
)

// Type is the trade direction an order block supports.
type Type string

const (
	Long  Type = "long"
	Short Type = "short"
)

// OrderBlock is a candidate supply/demand zone built from a single base
// candle at a structural pivot. ICL (initial candle liquidity) is the
// stoploss reference price. Condition flags are populated by the check
// methods once the windows are known.
type OrderBlock struct {
	ID         string
	Base       domain.Candle
	Type       Type
	ICL        float64
	StartIndex int

	// PriceExitIndex is the candle that confirmed displacement away from
	// the block, nil until found.
	PriceExitIndex *int

	conditionWindow []domain.Candle
	reentryWindow   []domain.Candle

	ReentryViolated bool
	HasFVG          bool
	StopBroken      bool
}

// New creates an order block from its base candle.
func New(base domain.Candle, icl float64, t Type) *OrderBlock {
	return &OrderBlock{
		ID:         uuid.NewString(),
		Base:       base,
		Type:       t,
		ICL:        icl,
		StartIndex: base.PDI,
	}
}

// EntryPrice is the edge of the block a pending position rests at: the base
// high for long blocks, the base low for short ones.
func (ob *OrderBlock) EntryPrice() float64 {
	if ob.Type == Long {
		return ob.Base.High
	}
	return ob.Base.Low
}

// RegisterExitCandle scans candles after the base, up to and including bound,
// for the first close beyond the base range in the block's direction. The
// found index is recorded and returned; nil means the block never confirmed
// and is invalid.
func (ob *OrderBlock) RegisterExitCandle(s *domain.Series, bound int) *int {
	for _, c := range s.Range(ob.StartIndex+1, bound+1) {
		exited := ob.Type == Long && c.Close > ob.Base.High ||
			ob.Type == Short && c.Close < ob.Base.Low
		if exited {
			pdi := c.PDI
			ob.PriceExitIndex = &pdi
			return ob.PriceExitIndex
		}
	}
	return nil
}

// CheckReentryCondition flags the block when price returned to its entry
// level after the exit candle: a block that has already been tagged cannot be
// posted again.
func (ob *OrderBlock) CheckReentryCondition(window []domain.Candle) {
	ob.reentryWindow = window
	for _, c := range window {
		if ob.Type == Long && c.Low <= ob.EntryPrice() {
			ob.ReentryViolated = true
			return
		}
		if ob.Type == Short && c.High >= ob.EntryPrice() {
			ob.ReentryViolated = true
			return
		}
	}
}

// SetConditionCheckWindow fixes the candle range the remaining condition
// checks operate on.
func (ob *OrderBlock) SetConditionCheckWindow(window []domain.Candle) {
	ob.conditionWindow = window
}

// CheckFVGCondition looks for a fair value gap inside the condition window: a
// candle whose successor's low clears its predecessor's high (long), or whose
// successor's high stays under its predecessor's low (short).
func (ob *OrderBlock) CheckFVGCondition() {
	w := ob.conditionWindow
	for i := 1; i+1 < len(w); i++ {
		if ob.Type == Long && w[i+1].Low > w[i-1].High {
			ob.HasFVG = true
			return
		}
		if ob.Type == Short && w[i+1].High < w[i-1].Low {
			ob.HasFVG = true
			return
		}
	}
}

// CheckStopBreakCondition flags the block when the stoploss reference was
// crossed anywhere in the condition window.
func (ob *OrderBlock) CheckStopBreakCondition() {
	for _, c := range ob.conditionWindow {
		if ob.Type == Long && c.Low < ob.ICL {
			ob.StopBroken = true
			return
		}
		if ob.Type == Short && c.High > ob.ICL {
			ob.StopBroken = true
			return
		}
	}
}

// ConditionWindow returns the window the condition checks ran over.
func (ob *OrderBlock) ConditionWindow() []domain.Candle { return ob.conditionWindow }

// ReentryWindow returns the window the reentry check ran over.
func (ob *OrderBlock) ReentryWindow() []domain.Candle { return ob.reentryWindow }

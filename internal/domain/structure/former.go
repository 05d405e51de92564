package structure

import (
	"github.com/sawpanic/structrun/internal/domain"
	"github.com/sawpanic/structrun/internal/domain/orderblock"
)

// ReplacementOBThreshold returns the last candle PDI worth checking for a
// replacement base candle at the given pivot: the next pivot of opposite
// type, or the final available candle when the leg is still open.
func (e *Engine) ReplacementOBThreshold(p Pivot) int {
	next, err := e.zigzag.FindRelative(p.PDI, 1)
	if err != nil {
		return e.series.Len() - 1
	}
	return next.PDI
}

// FormPotentialOB builds an order block from a base candle and validates it
// against a bounded window.
//
// The block direction follows the base pivot type (valley bases seed longs)
// and icl is its stoploss reference. A block with no exit candle before the
// activation threshold never confirmed and is discarded. In validation mode
// the reentry and condition windows stop short of the activation threshold;
// in forward mode they run to the end of available data.
func (e *Engine) FormPotentialOB(base domain.Candle, basePivotType PivotType, icl float64, activationThreshold int, validationMode bool) *orderblock.OrderBlock {
	obType := orderblock.Short
	if basePivotType == PivotValley {
		obType = orderblock.Long
	}
	ob := orderblock.New(base, icl, obType)

	exit := ob.RegisterExitCandle(e.series, activationThreshold)
	if exit == nil {
		return nil
	}

	reentryEnd := e.series.Len()
	conditionEnd := e.series.Len()
	if validationMode {
		reentryEnd = activationThreshold
		conditionEnd = activationThreshold
	}

	ob.CheckReentryCondition(e.series.Range(*exit+1, reentryEnd))
	ob.SetConditionCheckWindow(e.series.Range(ob.StartIndex, conditionEnd))
	ob.CheckFVGCondition()
	ob.CheckStopBreakCondition()

	return ob
}

// RegisterPossibleEntries marks a pending position entered once the latest
// candle crosses its entry price in the favorable direction.
func RegisterPossibleEntries(p *orderblock.Position, latest domain.Candle) {
	switch p.Type {
	case orderblock.Long:
		if latest.Low <= p.EntryPrice {
			p.RegisterEntered()
		}
	case orderblock.Short:
		if latest.High >= p.EntryPrice {
			p.RegisterEntered()
		}
	}
}

package structure

import "errors"

// PivotType distinguishes local highs from local lows.
type PivotType string

const (
	PivotPeak   PivotType = "peak"
	PivotValley PivotType = "valley"
)

// Opposite returns the other pivot type.
func (t PivotType) Opposite() PivotType {
	if t == PivotPeak {
		return PivotValley
	}
	return PivotPeak
}

// TrendType is the direction of the structure being tracked.
type TrendType string

const (
	TrendAscending  TrendType = "ascending"
	TrendDescending TrendType = "descending"
)

// Opposite returns the inverted trend direction.
func (t TrendType) Opposite() TrendType {
	if t == TrendAscending {
		return TrendDescending
	}
	return TrendAscending
}

// StartPivotType returns the pivot type a pattern of this trend starts from:
// ascending structure grows out of a valley, descending out of a peak.
func (t TrendType) StartPivotType() PivotType {
	if t == TrendAscending {
		return PivotValley
	}
	return PivotPeak
}

// Pivot is a committed zigzag extreme. Value is the candle high for peaks and
// the candle low for valleys.
type Pivot struct {
	PDI   int
	Type  PivotType
	Value float64
}

// ErrPivotOutOfRange reports that a relative pivot lookup walked off either
// end of the zigzag, or that the anchor PDI is not a pivot. Callers treat it
// as "no further structure available", never as a fatal condition.
var ErrPivotOutOfRange = errors.New("pivot out of range")

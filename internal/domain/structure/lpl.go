package structure

import (
	"github.com/sawpanic/structrun/internal/domain"
)

// LPLRegistry is an append-only history of the structural levels observed
// while scanning: every extension of an ascending pattern logs the valley
// level it advanced past, every extension of a descending one logs the peak.
// Entries are never pruned, and re-running a scan over an overlapping window
// appends again.
type LPLRegistry struct {
	Peaks   []int
	Valleys []int
}

// Append logs a structural level PDI under its pivot type.
func (r *LPLRegistry) Append(t PivotType, pdi int) {
	if t == PivotPeak {
		r.Peaks = append(r.Peaks, pdi)
		return
	}
	r.Valleys = append(r.Valleys, pdi)
}

// BrokenLevel is the result of a structural level break: the pivot holding
// the broken level and the exact candle that crossed it. The level PDI may
// have advanced past the original search start due to intervening extensions.
type BrokenLevel struct {
	LPL               Pivot
	BreakingCandlePDI int
}

// Detector scans a zigzag for structural level breaks. It is stateless
// between queries apart from the registry appends and is safe to re-invoke
// over overlapping windows.
type Detector struct {
	series   *domain.Series
	zigzag   *Zigzag
	registry *LPLRegistry
}

// NewDetector binds a detector to a series, its zigzag and a level registry.
func NewDetector(series *domain.Series, zz *Zigzag, registry *LPLRegistry) *Detector {
	return &Detector{series: series, zigzag: zz, registry: registry}
}

// FirstBrokenLPL scans forward from the pivot at startPDI for the first
// structural level break.
//
// The trend is ascending when the start pivot is a valley. The level to break
// starts at the start pivot itself and the value to extend past at the next
// pivot; scanning begins two pivots ahead and stops before the last committed
// pivot. A pivot of the trend's own type at or beyond the extension value
// advances the level to the pivot immediately before it (logging the new
// level in the registry); a pivot of the opposite type at or beyond the level
// breaks it.
//
// On a break the exact breaking candle is located by scanning candles from
// just after the pivot preceding the breaking pivot through the breaking
// pivot, for the first low (ascending) or high (descending) crossing the
// level; the breaking pivot's own PDI is the fallback. A nil result means no
// break: either the scan completed cleanly or the structure has not extended
// far enough yet.
func (d *Detector) FirstBrokenLPL(startPDI int) *BrokenLevel {
	start, ok := d.zigzag.PivotAt(startPDI)
	if !ok {
		return nil
	}

	trend := TrendDescending
	if start.Type == PivotValley {
		trend = TrendAscending
	}

	breaking := start
	next, err := d.zigzag.FindRelative(startPDI, 1)
	if err != nil {
		return nil
	}
	extensionValue := next.Value
	checkStart, err := d.zigzag.FindRelative(startPDI, 2)
	if err != nil {
		return nil
	}

	for i := d.zigzag.pos[checkStart.PDI]; i < d.zigzag.Len()-1; i++ {
		p := d.zigzag.At(i)

		var extension, broken bool
		if trend == TrendAscending {
			extension = p.Type == PivotPeak && p.Value >= extensionValue
			broken = p.Type == PivotValley && p.Value <= breaking.Value
		} else {
			extension = p.Type == PivotValley && p.Value <= extensionValue
			broken = p.Type == PivotPeak && p.Value >= breaking.Value
		}

		if broken {
			return &BrokenLevel{
				LPL:               breaking,
				BreakingCandlePDI: d.locateBreakingCandle(p, breaking.Value, trend),
			}
		}

		if extension {
			prev, err := d.zigzag.FindRelative(p.PDI, -1)
			if err != nil {
				return nil
			}
			breaking = prev
			extensionValue = p.Value
			d.registry.Append(trend.StartPivotType(), breaking.PDI)
		}
	}

	return nil
}

// locateBreakingCandle finds the first candle that actually crossed the
// broken value. Zigzag pivots aggregate many candles, so the true break
// almost always happens on a candle before the breaking pivot itself.
func (d *Detector) locateBreakingCandle(breakingPivot Pivot, value float64, trend TrendType) int {
	windowStart := breakingPivot.PDI
	if prev, err := d.zigzag.FindRelative(breakingPivot.PDI, -1); err == nil {
		windowStart = prev.PDI + 1
	}
	for _, c := range d.series.Range(windowStart, breakingPivot.PDI+1) {
		if trend == TrendAscending && c.Low < value {
			return c.PDI
		}
		if trend == TrendDescending && c.High > value {
			return c.PDI
		}
	}
	return breakingPivot.PDI
}

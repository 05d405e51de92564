package structure

import (
	"github.com/sawpanic/structrun/internal/domain"
)

// Seed pins the first open extreme of a zigzag build instead of deriving it
// from the candle data.
type Seed struct {
	Type PivotType
	PDI  int
}

// Zigzag is an ordered sequence of committed pivots with strictly increasing
// PDIs and strictly alternating types.
type Zigzag struct {
	pivots []Pivot
	pos    map[int]int // pdi -> index in pivots
}

// BuildZigzag reduces a candle series to its alternating extrema in a single
// forward pass.
//
// Without a seed, the first candle registering a higher high or a lower low
// than its predecessor opens the first extreme: a peak when the high
// condition holds, a valley otherwise. From the seed's successor each candle
// is compared against the open extreme:
//
//   - a new extreme in the open direction extends it in place;
//   - a break of the open extreme's opposite bound commits the extreme as a
//     pivot and opens a new one of the flipped type at the current candle;
//   - when both hold at once the candle color decides: green with an open
//     valley (or red with an open peak) means the intrabar path plausibly
//     continued the trend, so only the extension applies; otherwise the
//     extreme is committed and the type flips.
//
// The still-open extreme at the end of input is never emitted.
func BuildZigzag(s *domain.Series, seed *Seed) *Zigzag {
	zz := &Zigzag{pos: make(map[int]int)}

	var openCandle domain.Candle
	var openType PivotType
	seeded := false

	if seed != nil {
		if c, ok := s.At(seed.PDI); ok {
			openCandle, openType, seeded = c, seed.Type, true
		}
	} else {
		for pdi := 1; pdi < s.Len(); pdi++ {
			cur, _ := s.At(pdi)
			prev, _ := s.At(pdi - 1)
			if cur.High > prev.High {
				openCandle, openType, seeded = cur, PivotPeak, true
				break
			}
			if cur.Low < prev.Low {
				openCandle, openType, seeded = cur, PivotValley, true
				break
			}
		}
	}
	if !seeded {
		return zz
	}

	commit := func(c domain.Candle, t PivotType) {
		p := Pivot{PDI: c.PDI, Type: t, Value: c.High}
		if t == PivotValley {
			p.Value = c.Low
		}
		zz.pos[p.PDI] = len(zz.pivots)
		zz.pivots = append(zz.pivots, p)
	}

	for pdi := openCandle.PDI + 1; pdi < s.Len(); pdi++ {
		c, _ := s.At(pdi)

		peakExtension := openType == PivotPeak && c.High > openCandle.High
		valleyExtension := openType == PivotValley && c.Low < openCandle.Low
		reversalFromPeak := openType == PivotPeak && c.Low < openCandle.Low
		reversalFromValley := openType == PivotValley && c.High > openCandle.High

		switch {
		case (peakExtension && reversalFromPeak) || (valleyExtension && reversalFromValley):
			// The candle registers both a new extreme and a break of the
			// opposite bound.
			if (c.Color() == domain.ColorGreen && openType == PivotValley) ||
				(c.Color() == domain.ColorRed && openType == PivotPeak) {
				openCandle = c
			} else {
				commit(openCandle, openType)
				openCandle, openType = c, openType.Opposite()
			}
		case peakExtension || valleyExtension:
			openCandle = c
		case reversalFromPeak || reversalFromValley:
			commit(openCandle, openType)
			openCandle, openType = c, openType.Opposite()
		}
	}

	return zz
}

// Len returns the number of committed pivots.
func (z *Zigzag) Len() int {
	return len(z.pivots)
}

// At returns the pivot at position i in the zigzag.
func (z *Zigzag) At(i int) Pivot {
	return z.pivots[i]
}

// Pivots returns the committed pivots in order. The slice must not be
// mutated.
func (z *Zigzag) Pivots() []Pivot {
	return z.pivots
}

// PivotAt returns the pivot whose candle PDI is pdi, reporting whether one
// exists.
func (z *Zigzag) PivotAt(pdi int) (Pivot, bool) {
	i, ok := z.pos[pdi]
	if !ok {
		return Pivot{}, false
	}
	return z.pivots[i], true
}

// FindRelative locates the pivot at pdi and returns the pivot delta positions
// away (negative deltas walk backwards). It fails with ErrPivotOutOfRange
// when pdi is not a pivot or the offset leaves the sequence.
func (z *Zigzag) FindRelative(pdi, delta int) (Pivot, error) {
	i, ok := z.pos[pdi]
	if !ok {
		return Pivot{}, ErrPivotOutOfRange
	}
	j := i + delta
	if j < 0 || j >= len(z.pivots) {
		return Pivot{}, ErrPivotOutOfRange
	}
	return z.pivots[j], nil
}

// LastOfTypeAtOrBefore returns the latest pivot of type t with PDI <= pdi.
func (z *Zigzag) LastOfTypeAtOrBefore(t PivotType, pdi int) (Pivot, error) {
	for i := len(z.pivots) - 1; i >= 0; i-- {
		if z.pivots[i].PDI <= pdi && z.pivots[i].Type == t {
			return z.pivots[i], nil
		}
	}
	return Pivot{}, ErrPivotOutOfRange
}

// ExtremeOfTypeBetween returns the most extreme pivot of type t with PDI in
// [fromPDI, toPDI]: the minimum value for valleys, the maximum for peaks.
func (z *Zigzag) ExtremeOfTypeBetween(t PivotType, fromPDI, toPDI int) (Pivot, error) {
	var best Pivot
	found := false
	for _, p := range z.pivots {
		if p.PDI < fromPDI || p.PDI > toPDI || p.Type != t {
			continue
		}
		if !found {
			best, found = p, true
			continue
		}
		if t == PivotValley && p.Value < best.Value {
			best = p
		}
		if t == PivotPeak && p.Value > best.Value {
			best = p
		}
	}
	if !found {
		return Pivot{}, ErrPivotOutOfRange
	}
	return best, nil
}

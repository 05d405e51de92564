package domain

import "time"

// Series is an append-only arena of candles keyed by PDI. Candles are stored
// in arrival order and PDIs are assigned as the zero-based append position,
// so lookups are plain slice indexing with bounds checks.
//
// A Series is owned by exactly one symbol's pipeline and is not safe for
// concurrent mutation.
type Series struct {
	candles []Candle
}

// NewSeries returns an empty series.
func NewSeries() *Series {
	return &Series{}
}

// SeriesFrom builds a series from candles in order, reassigning PDIs to the
// slice positions.
func SeriesFrom(candles []Candle) *Series {
	s := &Series{candles: make([]Candle, 0, len(candles))}
	for _, c := range candles {
		s.Append(c)
	}
	return s
}

// Append adds a candle at the next PDI and returns the stored copy.
func (s *Series) Append(c Candle) Candle {
	c.PDI = len(s.candles)
	s.candles = append(s.candles, c)
	return c
}

// ReplaceLast overwrites the most recent candle in place, keeping its PDI.
// Used by live feeds to refresh the still-forming bar.
func (s *Series) ReplaceLast(c Candle) {
	if len(s.candles) == 0 {
		s.Append(c)
		return
	}
	c.PDI = len(s.candles) - 1
	s.candles[len(s.candles)-1] = c
}

// Len returns the number of candles.
func (s *Series) Len() int {
	return len(s.candles)
}

// At returns the candle at pdi, reporting whether it exists.
func (s *Series) At(pdi int) (Candle, bool) {
	if pdi < 0 || pdi >= len(s.candles) {
		return Candle{}, false
	}
	return s.candles[pdi], true
}

// Last returns the most recent candle, reporting whether the series is
// non-empty.
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Range returns the candles with from <= pdi < to, clamped to the series
// bounds. An empty window yields an empty slice.
func (s *Series) Range(from, to int) []Candle {
	if from < 0 {
		from = 0
	}
	if to > len(s.candles) {
		to = len(s.candles)
	}
	if from >= to {
		return nil
	}
	return s.candles[from:to]
}

// TimeAt maps a single PDI to its candle timestamp.
func (s *Series) TimeAt(pdi int) (time.Time, bool) {
	c, ok := s.At(pdi)
	if !ok {
		return time.Time{}, false
	}
	return c.Time, true
}

// TimesAt maps PDIs to timestamps by direct lookup. A nil input yields nil
// and an empty input yields an empty slice; unknown PDIs are skipped.
func (s *Series) TimesAt(pdis []int) []time.Time {
	if pdis == nil {
		return nil
	}
	times := make([]time.Time, 0, len(pdis))
	for _, pdi := range pdis {
		if t, ok := s.TimeAt(pdi); ok {
			times = append(times, t)
		}
	}
	return times
}

package domain

import "time"

// Color classifies a candle body direction.
type Color string

const (
	ColorGreen Color = "green"
	ColorRed   Color = "red"
)

// Candle is a single OHLC bar. PDI is the zero-based position of the candle
// in its series and is the sole identity used by the detection pipeline;
// wall-clock time is carried only for reporting and persistence.
type Candle struct {
	PDI   int
	Time  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Color returns green when close >= open. A doji (close == open) counts as
// green; the detection rules only ever branch on the green/red split, so the
// tie needs one fixed answer and green is it.
func (c Candle) Color() Color {
	if c.Close >= c.Open {
		return ColorGreen
	}
	return ColorRed
}

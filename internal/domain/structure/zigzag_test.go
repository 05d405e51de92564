package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/structrun/internal/domain"
)

// seriesOf builds a series from [open, high, low, close] rows.
func seriesOf(rows ...[4]float64) *domain.Series {
	candles := make([]domain.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, domain.Candle{Open: r[0], High: r[1], Low: r[2], Close: r[3]})
	}
	return domain.SeriesFrom(candles)
}

func TestBuildZigzag_SixCandleSequence(t *testing.T) {
	s := seriesOf(
		[4]float64{10, 11, 9, 10},
		[4]float64{9.5, 10.5, 8, 9},
		[4]float64{9, 12, 8.5, 11.5},
		[4]float64{11, 11.5, 7.9, 8.4},
		[4]float64{8.5, 13, 8.3, 12.5},
		[4]float64{12, 12.5, 7.5, 8},
	)

	zz := BuildZigzag(s, nil)

	require.Equal(t, 4, zz.Len())
	assert.Equal(t, Pivot{PDI: 1, Type: PivotValley, Value: 8}, zz.At(0))
	assert.Equal(t, Pivot{PDI: 2, Type: PivotPeak, Value: 12}, zz.At(1))
	assert.Equal(t, Pivot{PDI: 3, Type: PivotValley, Value: 7.9}, zz.At(2))
	assert.Equal(t, Pivot{PDI: 4, Type: PivotPeak, Value: 13}, zz.At(3))
}

func TestBuildZigzag_SeedSelection(t *testing.T) {
	t.Run("higher high opens a peak", func(t *testing.T) {
		s := seriesOf(
			[4]float64{10, 11, 9, 10},
			[4]float64{10, 12, 9.5, 11}, // higher high, higher low
			[4]float64{11, 11.5, 8, 9},
		)
		zz := BuildZigzag(s, nil)
		require.Equal(t, 1, zz.Len())
		assert.Equal(t, PivotPeak, zz.At(0).Type)
		assert.Equal(t, 1, zz.At(0).PDI)
	})

	t.Run("lower low opens a valley", func(t *testing.T) {
		s := seriesOf(
			[4]float64{10, 11, 9, 10},
			[4]float64{10, 10.5, 8, 9}, // lower low only
			[4]float64{9, 12, 8.5, 11.5},
		)
		zz := BuildZigzag(s, nil)
		require.Equal(t, 1, zz.Len())
		assert.Equal(t, PivotValley, zz.At(0).Type)
	})

	t.Run("explicit seed overrides detection", func(t *testing.T) {
		s := seriesOf(
			[4]float64{10, 11, 9, 10},
			[4]float64{10, 10.5, 8, 9},
			[4]float64{9, 12, 8.5, 11.5},
		)
		zz := BuildZigzag(s, &Seed{Type: PivotPeak, PDI: 0})
		require.Equal(t, 2, zz.Len())
		assert.Equal(t, Pivot{PDI: 0, Type: PivotPeak, Value: 11}, zz.At(0))
		assert.Equal(t, Pivot{PDI: 1, Type: PivotValley, Value: 8}, zz.At(1))
	})

	t.Run("fully inside bars build nothing", func(t *testing.T) {
		s := seriesOf(
			[4]float64{10, 12, 8, 11},
			[4]float64{11, 11.5, 9, 10},
			[4]float64{10, 11, 9.5, 10.5},
		)
		zz := BuildZigzag(s, nil)
		assert.Equal(t, 0, zz.Len())
	})
}

func TestBuildZigzag_DualConditionColorRule(t *testing.T) {
	// Candle 2 both undercuts the open valley's low and clears its high.
	t.Run("green candle extends an open valley", func(t *testing.T) {
		s := seriesOf(
			[4]float64{10, 11, 9, 10},
			[4]float64{9.8, 10.2, 8, 9}, // valley opens here
			[4]float64{8.5, 12, 7.5, 11.5}, // green engulfing bar
			[4]float64{11, 13, 10.5, 12.5},
			[4]float64{12, 12.2, 9, 9.5},
		)
		zz := BuildZigzag(s, nil)
		// The valley moved to pdi 2 instead of committing at pdi 1.
		require.GreaterOrEqual(t, zz.Len(), 1)
		assert.Equal(t, Pivot{PDI: 2, Type: PivotValley, Value: 7.5}, zz.At(0))
	})

	t.Run("red candle commits the open valley and flips", func(t *testing.T) {
		s := seriesOf(
			[4]float64{10, 11, 9, 10},
			[4]float64{9.8, 10.2, 8, 9},
			[4]float64{11.5, 12, 7.5, 8.5}, // red engulfing bar
			[4]float64{8.5, 8.8, 7, 7.6},
		)
		zz := BuildZigzag(s, nil)
		require.GreaterOrEqual(t, zz.Len(), 2)
		assert.Equal(t, Pivot{PDI: 1, Type: PivotValley, Value: 8}, zz.At(0))
		assert.Equal(t, Pivot{PDI: 2, Type: PivotPeak, Value: 12}, zz.At(1))
	})
}

func TestBuildZigzag_AlternationAndOrdering(t *testing.T) {
	// A longer wave with noise; the committed pivots must strictly
	// alternate and their PDIs strictly increase regardless of shape.
	s := seriesOf(
		[4]float64{101, 102, 100.5, 101},
		[4]float64{100.8, 101.5, 100, 100.4},
		[4]float64{100.5, 106, 100.2, 105.5},
		[4]float64{105.5, 110, 104.5, 109.5},
		[4]float64{109, 109, 104, 104.5},
		[4]float64{104.5, 114, 104.1, 113.5},
		[4]float64{113, 113.5, 99, 100.5},
		[4]float64{113.4, 120, 113, 119},
		[4]float64{117, 118, 112, 112.5},
		[4]float64{112.5, 113, 112.2, 112.8},
	)

	zz := BuildZigzag(s, nil)
	require.Equal(t, 6, zz.Len())

	for i := 1; i < zz.Len(); i++ {
		assert.Greater(t, zz.At(i).PDI, zz.At(i-1).PDI, "PDIs strictly increase")
		assert.Equal(t, zz.At(i-1).Type.Opposite(), zz.At(i).Type, "types strictly alternate")
	}

	for _, p := range zz.Pivots() {
		c, ok := s.At(p.PDI)
		require.True(t, ok)
		if p.Type == PivotPeak {
			assert.Equal(t, c.High, p.Value)
		} else {
			assert.Equal(t, c.Low, p.Value)
		}
	}
}

func TestBuildZigzag_OpenExtremeNeverEmitted(t *testing.T) {
	// Monotone rise: the peak keeps extending and is never committed.
	s := seriesOf(
		[4]float64{10, 11, 9.5, 10.5},
		[4]float64{10.5, 12, 10, 11.5},
		[4]float64{11.5, 13, 11, 12.5},
		[4]float64{12.5, 14, 12, 13.5},
	)
	zz := BuildZigzag(s, nil)
	assert.Equal(t, 0, zz.Len())
}

func TestZigzag_FindRelative(t *testing.T) {
	s := seriesOf(
		[4]float64{10, 11, 9, 10},
		[4]float64{9.5, 10.5, 8, 9},
		[4]float64{9, 12, 8.5, 11.5},
		[4]float64{11, 11.5, 7.9, 8.4},
		[4]float64{8.5, 13, 8.3, 12.5},
		[4]float64{12, 12.5, 7.5, 8},
	)
	zz := BuildZigzag(s, nil)

	next, err := zz.FindRelative(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, next.PDI)

	back, err := zz.FindRelative(4, -2)
	require.NoError(t, err)
	assert.Equal(t, 2, back.PDI)

	_, err = zz.FindRelative(1, -1)
	assert.ErrorIs(t, err, ErrPivotOutOfRange)

	_, err = zz.FindRelative(4, 1)
	assert.ErrorIs(t, err, ErrPivotOutOfRange)

	_, err = zz.FindRelative(0, 1)
	assert.ErrorIs(t, err, ErrPivotOutOfRange, "pdi 0 is not a pivot")
}

func TestZigzag_LastOfTypeAtOrBefore(t *testing.T) {
	s := seriesOf(
		[4]float64{10, 11, 9, 10},
		[4]float64{9.5, 10.5, 8, 9},
		[4]float64{9, 12, 8.5, 11.5},
		[4]float64{11, 11.5, 7.9, 8.4},
		[4]float64{8.5, 13, 8.3, 12.5},
		[4]float64{12, 12.5, 7.5, 8},
	)
	zz := BuildZigzag(s, nil) // V1 P2 V3 P4

	p, err := zz.LastOfTypeAtOrBefore(PivotValley, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, p.PDI)

	p, err = zz.LastOfTypeAtOrBefore(PivotValley, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.PDI)

	p, err = zz.LastOfTypeAtOrBefore(PivotPeak, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.PDI, "bound is inclusive")

	_, err = zz.LastOfTypeAtOrBefore(PivotPeak, 1)
	assert.ErrorIs(t, err, ErrPivotOutOfRange)
}

func TestZigzag_ExtremeOfTypeBetween(t *testing.T) {
	s := seriesOf(
		[4]float64{10, 11, 9, 10},
		[4]float64{9.5, 10.5, 8, 9},
		[4]float64{9, 12, 8.5, 11.5},
		[4]float64{11, 11.5, 7.9, 8.4},
		[4]float64{8.5, 13, 8.3, 12.5},
		[4]float64{12, 12.5, 7.5, 8},
	)
	zz := BuildZigzag(s, nil) // V(1,8) P(2,12) V(3,7.9) P(4,13)

	p, err := zz.ExtremeOfTypeBetween(PivotValley, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, p.PDI, "lowest valley wins")

	p, err = zz.ExtremeOfTypeBetween(PivotPeak, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, p.PDI, "highest peak wins")

	p, err = zz.ExtremeOfTypeBetween(PivotPeak, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, p.PDI, "bounds are inclusive")

	_, err = zz.ExtremeOfTypeBetween(PivotValley, 4, 4)
	assert.ErrorIs(t, err, ErrPivotOutOfRange)
}

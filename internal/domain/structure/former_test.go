package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/structrun/internal/domain"
	"github.com/sawpanic/structrun/internal/domain/orderblock"
)

func TestEngine_ReplacementOBThreshold(t *testing.T) {
	e := NewEngine("BTCUSDT", continuationSeries())
	e.Refresh()
	zz := e.Zigzag() // V1 P3 V4 P5 V6 P7

	p, ok := zz.PivotAt(1)
	require.True(t, ok)
	assert.Equal(t, 3, e.ReplacementOBThreshold(p), "next pivot bounds the check")

	last, ok := zz.PivotAt(7)
	require.True(t, ok)
	assert.Equal(t, 9, e.ReplacementOBThreshold(last), "open leg runs to the final candle")
}

func TestEngine_FormPotentialOB_ValidLong(t *testing.T) {
	e := NewEngine("BTCUSDT", continuationSeries())
	e.Refresh()

	base, ok := continuationSeries().At(1)
	require.True(t, ok)

	ob := e.FormPotentialOB(base, PivotValley, 100, 6, true)
	require.NotNil(t, ob)

	assert.Equal(t, orderblock.Long, ob.Type)
	assert.Equal(t, 101.5, ob.EntryPrice())
	require.NotNil(t, ob.PriceExitIndex)
	assert.Equal(t, 2, *ob.PriceExitIndex, "candle 2 closed above the base high")

	assert.False(t, ob.ReentryViolated)
	assert.True(t, ob.HasFVG)
	assert.False(t, ob.StopBroken)
}

func TestEngine_FormPotentialOB_WindowBounding(t *testing.T) {
	// Candle 6 dips to 99, below both the entry level and the stop. With
	// the activation threshold at 6 the dip is invisible in validation
	// mode and decisive in forward mode.
	t.Run("validation mode stops at the activation threshold", func(t *testing.T) {
		e := NewEngine("BTCUSDT", continuationSeries())
		e.Refresh()
		base, _ := continuationSeries().At(1)

		ob := e.FormPotentialOB(base, PivotValley, 100, 6, true)
		require.NotNil(t, ob)
		assert.False(t, ob.ReentryViolated)
		assert.False(t, ob.StopBroken)
		if len(ob.ConditionWindow()) > 0 {
			lastInWindow := ob.ConditionWindow()[len(ob.ConditionWindow())-1]
			assert.Less(t, lastInWindow.PDI, 6)
		}
	})

	t.Run("forward mode scans to the end of data", func(t *testing.T) {
		e := NewEngine("BTCUSDT", continuationSeries())
		e.Refresh()
		base, _ := continuationSeries().At(1)

		ob := e.FormPotentialOB(base, PivotValley, 100, 6, false)
		require.NotNil(t, ob)
		assert.True(t, ob.ReentryViolated, "candle 6 tagged the entry level")
		assert.True(t, ob.StopBroken, "candle 6 crossed the stop reference")
	})
}

func TestEngine_FormPotentialOB_NoExitCandle(t *testing.T) {
	e := NewEngine("BTCUSDT", continuationSeries())
	e.Refresh()

	// Candle 5 tops at 114; nothing up to the threshold closes above it.
	base, _ := continuationSeries().At(5)
	ob := e.FormPotentialOB(base, PivotValley, 104.1, 6, true)
	assert.Nil(t, ob, "a block that never confirmed is discarded")
}

func TestRegisterPossibleEntries(t *testing.T) {
	newLong := func() *orderblock.Position {
		base := domain.Candle{PDI: 1, Open: 100.8, High: 101.5, Low: 100, Close: 100.4}
		return orderblock.NewPosition(orderblock.New(base, 100, orderblock.Long))
	}

	t.Run("long enters when the low tags the entry", func(t *testing.T) {
		p := newLong()
		RegisterPossibleEntries(p, domain.Candle{Low: 101.4, High: 103})
		assert.Equal(t, orderblock.StatusEntered, p.Status)
	})

	t.Run("long stays pending above the entry", func(t *testing.T) {
		p := newLong()
		RegisterPossibleEntries(p, domain.Candle{Low: 101.6, High: 103})
		assert.Equal(t, orderblock.StatusPending, p.Status)
	})

	t.Run("short enters when the high tags the entry", func(t *testing.T) {
		base := domain.Candle{PDI: 4, Open: 109, High: 109, Low: 104, Close: 104.5}
		p := orderblock.NewPosition(orderblock.New(base, 109, orderblock.Short))
		RegisterPossibleEntries(p, domain.Candle{Low: 103, High: 104.2})
		assert.Equal(t, orderblock.StatusEntered, p.Status)
	})
}

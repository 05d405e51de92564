package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_PositionSearchWindow_AfterContinuation(t *testing.T) {
	e := NewEngine("BTCUSDT", continuationSeries())
	e.Refresh()

	// Mid-scan state: the first two higher-order pivots are known and a
	// bos segment closed at pdi 3. The anchoring valley is pdi 1, whose
	// level advanced to pdi 4 before candle 6 broke it.
	e.hoIndices = []int{1, 5}
	seg := Segment{Formation: FormationBOS, Type: TrendAscending, EndPDI: 3}

	w, ok := e.PositionSearchWindow(seg)
	require.True(t, ok)
	assert.Equal(t, PositionWindow{
		StartPDI:               1,
		EndPDI:                 4,
		ActivationThresholdPDI: 6,
	}, w)
}

func TestEngine_PositionSearchWindow_UnavailableWhileLegOpen(t *testing.T) {
	e := NewEngine("BTCUSDT", continuationSeries())
	e.Process()

	seg, ok := e.LatestSegment()
	require.True(t, ok)

	// The leg after the emitted segment has not broken any level yet, so
	// there is nothing to bound the window with. That is a steady state,
	// not an error.
	_, ok = e.PositionSearchWindow(seg)
	assert.False(t, ok)
}

func TestEngine_PositionSearchWindow_AfterReversal(t *testing.T) {
	e := NewEngine("ETHUSDT", reversalSeries())
	e.Process()

	seg, ok := e.LatestSegment()
	require.True(t, ok)
	require.Equal(t, FormationCHOCH, seg.Formation)

	// Post-flip the anchor is the last peak before the segment end; its
	// downleg has no break yet either.
	_, ok = e.PositionSearchWindow(seg)
	assert.False(t, ok)
}

func TestEngine_PositionSearchWindow_RequiresStructure(t *testing.T) {
	e := NewEngine("BTCUSDT", continuationSeries())
	e.Refresh()

	_, ok := e.PositionSearchWindow(Segment{Formation: FormationBOS, Type: TrendAscending})
	assert.False(t, ok, "fewer than two higher-order pivots")
}

package structure

// PositionWindow is the candle/pivot range in which tradeable order blocks
// should be sought, plus the candle whose break activates them.
type PositionWindow struct {
	StartPDI               int
	EndPDI                 int
	ActivationThresholdPDI int
}

// PositionSearchWindow derives the search window from the latest segment.
//
// After a bos segment the trend is unchanged, so the window opens at the
// second-to-last higher-order pivot and the anchoring pivot type is the
// trend's own start type. After a choch segment the direction has flipped:
// the window opens at the last higher-order pivot and the anchor is the
// opposite of the segment's trend. Either way the next structural break after
// the anchor closes the window; when that leg has not broken anything yet the
// window is simply unavailable, which is an expected steady state rather than
// an error.
func (e *Engine) PositionSearchWindow(seg Segment) (PositionWindow, bool) {
	if e.zigzag == nil || len(e.hoIndices) < 2 {
		return PositionWindow{}, false
	}

	var startPDI int
	var anchorType PivotType
	if seg.Formation == FormationBOS {
		startPDI = e.hoIndices[len(e.hoIndices)-2]
		anchorType = seg.Type.StartPivotType()
	} else {
		startPDI = e.hoIndices[len(e.hoIndices)-1]
		anchorType = seg.Type.StartPivotType().Opposite()
	}

	anchor, err := e.zigzag.LastOfTypeAtOrBefore(anchorType, seg.EndPDI)
	if err != nil {
		return PositionWindow{}, false
	}

	bl := e.detector.FirstBrokenLPL(anchor.PDI)
	if bl == nil {
		return PositionWindow{}, false
	}

	return PositionWindow{
		StartPDI:               startPDI,
		EndPDI:                 bl.LPL.PDI,
		ActivationThresholdPDI: bl.BreakingCandlePDI,
	}, true
}

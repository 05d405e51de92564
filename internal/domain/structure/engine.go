package structure

import (
	"github.com/sawpanic/structrun/internal/domain"
)

// Engine maintains the higher-order structure of one symbol: it repeatedly
// finds the next structural level break, classifies which threshold broke
// first, and advances trend state, emitting higher-order pivots and segments.
//
// The loop is re-entrant: state persists across invocations, so after new
// candles arrive a Refresh plus Resume continues exactly where the previous
// pass halted. Re-running from scratch on the same candle history reproduces
// identical output; there is no wall-clock or randomness anywhere in the
// transition logic.
type Engine struct {
	symbol   string
	series   *domain.Series
	zigzag   *Zigzag
	detector *Detector
	registry *LPLRegistry

	started         bool
	startingPDI     int
	patternStartPDI int
	trend           TrendType

	latestPBOSPDI        *int
	latestPBOSThreshold  float64
	latestCHOCHThreshold float64

	hoIndices    []int
	pbosIndices  []int
	chochIndices []int
	segments     []Segment
}

// NewEngine creates an engine over the given series. The zigzag is built on
// the first Refresh.
func NewEngine(symbol string, series *domain.Series) *Engine {
	return &Engine{
		symbol:   symbol,
		series:   series,
		registry: &LPLRegistry{},
	}
}

// Symbol returns the symbol this engine tracks.
func (e *Engine) Symbol() string { return e.symbol }

// Refresh rebuilds the zigzag from the current series contents. Detection
// state is untouched; call Resume afterwards to continue the loop over the
// extended structure.
func (e *Engine) Refresh() {
	e.zigzag = BuildZigzag(e.series, nil)
	e.detector = NewDetector(e.series, e.zigzag, e.registry)
}

// Start initializes the higher-order scan at the given pivot: the pivot
// becomes the first higher-order index and its value the initial reversal
// threshold.
func (e *Engine) Start(startPDI int) bool {
	if e.zigzag == nil {
		e.Refresh()
	}
	p, ok := e.zigzag.PivotAt(startPDI)
	if !ok {
		return false
	}
	e.started = true
	e.startingPDI = startPDI
	e.patternStartPDI = startPDI
	e.latestCHOCHThreshold = p.Value
	e.latestPBOSPDI = nil
	e.hoIndices = append(e.hoIndices, startPDI)
	return true
}

// Process refreshes the zigzag, starts the engine at the first committed
// pivot if it has not started yet, and resumes the detection loop. It reports
// how many segments were emitted by this invocation.
func (e *Engine) Process() int {
	e.Refresh()
	if !e.started {
		if e.zigzag.Len() == 0 {
			return 0
		}
		e.Start(e.zigzag.At(0).PDI)
	}
	return e.Resume()
}

// Resume runs the detection loop until it halts for lack of further
// structure, returning the number of segments emitted.
//
// Each iteration: find the next broken structural level from the current
// pattern start; derive the trend from the broken pivot's type; track the
// pivot right after it as the provisional break-of-structure; classify the
// first threshold breach; then dispatch. Shadow breaches ratchet a threshold
// and continue. A confirmed continuation break (PBOS close) pushes the
// extremum pivot of the leg onto the higher-order indices, emits a bos
// segment and restarts the pattern. A confirmed reversal (CHOCH close) flips
// the trend, emits a choch segment and restarts. No breach halts the loop.
func (e *Engine) Resume() int {
	if !e.started {
		return 0
	}
	emitted := 0

	for {
		bl := e.detector.FirstBrokenLPL(e.patternStartPDI)
		if bl == nil {
			return emitted
		}

		e.trend = TrendDescending
		if bl.LPL.Type == PivotValley {
			e.trend = TrendAscending
		}

		bos, err := e.zigzag.FindRelative(bl.LPL.PDI, 1)
		if err != nil {
			return emitted
		}

		if e.latestPBOSPDI == nil {
			pdi := bos.PDI
			e.latestPBOSPDI = &pdi
			e.latestPBOSThreshold = bos.Value
			e.hoIndices = append(e.hoIndices, bos.PDI)
		}
		e.pbosIndices = append(e.pbosIndices, bos.PDI)

		hit := ClassifySentiment(e.series, e.latestPBOSThreshold, *e.latestPBOSPDI, e.latestCHOCHThreshold, e.trend)

		switch hit.Sentiment {
		case SentimentPBOSShadow:
			c, _ := e.series.At(hit.PDI)
			if e.trend == TrendAscending {
				e.latestPBOSThreshold = c.High
			} else {
				e.latestPBOSThreshold = c.Low
			}
			pdi := hit.PDI
			e.latestPBOSPDI = &pdi

		case SentimentCHOCHShadow:
			c, _ := e.series.At(hit.PDI)
			if e.trend == TrendAscending {
				e.latestCHOCHThreshold = c.Low
			} else {
				e.latestCHOCHThreshold = c.High
			}
			e.chochIndices = append(e.chochIndices, hit.PDI)

		case SentimentPBOSClose:
			if !e.confirmContinuation(bl, hit) {
				return emitted
			}
			emitted++

		case SentimentCHOCHClose:
			if !e.confirmReversal(bl, hit) {
				return emitted
			}
			emitted++

		default:
			return emitted
		}
	}
}

// confirmContinuation handles a candle closing through the continuation
// threshold: the leg's extremum joins the higher-order indices, a bos segment
// is emitted and the pattern restarts at the last same-type pivot before the
// breach.
func (e *Engine) confirmContinuation(bl *BrokenLevel, hit SentimentHit) bool {
	extremumType := e.trend.StartPivotType()

	extremum, err := e.zigzag.ExtremeOfTypeBetween(extremumType, e.hoIndices[len(e.hoIndices)-1], hit.PDI)
	if err != nil {
		return false
	}
	e.hoIndices = append(e.hoIndices, extremum.PDI)

	restart, err := e.zigzag.LastOfTypeAtOrBefore(e.trend.StartPivotType(), hit.PDI)
	if err != nil {
		return false
	}
	e.patternStartPDI = restart.PDI
	e.latestPBOSPDI = nil

	n := len(e.hoIndices)
	e.segments = append(e.segments, Segment{
		StartPDI:            e.hoIndices[n-3],
		EndPDI:              hit.PDI - 1,
		OBLegStartPDI:       e.hoIndices[n-3],
		OBLegEndPDI:         e.hoIndices[n-2],
		TopPrice:            e.latestPBOSThreshold,
		BottomPrice:         e.latestCHOCHThreshold,
		OBFormationStartPDI: bl.BreakingCandlePDI + 1,
		BrokenLPLPDI:        bl.LPL.PDI,
		Type:                e.trend,
		Formation:           FormationBOS,
	})

	last, _ := e.zigzag.PivotAt(e.hoIndices[n-1])
	e.latestCHOCHThreshold = last.Value
	return true
}

// confirmReversal handles a candle closing through the reversal threshold:
// the trend flips, a choch segment is emitted for the pre-flip direction and
// the pattern restarts at the last pivot matching the new trend's start type.
func (e *Engine) confirmReversal(bl *BrokenLevel, hit SentimentHit) bool {
	preFlip := e.trend
	e.trend = e.trend.Opposite()

	restart, err := e.zigzag.LastOfTypeAtOrBefore(e.trend.StartPivotType(), hit.PDI)
	if err != nil {
		return false
	}
	e.patternStartPDI = restart.PDI

	n := len(e.hoIndices)
	e.segments = append(e.segments, Segment{
		StartPDI:            e.hoIndices[n-2],
		EndPDI:              hit.PDI,
		OBLegStartPDI:       e.hoIndices[n-2],
		OBLegEndPDI:         e.hoIndices[n-2],
		TopPrice:            e.latestPBOSThreshold,
		BottomPrice:         e.latestCHOCHThreshold,
		OBFormationStartPDI: bl.BreakingCandlePDI + 1,
		BrokenLPLPDI:        bl.LPL.PDI,
		Type:                preFlip,
		Formation:           FormationCHOCH,
	})

	last, _ := e.zigzag.PivotAt(e.hoIndices[n-1])
	e.latestCHOCHThreshold = last.Value
	e.latestPBOSPDI = nil
	return true
}

// Zigzag returns the current zigzag.
func (e *Engine) Zigzag() *Zigzag { return e.zigzag }

// Registry returns the structural level history.
func (e *Engine) Registry() *LPLRegistry { return e.registry }

// Trend returns the current trend direction.
func (e *Engine) Trend() TrendType { return e.trend }

// HigherOrderIndices returns the confirmed higher-order turning point PDIs.
func (e *Engine) HigherOrderIndices() []int { return e.hoIndices }

// PBOSIndices returns every provisional break-of-structure pivot observed.
func (e *Engine) PBOSIndices() []int { return e.pbosIndices }

// CHOCHIndices returns the candles that moved the reversal threshold by
// shadow.
func (e *Engine) CHOCHIndices() []int { return e.chochIndices }

// Segments returns the emitted segments in order.
func (e *Engine) Segments() []Segment { return e.segments }

// LatestSegment returns the most recent segment, reporting whether any
// exists.
func (e *Engine) LatestSegment() (Segment, bool) {
	if len(e.segments) == 0 {
		return Segment{}, false
	}
	return e.segments[len(e.segments)-1], true
}

package structure

import (
	"github.com/sawpanic/structrun/internal/domain"
)

// Sentiment classifies which tracked threshold a candle broke first, and by
// what means. A close breach subsumes a shadow breach on the same candle.
type Sentiment string

const (
	SentimentPBOSShadow  Sentiment = "PBOS_SHADOW"
	SentimentPBOSClose   Sentiment = "PBOS_CLOSE"
	SentimentCHOCHShadow Sentiment = "CHOCH_SHADOW"
	SentimentCHOCHClose  Sentiment = "CHOCH_CLOSE"
	SentimentNone        Sentiment = "NONE"
)

// SentimentHit is the first threshold breach found in a window.
type SentimentHit struct {
	Sentiment Sentiment
	PDI       int
}

// ClassifySentiment finds the first candle after pbosPDI that breaks either
// the continuation threshold (pbosValue) or the reversal threshold
// (chochValue), by shadow or by close. The final candle of the series is
// excluded because its close is still forming.
//
// The earliest breaching candle wins; on an exact index tie a close event
// outranks a shadow event. SentimentNone is returned when nothing in the
// window breaks anything.
func ClassifySentiment(s *domain.Series, pbosValue float64, pbosPDI int, chochValue float64, trend TrendType) SentimentHit {
	window := s.Range(pbosPDI+1, s.Len()-1)

	hits := []struct {
		sentiment Sentiment
		pdi       int
		isClose   bool
	}{
		{SentimentPBOSShadow, -1, false},
		{SentimentPBOSClose, -1, true},
		{SentimentCHOCHShadow, -1, false},
		{SentimentCHOCHClose, -1, true},
	}

	for _, c := range window {
		var pbosShadow, pbosClose, chochShadow, chochClose bool
		if trend == TrendAscending {
			pbosShadow = c.High > pbosValue
			pbosClose = c.Close > pbosValue
			chochShadow = c.Low < chochValue
			chochClose = c.Close < chochValue
		} else {
			pbosShadow = c.Low < pbosValue
			pbosClose = c.Close < pbosValue
			chochShadow = c.High > chochValue
			chochClose = c.Close > chochValue
		}
		conds := []bool{pbosShadow, pbosClose, chochShadow, chochClose}
		for i, hit := range conds {
			if hit && hits[i].pdi < 0 {
				hits[i].pdi = c.PDI
			}
		}
	}

	best := SentimentHit{Sentiment: SentimentNone, PDI: -1}
	bestClose := false
	for _, h := range hits {
		if h.pdi < 0 {
			continue
		}
		better := best.PDI < 0 ||
			h.pdi < best.PDI ||
			(h.pdi == best.PDI && h.isClose && !bestClose)
		if better {
			best = SentimentHit{Sentiment: h.sentiment, PDI: h.pdi}
			bestClose = h.isClose
		}
	}
	return best
}

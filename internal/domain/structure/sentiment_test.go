package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifySentiment_EarliestBreachWins(t *testing.T) {
	// pbos 110 by shadow at pdi 1, by close only at pdi 2.
	s := seriesOf(
		[4]float64{105, 106, 104, 105},
		[4]float64{105, 112, 104, 108},
		[4]float64{108, 113, 107, 111},
		[4]float64{111, 112, 110, 111},
	)

	hit := ClassifySentiment(s, 110, 0, 100, TrendAscending)
	assert.Equal(t, SentimentHit{Sentiment: SentimentPBOSShadow, PDI: 1}, hit)
}

func TestClassifySentiment_CloseOutranksShadowOnTie(t *testing.T) {
	s := seriesOf(
		[4]float64{105, 106, 104, 105},
		[4]float64{105, 115, 104, 112}, // shadow and close both clear 110
		[4]float64{112, 113, 111, 112},
	)

	hit := ClassifySentiment(s, 110, 0, 100, TrendAscending)
	assert.Equal(t, SentimentHit{Sentiment: SentimentPBOSClose, PDI: 1}, hit)
}

func TestClassifySentiment_ReversalCloseOnSameCandleAsContinuationShadow(t *testing.T) {
	// One candle spikes over the continuation threshold by shadow and
	// closes under the reversal threshold.
	s := seriesOf(
		[4]float64{105, 106, 104, 105},
		[4]float64{105, 112, 98, 99},
		[4]float64{99, 100, 98, 99},
	)

	hit := ClassifySentiment(s, 110, 0, 100, TrendAscending)
	assert.Equal(t, SentimentHit{Sentiment: SentimentCHOCHClose, PDI: 1}, hit)
}

func TestClassifySentiment_NoBreach(t *testing.T) {
	s := seriesOf(
		[4]float64{105, 106, 104, 105},
		[4]float64{105, 107, 103, 106},
		[4]float64{106, 108, 104, 107},
	)

	hit := ClassifySentiment(s, 110, 0, 100, TrendAscending)
	assert.Equal(t, SentimentHit{Sentiment: SentimentNone, PDI: -1}, hit)
}

func TestClassifySentiment_LastCandleExcluded(t *testing.T) {
	// Only the final, still-forming candle breaches.
	s := seriesOf(
		[4]float64{105, 106, 104, 105},
		[4]float64{105, 107, 103, 106},
		[4]float64{106, 115, 105, 112},
	)

	hit := ClassifySentiment(s, 110, 0, 100, TrendAscending)
	assert.Equal(t, SentimentNone, hit.Sentiment)
}

func TestClassifySentiment_WindowStartsAfterThresholdCandle(t *testing.T) {
	// The breaching candle sits at the threshold PDI itself and must not
	// count; only candles strictly after it are scanned.
	s := seriesOf(
		[4]float64{105, 115, 104, 112},
		[4]float64{105, 107, 103, 106},
		[4]float64{106, 108, 104, 107},
	)

	hit := ClassifySentiment(s, 110, 0, 100, TrendAscending)
	assert.Equal(t, SentimentNone, hit.Sentiment)
}

func TestClassifySentiment_DescendingTrend(t *testing.T) {
	// Descending: continuation breaks below pbos, reversal above choch.
	t.Run("continuation by close", func(t *testing.T) {
		s := seriesOf(
			[4]float64{105, 106, 104, 105},
			[4]float64{104, 105, 98, 99}, // shadow and close both under 100
			[4]float64{99, 100, 98, 99},
		)
		hit := ClassifySentiment(s, 100, 0, 110, TrendDescending)
		assert.Equal(t, SentimentHit{Sentiment: SentimentPBOSClose, PDI: 1}, hit)
	})

	t.Run("reversal by shadow", func(t *testing.T) {
		s := seriesOf(
			[4]float64{105, 106, 104, 105},
			[4]float64{105, 112, 104, 108}, // spikes over 110, closes under
			[4]float64{108, 109, 107, 108},
		)
		hit := ClassifySentiment(s, 100, 0, 110, TrendDescending)
		assert.Equal(t, SentimentHit{Sentiment: SentimentCHOCHShadow, PDI: 1}, hit)
	})
}

package indicator

import (
	"math"
	"sort"

	"github.com/markcheno/go-talib"

	"tripleconfirm/internal/model"
)

// Market structure labels.
const (
	PatternConsolidation = "consolidation"
	PatternVolatile      = "volatile"
)

const (
	volatilityRatio    = 0.02
	resistanceQuantile = 0.90
	supportQuantile    = 0.10
)

// DetectStructure classifies the lookback+1 HA candles ending at index.
// The volatility test compares the sample standard deviation of the highs
// against 2% of their mean; resistance and support compare the current
// high/low with the 90th/10th percentile of the window. Indices with fewer
// than lookback prior candles return the zero MarketStructure.
func DetectStructure(ha []model.HACandle, index, lookback int) model.MarketStructure {
	if lookback < 1 || index < lookback || index >= len(ha) {
		return model.MarketStructure{}
	}

	window := ha[index-lookback : index+1]
	n := len(window)
	highs := make([]float64, n)
	lows := make([]float64, n)
	maxHigh, minLow := window[0].High, window[0].Low
	for i := range window {
		highs[i] = window[i].High
		lows[i] = window[i].Low
		maxHigh = math.Max(maxHigh, highs[i])
		minLow = math.Min(minLow, lows[i])
	}

	// talib.StdDev is the population deviation; rescale to the sample one.
	std := talib.StdDev(highs, n, 1.0)[n-1] * math.Sqrt(float64(n)/float64(n-1))
	mean := talib.Sma(highs, n)[n-1]
	volatile := std > mean*volatilityRatio

	ms := model.MarketStructure{
		Pattern:        PatternConsolidation,
		HighVolatility: volatile,
		NearResistance: ha[index].High >= quantile(highs, resistanceQuantile),
		NearSupport:    ha[index].Low <= quantile(lows, supportQuantile),
		PriceRange:     maxHigh - minLow,
	}
	if volatile {
		ms.Pattern = PatternVolatile
	}
	return ms
}

// quantile uses linear interpolation between closest ranks.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

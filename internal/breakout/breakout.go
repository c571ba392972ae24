// Package breakout decides whether a single Heikin-Ashi candle is a
// high-conviction breakout bar.
//
// The rules run in order and stop at the first failure:
//
//  1. index < lookback                          -> insufficient_data
//  2. range > 0 and body/range < 0.10           -> doji
//  3. body < previous body                      -> smaller_than_previous
//  4. rank of body among the trailing lookback
//     bodies (1 = largest) greater than 3       -> not_top_rank
//  5. otherwise valid: valid_progressive when every body in the window is
//     strictly larger than its predecessor, valid_non_progressive if not.
//
// Ties in rule 4 are broken first-occurrence-wins: the bodies are sorted in
// descending order and the current body takes the position of the first
// equal value, so a body equal to a larger-ranked neighbour shares its
// (better) rank.
package breakout

import (
	"math"
	"sort"

	"tripleconfirm/internal/model"
)

const (
	// DefaultLookback is the trailing window used by the signal pipeline.
	DefaultLookback = 3
	// MaxRank is the worst rank still accepted as a breakout.
	MaxRank = 3
	// DojiRatio is the body/range ratio below which a candle is a doji.
	DojiRatio = 0.10
)

// Validate classifies candles[index]. A lookback below 1 is treated as 1.
func Validate(candles []model.HACandle, index, lookback int) model.BreakoutResult {
	if lookback < 1 {
		lookback = 1
	}
	if index < lookback || index >= len(candles) {
		return model.BreakoutResult{Reason: model.ReasonInsufficientData}
	}

	cur := candles[index]
	body := cur.Body()
	if rng := cur.Range(); rng > 0 && body/rng < DojiRatio {
		return model.BreakoutResult{Reason: model.ReasonDoji}
	}
	if body < candles[index-1].Body() {
		return model.BreakoutResult{Reason: model.ReasonSmallerThanPrevious}
	}

	window := make([]float64, 0, lookback)
	for i := index - lookback + 1; i <= index; i++ {
		window = append(window, candles[i].Body())
	}

	rank := rankOf(window, body)
	if rank > MaxRank {
		return model.BreakoutResult{Reason: model.ReasonNotTopRank, Rank: rank}
	}

	reason := model.ReasonValidProgressive
	for i := 1; i < len(window); i++ {
		if window[i] <= window[i-1] {
			reason = model.ReasonValidNonProgressive
			break
		}
	}
	return model.BreakoutResult{Valid: true, Reason: reason, Rank: rank}
}

// rankOf returns the 1-based position of the first value equal to body in
// the descending sort of window.
func rankOf(window []float64, body float64) int {
	sorted := append([]float64(nil), window...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	for i, v := range sorted {
		if v == body {
			return i + 1
		}
	}
	// body is always part of window; this is unreachable for finite input.
	return math.MaxInt32
}

package breakout

import (
	"testing"

	"tripleconfirm/internal/model"
)

// bodies builds bullish candles with the given body sizes and no wicks, so
// none of them is a doji.
func bodies(sizes ...float64) []model.HACandle {
	out := make([]model.HACandle, len(sizes))
	for i, b := range sizes {
		out[i] = model.HACandle{Open: 100, Close: 100 + b, High: 100 + b, Low: 100}
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		candles  []model.HACandle
		index    int
		lookback int
		want     model.BreakoutResult
	}{
		{
			name:    "progressive growth, largest current",
			candles: bodies(1, 5, 8, 12), index: 3, lookback: 3,
			want: model.BreakoutResult{Valid: true, Reason: model.ReasonValidProgressive, Rank: 1},
		},
		{
			name:    "smaller than previous short-circuits ranking",
			candles: bodies(1, 8, 12, 5), index: 3, lookback: 3,
			want: model.BreakoutResult{Reason: model.ReasonSmallerThanPrevious},
		},
		{
			name:    "not progressive but top rank",
			candles: bodies(1, 12, 4, 8), index: 3, lookback: 3,
			want: model.BreakoutResult{Valid: true, Reason: model.ReasonValidNonProgressive, Rank: 2},
		},
		{
			name:    "equal bodies are not progressive, tie takes first rank",
			candles: bodies(1, 6, 6, 6), index: 3, lookback: 3,
			want: model.BreakoutResult{Valid: true, Reason: model.ReasonValidNonProgressive, Rank: 1},
		},
		{
			name:    "index below lookback",
			candles: bodies(5, 8, 12), index: 2, lookback: 3,
			want: model.BreakoutResult{Reason: model.ReasonInsufficientData},
		},
		{
			name:    "index out of range",
			candles: bodies(5, 8, 12), index: 3, lookback: 1,
			want: model.BreakoutResult{Reason: model.ReasonInsufficientData},
		},
		{
			name:    "rank beyond three with a longer lookback",
			candles: bodies(1, 20, 18, 16, 14, 2, 10), index: 6, lookback: 6,
			want: model.BreakoutResult{Reason: model.ReasonNotTopRank, Rank: 5},
		},
		{
			name:    "lookback below one behaves as one",
			candles: bodies(3, 4), index: 1, lookback: 0,
			want: model.BreakoutResult{Valid: true, Reason: model.ReasonValidProgressive, Rank: 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.candles, tc.index, tc.lookback)
			if got != tc.want {
				t.Errorf("Validate = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestValidate_Doji(t *testing.T) {
	c := bodies(1, 2, 3, 4)
	// body 0.5 inside a range of 10 -> ratio 0.05
	c[3] = model.HACandle{Open: 100, Close: 100.5, High: 105, Low: 95}
	got := Validate(c, 3, 3)
	if got.Valid || got.Reason != model.ReasonDoji {
		t.Errorf("expected doji, got %+v", got)
	}

	// Zero range is not a doji; it is then compared with the previous body.
	c[3] = model.HACandle{Open: 100, Close: 100, High: 100, Low: 100}
	got = Validate(c, 3, 3)
	if got.Reason != model.ReasonSmallerThanPrevious {
		t.Errorf("flat candle: expected smaller_than_previous, got %+v", got)
	}
}

func TestValidate_BearishBodies(t *testing.T) {
	c := bodies(1, 1, 1, 1)
	for i, b := range []float64{1, 5, 8, 12} {
		c[i] = model.HACandle{Open: 100 + b, Close: 100, High: 100 + b, Low: 100}
	}
	got := Validate(c, 3, 3)
	if !got.Valid || got.Reason != model.ReasonValidProgressive || got.Rank != 1 {
		t.Errorf("bearish progressive bodies: got %+v", got)
	}
}

func TestRankOf_FirstOccurrenceWins(t *testing.T) {
	if r := rankOf([]float64{9, 4, 9, 7}, 9); r != 1 {
		t.Errorf("rank of tied maximum = %d, want 1", r)
	}
	if r := rankOf([]float64{9, 4, 7, 7}, 7); r != 2 {
		t.Errorf("rank of tied middle = %d, want 2", r)
	}
	if r := rankOf([]float64{9, 4, 7, 7}, 4); r != 4 {
		t.Errorf("rank of smallest = %d, want 4", r)
	}
}

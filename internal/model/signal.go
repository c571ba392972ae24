package model

import (
	"encoding/json"
	"fmt"
)

// IndicatorFrame bundles the indicator readings at one candle index.
// Fields stay invalid until the indicator's warm-up is reached.
type IndicatorFrame struct {
	Jaw     OptFloat `json:"jaw"`
	Teeth   OptFloat `json:"teeth"`
	Lips    OptFloat `json:"lips"`
	K       OptFloat `json:"k"`
	D       OptFloat `json:"d"`
	VIPlus  OptFloat `json:"vi_plus"`
	VIMinus OptFloat `json:"vi_minus"`
	ATR     OptFloat `json:"atr"`
}

// BreakoutReason explains a breakout validation outcome.
type BreakoutReason int

const (
	ReasonNone BreakoutReason = iota
	ReasonInsufficientData
	ReasonDoji
	ReasonSmallerThanPrevious
	ReasonNotTopRank
	ReasonValidProgressive
	ReasonValidNonProgressive
)

var breakoutReasonNames = [...]string{
	ReasonNone:                "",
	ReasonInsufficientData:    "insufficient_data",
	ReasonDoji:                "doji",
	ReasonSmallerThanPrevious: "smaller_than_previous",
	ReasonNotTopRank:          "not_top_rank",
	ReasonValidProgressive:    "valid_progressive",
	ReasonValidNonProgressive: "valid_non_progressive",
}

func (r BreakoutReason) String() string {
	if r < 0 || int(r) >= len(breakoutReasonNames) {
		return fmt.Sprintf("BreakoutReason(%d)", int(r))
	}
	return breakoutReasonNames[r]
}

func (r BreakoutReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *BreakoutReason) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, name := range breakoutReasonNames {
		if name == s {
			*r = BreakoutReason(i)
			return nil
		}
	}
	return fmt.Errorf("unknown breakout reason %q", s)
}

// BreakoutResult is the outcome of validating one candle as a breakout bar.
// Rank is 0 when no rank was computed, otherwise 1 (largest body) and up.
type BreakoutResult struct {
	Valid  bool           `json:"valid"`
	Reason BreakoutReason `json:"reason"`
	Rank   int            `json:"rank,omitempty"`
}

// MarketStructure is a coarse description of the trailing price action.
type MarketStructure struct {
	Pattern        string  `json:"pattern,omitempty"` // "consolidation" | "volatile"
	HighVolatility bool    `json:"high_volatility"`
	NearResistance bool    `json:"near_resistance"`
	NearSupport    bool    `json:"near_support"`
	PriceRange     float64 `json:"price_range"`
}

// Entry directions.
const (
	EntrySell = -1
	EntryNone = 0
	EntryBuy  = 1
)

// Signal is the evaluated state of one candle index. It is produced for
// every index whether or not a signal fired.
type Signal struct {
	Index      int            `json:"index"`
	Candle     HACandle       `json:"candle"`
	Indicators IndicatorFrame `json:"indicators"`

	BuyPoints  int `json:"buy_points"`
	SellPoints int `json:"sell_points"`

	AlligatorBuy  bool `json:"alligator_buy"`
	AlligatorSell bool `json:"alligator_sell"`
	StochBuy      bool `json:"stoch_buy"`
	StochSell     bool `json:"stoch_sell"`
	VortexBuy     bool `json:"vortex_buy"`
	VortexSell    bool `json:"vortex_sell"`

	MouthWidth OptFloat `json:"mouth_width"`
	MouthOpen  bool     `json:"mouth_open"`

	BuySignalBase  bool `json:"buy_signal_base"`
	SellSignalBase bool `json:"sell_signal_base"`

	BreakoutChecked bool           `json:"breakout_checked"`
	Breakout        BreakoutResult `json:"breakout"`

	BuySignal   bool    `json:"buy_signal"`
	SellSignal  bool    `json:"sell_signal"`
	EntrySignal int     `json:"entry_signal"`
	Quality     float64 `json:"signal_quality"`

	Structure MarketStructure `json:"structure"`
}

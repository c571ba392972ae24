package model

import "time"

// Signal types as rendered in reports.
const (
	SignalTypeBuy  = "BUY"
	SignalTypeSell = "SELL"
)

// SignalView is the compact form of a fired signal consumed by the
// notification and orchestration layers.
type SignalView struct {
	TS           time.Time       `json:"ts"`
	Type         string          `json:"signal_type"`
	Price        float64         `json:"price"`
	Volume       float64         `json:"volume"`
	Quality      float64         `json:"quality"`
	BreakoutRank int             `json:"breakout_rank,omitempty"`
	Reason       BreakoutReason  `json:"breakout_reason"`
	BuyPoints    int             `json:"buy_points"`
	SellPoints   int             `json:"sell_points"`
	Indicators   IndicatorFrame  `json:"indicators"`
	Structure    MarketStructure `json:"structure"`
}

// Report summarises a pipeline run over one candle window.
type Report struct {
	Symbol         string       `json:"symbol"`
	GeneratedAt    time.Time    `json:"generated_at"`
	TotalCandles   int          `json:"total_candles"`
	TotalSignals   int          `json:"total_signals"`
	BuySignals     int          `json:"buy_signals"`
	SellSignals    int          `json:"sell_signals"`
	AverageQuality float64      `json:"average_quality"`
	Signals        []SignalView `json:"signals"`
	Latest         *SignalView  `json:"latest_signal"`
}

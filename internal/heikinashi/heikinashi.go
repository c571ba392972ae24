// Package heikinashi converts raw OHLCV candles into Heikin-Ashi candles.
package heikinashi

import (
	"math"

	"tripleconfirm/internal/model"
)

// MinCandles is the shortest window Convert accepts.
const MinCandles = 2

// Convert returns one Heikin-Ashi candle per input candle.
//
//	haClose[i] = (open+high+low+close)/4
//	haOpen[0]  = open[0]
//	haOpen[i]  = (haOpen[i-1] + haClose[i-1]) / 2
//	haHigh[i]  = max(high, haOpen, haClose)
//	haLow[i]   = min(low, haOpen, haClose)
//
// haOpen is a serial recurrence, so candles are processed strictly in order.
func Convert(candles []model.Candle) ([]model.HACandle, error) {
	if len(candles) < MinCandles {
		return nil, &model.InsufficientDataError{Stage: "heikin-ashi", Have: len(candles), Need: MinCandles}
	}
	if err := model.ValidateCandles(candles); err != nil {
		return nil, err
	}

	out := make([]model.HACandle, len(candles))
	var prevOpen, prevClose float64
	for i := range candles {
		c := &candles[i]
		haClose := (c.Open + c.High + c.Low + c.Close) / 4
		haOpen := c.Open
		if i > 0 {
			haOpen = (prevOpen + prevClose) / 2
		}
		ha := model.HACandle{
			TS:        c.TS,
			Open:      haOpen,
			High:      math.Max(c.High, math.Max(haOpen, haClose)),
			Low:       math.Min(c.Low, math.Min(haOpen, haClose)),
			Close:     haClose,
			Volume:    c.Volume,
			OrigOpen:  c.Open,
			OrigHigh:  c.High,
			OrigLow:   c.Low,
			OrigClose: c.Close,
		}
		if math.IsInf(haClose, 0) || math.IsNaN(haClose) || math.IsInf(haOpen, 0) || math.IsNaN(haOpen) {
			return nil, &model.MalformedInputError{Index: i, Field: "close", Reason: "heikin-ashi value overflowed"}
		}
		out[i] = ha
		prevOpen, prevClose = haOpen, haClose
	}
	return out, nil
}

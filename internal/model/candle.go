package model

import "time"

// Candle is one closed OHLCV bar of an instrument.
// Windows handed to the pipeline are ordered by strictly increasing TS.
type Candle struct {
	TS     time.Time `json:"ts"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// HACandle is a Heikin-Ashi candle. Open/High/Low/Close hold the transformed
// values; the Orig* fields keep the raw candle it was derived from.
type HACandle struct {
	TS        time.Time `json:"ts"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	OrigOpen  float64   `json:"orig_open"`
	OrigHigh  float64   `json:"orig_high"`
	OrigLow   float64   `json:"orig_low"`
	OrigClose float64   `json:"orig_close"`
}

// HAOpen, HAHigh, HALow and HAClose name the transformed OHLC values explicitly.
func (c *HACandle) HAOpen() float64  { return c.Open }
func (c *HACandle) HAHigh() float64  { return c.High }
func (c *HACandle) HALow() float64   { return c.Low }
func (c *HACandle) HAClose() float64 { return c.Close }

// Body returns the HA body size |close-open|.
func (c *HACandle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range returns high-low.
func (c *HACandle) Range() float64 { return c.High - c.Low }

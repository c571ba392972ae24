package model

import "math"

// ValidateCandles checks that every OHLCV field is finite and that
// timestamps strictly increase. Zero timestamps are accepted only when
// every candle in the window leaves TS unset (index-only windows).
func ValidateCandles(candles []Candle) error {
	stamped := len(candles) > 0 && !candles[0].TS.IsZero()
	for i := range candles {
		c := &candles[i]
		for _, f := range [...]struct {
			name string
			v    float64
		}{
			{"open", c.Open},
			{"high", c.High},
			{"low", c.Low},
			{"close", c.Close},
			{"volume", c.Volume},
		} {
			if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
				return &MalformedInputError{Index: i, Field: f.name, Reason: "not a finite number"}
			}
		}
		if c.TS.IsZero() == stamped {
			return &MalformedInputError{Index: i, Field: "ts", Reason: "timestamp set on some candles only"}
		}
		if stamped && i > 0 && !c.TS.After(candles[i-1].TS) {
			return &MalformedInputError{Index: i, Field: "ts", Reason: "timestamps must be strictly increasing"}
		}
	}
	return nil
}

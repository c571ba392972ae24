package signal

import (
	"tripleconfirm/internal/breakout"
	"tripleconfirm/internal/indicator"
)

// Config controls how a candle window is turned into signals.
type Config struct {
	// EnableBreakoutFilter suppresses confirmed signals whose trigger candle
	// is not a valid breakout bar.
	EnableBreakoutFilter bool
	// MinSignalQuality is the report threshold; Evaluate ignores it.
	MinSignalQuality float64
	// BreakoutLookback is the trailing window passed to breakout.Validate.
	BreakoutLookback int
	Params           indicator.Params
}

// DefaultConfig returns the standard configuration: breakout filter on,
// quality threshold 0.5, default indicator periods.
func DefaultConfig() Config {
	return Config{
		EnableBreakoutFilter: true,
		MinSignalQuality:     0.5,
		BreakoutLookback:     breakout.DefaultLookback,
		Params:               indicator.DefaultParams(),
	}
}

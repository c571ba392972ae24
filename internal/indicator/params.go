package indicator

import "fmt"

// Params holds the indicator periods. The defaults are the classic
// Alligator 13/8/5 shifted 8/5/3, Stochastic 14/3/3 and Vortex 14.
//
// Changing any period changes the numeric output and moves the warm-up, so
// signals produced with non-default Params are not comparable with the
// defaults.
type Params struct {
	JawPeriod   int
	TeethPeriod int
	LipsPeriod  int
	JawShift    int
	TeethShift  int
	LipsShift   int

	KPeriod int
	KSmooth int
	DSmooth int

	VortexPeriod int
	ATRPeriod    int

	// StructureLookback is the trailing window of DetectStructure.
	StructureLookback int
}

// DefaultParams returns the standard periods.
func DefaultParams() Params {
	return Params{
		JawPeriod:         13,
		TeethPeriod:       8,
		LipsPeriod:        5,
		JawShift:          8,
		TeethShift:        5,
		LipsShift:         3,
		KPeriod:           14,
		KSmooth:           3,
		DSmooth:           3,
		VortexPeriod:      14,
		ATRPeriod:         14,
		StructureLookback: 20,
	}
}

// Validate rejects non-positive periods and negative shifts.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"jaw period", p.JawPeriod},
		{"teeth period", p.TeethPeriod},
		{"lips period", p.LipsPeriod},
		{"stochastic k period", p.KPeriod},
		{"stochastic k smoothing", p.KSmooth},
		{"stochastic d smoothing", p.DSmooth},
		{"vortex period", p.VortexPeriod},
		{"atr period", p.ATRPeriod},
		{"structure lookback", p.StructureLookback},
	} {
		if f.v < 1 {
			return fmt.Errorf("indicator params: %s must be >= 1, got %d", f.name, f.v)
		}
	}
	if p.JawShift < 0 || p.TeethShift < 0 || p.LipsShift < 0 {
		return fmt.Errorf("indicator params: alligator shifts must be >= 0, got %d/%d/%d",
			p.JawShift, p.TeethShift, p.LipsShift)
	}
	return nil
}

// StochWarmup is the first index at which both %K and %D can be valid.
func (p Params) StochWarmup() int {
	return p.KPeriod + p.KSmooth + p.DSmooth - 3
}

// MinCandles is the shortest window the signal pipeline accepts: the
// stochastic warm-up plus room for a previous/current crossover pair.
func (p Params) MinCandles() int {
	return p.StochWarmup() + 3
}

// Package signal merges the indicator series into per-candle signals.
//
// Each indicator votes independently for a bullish or bearish crossover at
// every index. A base signal needs all three votes; the breakout filter
// then gates it, and fired signals get a quality score.
package signal

import (
	"fmt"
	"math"

	"tripleconfirm/internal/breakout"
	"tripleconfirm/internal/indicator"
	"tripleconfirm/internal/model"
)

const (
	// RequiredPoints is the number of agreeing indicators for a base signal.
	RequiredPoints = 3

	mouthOpenRatio = 0.005
	stochHigh      = 80.0
	stochLow       = 20.0

	qualityBase     = 0.3
	qualityMouth    = 0.3
	qualityBreakout = 0.4
)

// Aggregator evaluates indicator frames. It holds no state between calls
// and is safe for concurrent use.
type Aggregator struct {
	Config Config
}

// NewAggregator creates an aggregator with the given config.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{Config: cfg}
}

// Evaluate produces one Signal per candle. frames must be index-aligned
// with ha.
func (a *Aggregator) Evaluate(ha []model.HACandle, frames []model.IndicatorFrame) ([]model.Signal, error) {
	if len(frames) != len(ha) {
		return nil, fmt.Errorf("signal: %d indicator frames for %d candles", len(frames), len(ha))
	}

	out := make([]model.Signal, len(ha))
	for i := range ha {
		s := &out[i]
		s.Index = i
		s.Candle = ha[i]
		s.Indicators = frames[i]
		s.Structure = indicator.DetectStructure(ha, i, a.Config.Params.StructureLookback)

		cur := &frames[i]
		if cur.Lips.Valid && cur.Jaw.Valid {
			width := math.Abs(cur.Lips.Value - cur.Jaw.Value)
			s.MouthWidth = model.Some(width)
			s.MouthOpen = width > mouthOpenRatio*ha[i].Close
		}
		if i == 0 {
			continue
		}

		prev := &frames[i-1]
		s.AlligatorBuy, s.AlligatorSell = alligatorCross(prev, cur, s.MouthOpen)
		s.StochBuy, s.StochSell = stochCross(prev, cur)
		s.VortexBuy, s.VortexSell = vortexCross(prev, cur)
		s.BuyPoints = points(s.AlligatorBuy, s.StochBuy, s.VortexBuy)
		s.SellPoints = points(s.AlligatorSell, s.StochSell, s.VortexSell)
		s.BuySignalBase = s.BuyPoints == RequiredPoints
		s.SellSignalBase = s.SellPoints == RequiredPoints

		if !s.BuySignalBase && !s.SellSignalBase {
			continue
		}

		passed := true
		if a.Config.EnableBreakoutFilter {
			s.BreakoutChecked = true
			s.Breakout = breakout.Validate(ha, i, a.Config.BreakoutLookback)
			passed = s.Breakout.Valid
		}
		if !passed {
			continue
		}

		s.BuySignal = s.BuySignalBase
		s.SellSignal = s.SellSignalBase
		switch {
		case s.BuySignal:
			s.EntrySignal = model.EntryBuy
		case s.SellSignal:
			s.EntrySignal = model.EntrySell
		}
		s.Quality = a.quality(s)
	}
	return out, nil
}

// quality scores a fired signal as
//
//	0.3 + 0.3*mouthOpen + 0.4*rank/3
//
// with rank 0 when the breakout filter is disabled. Rank 1 is the largest
// body, so a stronger breakout contributes less than rank 3.
func (a *Aggregator) quality(s *model.Signal) float64 {
	q := qualityBase
	if s.MouthOpen {
		q += qualityMouth
	}
	if a.Config.EnableBreakoutFilter {
		q += qualityBreakout * float64(s.Breakout.Rank) / 3
	}
	return math.Min(q, 1)
}

func alligatorCross(prev, cur *model.IndicatorFrame, mouthOpen bool) (buy, sell bool) {
	if !mouthOpen || !allValid(prev.Lips, prev.Teeth, cur.Lips, cur.Teeth, cur.Jaw) {
		return false, false
	}
	pl, pt := prev.Lips.Value, prev.Teeth.Value
	l, t, j := cur.Lips.Value, cur.Teeth.Value, cur.Jaw.Value
	buy = pl <= pt && l > t && l > j
	sell = pl >= pt && l < t && l < j
	return buy, sell
}

func stochCross(prev, cur *model.IndicatorFrame) (buy, sell bool) {
	if !allValid(prev.K, prev.D, cur.K, cur.D) {
		return false, false
	}
	pk, pd := prev.K.Value, prev.D.Value
	k, d := cur.K.Value, cur.D.Value
	buy = pk <= pd && k > d && k > stochHigh && d > stochHigh
	sell = pk >= pd && k < d && k < stochLow && d < stochLow
	return buy, sell
}

func vortexCross(prev, cur *model.IndicatorFrame) (buy, sell bool) {
	if !allValid(prev.VIPlus, prev.VIMinus, cur.VIPlus, cur.VIMinus) {
		return false, false
	}
	pp, pm := prev.VIPlus.Value, prev.VIMinus.Value
	p, m := cur.VIPlus.Value, cur.VIMinus.Value
	buy = pp <= pm && p > m
	sell = pm <= pp && m > p
	return buy, sell
}

func allValid(vals ...model.OptFloat) bool {
	for _, v := range vals {
		if !v.Valid {
			return false
		}
	}
	return true
}

func points(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

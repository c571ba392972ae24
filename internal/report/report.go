// Package report filters evaluated signals down to actionable entries.
package report

import "tripleconfirm/internal/model"

// DefaultMinQuality is the quality threshold used when none is configured.
const DefaultMinQuality = 0.5

// Build keeps the signals with a non-zero entry and quality >= minQuality
// and summarises them. GeneratedAt is left for the caller to stamp so the
// result stays a pure function of its input.
func Build(symbol string, signals []model.Signal, minQuality float64) model.Report {
	rep := model.Report{
		Symbol:       symbol,
		TotalCandles: len(signals),
		Signals:      []model.SignalView{},
	}

	var qualitySum float64
	for i := range signals {
		s := &signals[i]
		if s.EntrySignal == model.EntryNone || s.Quality < minQuality {
			continue
		}
		v := View(s)
		if v.Type == model.SignalTypeBuy {
			rep.BuySignals++
		} else {
			rep.SellSignals++
		}
		qualitySum += v.Quality
		rep.Signals = append(rep.Signals, v)
	}

	rep.TotalSignals = len(rep.Signals)
	if rep.TotalSignals > 0 {
		rep.AverageQuality = qualitySum / float64(rep.TotalSignals)
		latest := rep.Signals[rep.TotalSignals-1]
		rep.Latest = &latest
	}
	return rep
}

// View converts a fired signal into its compact report form. Price is the
// Heikin-Ashi close.
func View(s *model.Signal) model.SignalView {
	typ := model.SignalTypeBuy
	if s.EntrySignal == model.EntrySell {
		typ = model.SignalTypeSell
	}
	return model.SignalView{
		TS:           s.Candle.TS,
		Type:         typ,
		Price:        s.Candle.Close,
		Volume:       s.Candle.Volume,
		Quality:      s.Quality,
		BreakoutRank: s.Breakout.Rank,
		Reason:       s.Breakout.Reason,
		BuyPoints:    s.BuyPoints,
		SellPoints:   s.SellPoints,
		Indicators:   s.Indicators,
		Structure:    s.Structure,
	}
}

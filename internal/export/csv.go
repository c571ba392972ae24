package export

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"tripleconfirm/internal/model"
)

// CSVExporter writes one header line and one line per signal.
type CSVExporter struct{}

var csvHeader = []string{
	"symbol", "timestamp", "signal_type", "price", "volume", "quality",
	"breakout_rank", "breakout_reason", "buy_points", "sell_points",
	"jaw", "teeth", "lips", "stoch_k", "stoch_d", "vi_plus", "vi_minus", "atr",
	"pattern", "high_volatility", "near_resistance", "near_support", "price_range",
}

func (CSVExporter) Extension() string { return "csv" }

func (CSVExporter) Export(path string, symbol string, views []model.SignalView) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Rows(symbol, views) {
		if err := w.Write([]string{
			r.Symbol,
			time.UnixMilli(r.TS).UTC().Format(time.RFC3339),
			r.SignalType,
			floatStr(r.Price),
			floatStr(r.Volume),
			floatStr(r.Quality),
			strconv.Itoa(int(r.BreakoutRank)),
			r.BreakoutReason,
			strconv.Itoa(int(r.BuyPoints)),
			strconv.Itoa(int(r.SellPoints)),
			optStr(r.Jaw),
			optStr(r.Teeth),
			optStr(r.Lips),
			optStr(r.K),
			optStr(r.D),
			optStr(r.VIPlus),
			optStr(r.VIMinus),
			optStr(r.ATR),
			r.Pattern,
			strconv.FormatBool(r.HighVolatility),
			strconv.FormatBool(r.NearResistance),
			strconv.FormatBool(r.NearSupport),
			floatStr(r.PriceRange),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// optStr renders an unavailable reading as an empty cell.
func optStr(p *float64) string {
	if p == nil {
		return ""
	}
	return floatStr(*p)
}

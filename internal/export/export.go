// Package export writes signal views to files (CSV or Parquet).
package export

import (
	"fmt"
	"strings"

	"tripleconfirm/internal/model"
)

// Exporter writes a batch of signal views to path.
type Exporter interface {
	Extension() string
	Export(path string, symbol string, views []model.SignalView) error
}

// New returns the exporter for format (csv, parquet).
func New(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}, nil
	case "parquet":
		return ParquetExporter{}, nil
	default:
		return nil, fmt.Errorf("export: unsupported format %q (use: csv, parquet)", format)
	}
}

// Row is the flat, file-friendly form of a signal view. Unavailable
// indicator readings are nil.
type Row struct {
	Symbol         string   `parquet:"symbol"`
	TS             int64    `parquet:"ts"`
	SignalType     string   `parquet:"signal_type"`
	Price          float64  `parquet:"price"`
	Volume         float64  `parquet:"volume"`
	Quality        float64  `parquet:"quality"`
	BreakoutRank   int32    `parquet:"breakout_rank"`
	BreakoutReason string   `parquet:"breakout_reason"`
	BuyPoints      int32    `parquet:"buy_points"`
	SellPoints     int32    `parquet:"sell_points"`
	Jaw            *float64 `parquet:"jaw,optional"`
	Teeth          *float64 `parquet:"teeth,optional"`
	Lips           *float64 `parquet:"lips,optional"`
	K              *float64 `parquet:"stoch_k,optional"`
	D              *float64 `parquet:"stoch_d,optional"`
	VIPlus         *float64 `parquet:"vi_plus,optional"`
	VIMinus        *float64 `parquet:"vi_minus,optional"`
	ATR            *float64 `parquet:"atr,optional"`
	Pattern        string   `parquet:"pattern"`
	HighVolatility bool     `parquet:"high_volatility"`
	NearResistance bool     `parquet:"near_resistance"`
	NearSupport    bool     `parquet:"near_support"`
	PriceRange     float64  `parquet:"price_range"`
}

// Rows flattens views for symbol.
func Rows(symbol string, views []model.SignalView) []Row {
	rows := make([]Row, len(views))
	for i := range views {
		v := &views[i]
		rows[i] = Row{
			Symbol:         symbol,
			TS:             v.TS.UnixMilli(),
			SignalType:     v.Type,
			Price:          v.Price,
			Volume:         v.Volume,
			Quality:        v.Quality,
			BreakoutRank:   int32(v.BreakoutRank),
			BreakoutReason: v.Reason.String(),
			BuyPoints:      int32(v.BuyPoints),
			SellPoints:     int32(v.SellPoints),
			Jaw:            v.Indicators.Jaw.Ptr(),
			Teeth:          v.Indicators.Teeth.Ptr(),
			Lips:           v.Indicators.Lips.Ptr(),
			K:              v.Indicators.K.Ptr(),
			D:              v.Indicators.D.Ptr(),
			VIPlus:         v.Indicators.VIPlus.Ptr(),
			VIMinus:        v.Indicators.VIMinus.Ptr(),
			ATR:            v.Indicators.ATR.Ptr(),
			Pattern:        v.Structure.Pattern,
			HighVolatility: v.Structure.HighVolatility,
			NearResistance: v.Structure.NearResistance,
			NearSupport:    v.Structure.NearSupport,
			PriceRange:     v.Structure.PriceRange,
		}
	}
	return rows
}

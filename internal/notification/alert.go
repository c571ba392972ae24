package notification

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tripleconfirm/internal/model"
)

// HighQuality is the quality at which an alert is raised to AlertWarning.
const HighQuality = 0.8

// FromSignal formats a fired signal as an alert.
func FromSignal(symbol string, v model.SignalView) Alert {
	level := AlertInfo
	if v.Quality >= HighQuality {
		level = AlertWarning
	}

	price := decimal.NewFromFloat(v.Price).StringFixed(2)
	title := fmt.Sprintf("%s %s @ %s", v.Type, symbol, price)

	var b strings.Builder
	fmt.Fprintf(&b, "quality %s", decimal.NewFromFloat(v.Quality).StringFixed(2))
	points := v.BuyPoints
	if v.Type == model.SignalTypeSell {
		points = v.SellPoints
	}
	fmt.Fprintf(&b, ", points %d/3", points)
	if v.BreakoutRank > 0 {
		fmt.Fprintf(&b, ", breakout rank %d (%s)", v.BreakoutRank, v.Reason)
	}
	if atr := v.Indicators.ATR; atr.Valid {
		fmt.Fprintf(&b, ", ATR %s", decimal.NewFromFloat(atr.Value).StringFixed(2))
	}
	if v.Structure.Pattern != "" {
		fmt.Fprintf(&b, ", %s", v.Structure.Pattern)
	}
	if !v.TS.IsZero() {
		fmt.Fprintf(&b, ", candle %s", v.TS.UTC().Format("2006-01-02 15:04 MST"))
	}

	view := v
	return Alert{
		Level:   level,
		Symbol:  symbol,
		Title:   title,
		Message: b.String(),
		Signal:  &view,
	}
}

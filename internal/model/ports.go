package model

import (
	"context"
	"time"
)

// ── Ports ──
// These interfaces decouple the scanner from concrete transports and stores
// (Binance, Angel One, CSV files, Redis, SQLite).

// FetchRequest describes the candle window to fetch for a symbol.
type FetchRequest struct {
	Symbol   string
	Interval string // provider interval, e.g. "1h", "ONE_HOUR"
	Limit    int    // number of most recent closed candles
	End      time.Time
}

// CandleSource fetches closed candle windows from a market data provider.
type CandleSource interface {
	// Name returns the provider name, e.g. "binance".
	Name() string

	// Fetch returns candles ordered by ascending timestamp.
	Fetch(ctx context.Context, req FetchRequest) ([]Candle, error)
}

// ReportCache stores the latest report per symbol.
type ReportCache interface {
	SaveReport(ctx context.Context, rep Report) error

	// LatestReport returns nil, nil when no report is cached for symbol.
	LatestReport(ctx context.Context, symbol string) (*Report, error)

	// PublishSignal announces a newly fired signal.
	PublishSignal(ctx context.Context, symbol string, view SignalView) error

	Close() error
}

// SignalJournal records fired signals for audit and export.
type SignalJournal interface {
	// Record inserts views, ignoring ones already journaled for (symbol, ts).
	// Returns the number of new rows.
	Record(ctx context.Context, symbol string, views []SignalView) (int, error)

	// Recent returns up to limit journaled views, newest first.
	Recent(ctx context.Context, symbol string, limit int) ([]SignalView, error)

	Close() error
}

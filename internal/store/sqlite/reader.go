package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripleconfirm/internal/model"
)

// Recent returns up to limit journaled signals for symbol, newest first.
func (j *Journal) Recent(ctx context.Context, symbol string, limit int) ([]model.SignalView, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT ts, signal_type, price, volume, quality, breakout_rank, breakout_reason,
			buy_points, sell_points, indicators, structure
		FROM signals
		WHERE symbol = ?
		ORDER BY ts DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	views := []model.SignalView{}
	for rows.Next() {
		var (
			v        model.SignalView
			tsMillis int64
			reason   string
			ind, st  string
		)
		if err := rows.Scan(&tsMillis, &v.Type, &v.Price, &v.Volume, &v.Quality, &v.BreakoutRank, &reason,
			&v.BuyPoints, &v.SellPoints, &ind, &st); err != nil {
			return nil, fmt.Errorf("sqlite scan signals: %w", err)
		}
		v.TS = time.UnixMilli(tsMillis).UTC()
		if reason != "" {
			if err := v.Reason.UnmarshalJSON([]byte(`"` + reason + `"`)); err != nil {
				return nil, fmt.Errorf("sqlite decode reason: %w", err)
			}
		}
		if err := json.Unmarshal([]byte(ind), &v.Indicators); err != nil {
			return nil, fmt.Errorf("sqlite decode indicators: %w", err)
		}
		if err := json.Unmarshal([]byte(st), &v.Structure); err != nil {
			return nil, fmt.Errorf("sqlite decode structure: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// Symbols lists every symbol with at least one journaled signal.
func (j *Journal) Symbols(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT symbol FROM signals ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tripleconfirm/internal/model"
)

// Journal records every reported signal once per (symbol, ts). It
// implements model.SignalJournal.
type Journal struct {
	db *sql.DB
}

var _ model.SignalJournal = (*Journal)(nil)

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Open opens (or creates) the journal database with WAL mode and schema.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	slog.Info("sqlite journal opened", "path", dbPath)
	return &Journal{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			symbol          TEXT    NOT NULL,
			ts              INTEGER NOT NULL,
			signal_type     TEXT    NOT NULL,
			price           REAL    NOT NULL,
			volume          REAL,
			quality         REAL    NOT NULL,
			breakout_rank   INTEGER,
			breakout_reason TEXT,
			buy_points      INTEGER,
			sell_points     INTEGER,
			indicators      TEXT,
			structure       TEXT,
			recorded_at     INTEGER NOT NULL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE INDEX IF NOT EXISTS idx_signals_recorded ON signals (recorded_at);
	`)
	return err
}

// Record inserts views in a single transaction and returns how many were
// new. Views already journaled for the same (symbol, ts) are ignored, as are
// views without a timestamp.
func (j *Journal) Record(ctx context.Context, symbol string, views []model.SignalView) (int, error) {
	if len(views) == 0 {
		return 0, nil
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO signals (symbol, ts, signal_type, price, volume, quality,
			breakout_rank, breakout_reason, buy_points, sell_points, indicators, structure, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	inserted := 0
	for i := range views {
		v := &views[i]
		if v.TS.IsZero() {
			continue
		}
		ind, err := json.Marshal(v.Indicators)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("marshal indicators: %w", err)
		}
		st, err := json.Marshal(v.Structure)
		if err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("marshal structure: %w", err)
		}
		res, err := stmt.ExecContext(ctx, symbol, v.TS.UnixMilli(), v.Type, v.Price, v.Volume, v.Quality,
			v.BreakoutRank, v.Reason.String(), v.BuyPoints, v.SellPoints, string(ind), string(st), now)
		if err != nil {
			tx.Rollback()
			return 0, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

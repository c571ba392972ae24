// Package angel fetches historical candles from Angel One SmartAPI.
// Symbols are written EXCHANGE:TOKEN (e.g. NSE:3045); a bare token means NSE.
package angel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"tripleconfirm/internal/model"
	"tripleconfirm/pkg/smartconnect"
)

// Config carries the SmartAPI credentials.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
	RootURL    string // optional override
}

// Source implements model.CandleSource. It logs in lazily on first use.
type Source struct {
	cfg Config
	now func() time.Time

	mu sync.Mutex
	sc *smartconnect.SmartConnect
}

// New creates an Angel One source.
func New(cfg Config) *Source {
	return &Source{cfg: cfg, now: time.Now}
}

func (s *Source) Name() string { return "angel" }

var intervals = map[string]string{
	"1m":  "ONE_MINUTE",
	"3m":  "THREE_MINUTE",
	"5m":  "FIVE_MINUTE",
	"10m": "TEN_MINUTE",
	"15m": "FIFTEEN_MINUTE",
	"30m": "THIRTY_MINUTE",
	"1h":  "ONE_HOUR",
	"1d":  "ONE_DAY",
}

var intervalStep = map[string]time.Duration{
	"ONE_MINUTE":     time.Minute,
	"THREE_MINUTE":   3 * time.Minute,
	"FIVE_MINUTE":    5 * time.Minute,
	"TEN_MINUTE":     10 * time.Minute,
	"FIFTEEN_MINUTE": 15 * time.Minute,
	"THIRTY_MINUTE":  30 * time.Minute,
	"ONE_HOUR":       time.Hour,
	"ONE_DAY":        24 * time.Hour,
}

// Interval maps "1h"-style intervals to SmartAPI names; SmartAPI names pass through.
func Interval(interval string) (string, error) {
	if v, ok := intervals[strings.ToLower(interval)]; ok {
		return v, nil
	}
	up := strings.ToUpper(interval)
	if _, ok := intervalStep[up]; ok {
		return up, nil
	}
	return "", fmt.Errorf("angel: unsupported interval %q", interval)
}

// ParseSymbol splits EXCHANGE:TOKEN.
func ParseSymbol(symbol string) (exchange, token string) {
	if ex, tok, ok := strings.Cut(symbol, ":"); ok {
		return strings.ToUpper(ex), tok
	}
	return "NSE", symbol
}

// lookbackFactor widens the calendar range so that enough session candles
// fall inside it across nights and weekends.
const lookbackFactor = 6

func (s *Source) session(ctx context.Context) (*smartconnect.SmartConnect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sc != nil && s.sc.LoggedIn() {
		return s.sc, nil
	}

	code, err := totp.GenerateCode(s.cfg.TOTPSecret, s.now())
	if err != nil {
		return nil, fmt.Errorf("angel: totp: %w", err)
	}
	sc := smartconnect.NewSmartConnect(smartconnect.Config{APIKey: s.cfg.APIKey, RootURL: s.cfg.RootURL})
	if _, err := sc.GenerateSession(ctx, s.cfg.ClientCode, s.cfg.Password, code); err != nil {
		return nil, fmt.Errorf("angel: login: %w", err)
	}
	s.sc = sc
	return sc, nil
}

// Fetch downloads the last req.Limit closed candles up to req.End (or now).
func (s *Source) Fetch(ctx context.Context, req model.FetchRequest) ([]model.Candle, error) {
	iv, err := Interval(req.Interval)
	if err != nil {
		return nil, err
	}
	sc, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	end := req.End
	if end.IsZero() {
		end = s.now()
	}
	step := intervalStep[iv]
	span := time.Duration(req.Limit) * step
	if iv != "ONE_DAY" {
		span *= lookbackFactor
	} else {
		span = span * 3 / 2
	}

	exchange, token := ParseSymbol(req.Symbol)
	rows, err := sc.GetCandleData(ctx, smartconnect.CandleRequest{
		Exchange:    exchange,
		SymbolToken: token,
		Interval:    iv,
		From:        end.Add(-span),
		To:          end,
	})
	if err != nil {
		// Drop the session so the next scan logs in again.
		s.mu.Lock()
		s.sc = nil
		s.mu.Unlock()
		return nil, fmt.Errorf("angel candles %s: %w", req.Symbol, err)
	}

	candles := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		// The candle starting at r.TS is still forming until r.TS+step.
		if r.TS.Add(step).After(end) {
			continue
		}
		candles = append(candles, model.Candle{TS: r.TS, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume})
	}
	if req.Limit > 0 && len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}
	slog.Debug("angel candles fetched", "symbol", req.Symbol, "interval", iv, "count", len(candles))
	return candles, nil
}

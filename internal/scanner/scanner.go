// Package scanner runs the signal pipeline over a list of symbols on a
// schedule and hands the results to the cache, journal, notifiers and
// WebSocket subscribers.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tripleconfirm/internal/logger"
	"tripleconfirm/internal/markethours"
	"tripleconfirm/internal/metrics"
	"tripleconfirm/internal/model"
	"tripleconfirm/internal/notification"
	"tripleconfirm/internal/signal"
)

// Config controls what is scanned and how often.
type Config struct {
	Symbols      []string
	Interval     string
	CandleLimit  int
	ScanInterval time.Duration
	Concurrency  int
	// Session gates Run; nil scans around the clock.
	Session *markethours.Session
	Signal  signal.Config
}

// Deps are the scanner's collaborators. Only Source and Metrics are
// required.
type Deps struct {
	Source    model.CandleSource
	Cache     model.ReportCache
	Journal   model.SignalJournal
	Notifier  notification.Notifier
	Broadcast func(symbol string, v model.SignalView)
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
}

// Result is the outcome of scanning one symbol.
type Result struct {
	Symbol    string        `json:"symbol"`
	RunID     string        `json:"run_id"`
	Report    *model.Report `json:"report,omitempty"`
	Error     string        `json:"error,omitempty"`
	NewViews  int           `json:"new_signals"`
	Duration  time.Duration `json:"duration_ns"`
	ScannedAt time.Time     `json:"scanned_at"`

	err error
}

// Err returns the fetch or pipeline error, if any.
func (r *Result) Err() error { return r.err }

// Scanner fans pipeline runs out across symbols.
type Scanner struct {
	cfg      Config
	deps     Deps
	pipeline *signal.Pipeline
	now      func() time.Time

	mu sync.Mutex
	// lastSeen holds the newest signal TS handed downstream per symbol.
	lastSeen map[string]time.Time
	results  map[string]Result
}

// New validates cfg and creates a scanner.
func New(cfg Config, deps Deps) (*Scanner, error) {
	if deps.Source == nil {
		return nil, errors.New("scanner: no candle source")
	}
	if deps.Metrics == nil {
		return nil, errors.New("scanner: no metrics")
	}
	if err := cfg.Signal.Params.Validate(); err != nil {
		return nil, fmt.Errorf("scanner: %w", err)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}
	if need := cfg.Signal.Params.MinCandles(); cfg.CandleLimit < need {
		slog.Warn("candle limit below pipeline minimum, raising it", "limit", cfg.CandleLimit, "min", need)
		cfg.CandleLimit = need
	}
	return &Scanner{
		cfg:      cfg,
		deps:     deps,
		pipeline: signal.NewPipeline(cfg.Signal),
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
		results:  make(map[string]Result),
	}, nil
}

// Config returns the effective configuration.
func (s *Scanner) Config() Config { return s.cfg }

// Source returns the candle source.
func (s *Scanner) Source() model.CandleSource { return s.deps.Source }

// Fetch loads a candle window for symbol, recording fetch metrics.
func (s *Scanner) Fetch(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	if interval == "" {
		interval = s.cfg.Interval
	}
	if limit <= 0 {
		limit = s.cfg.CandleLimit
	}
	provider := s.deps.Source.Name()
	start := time.Now()
	candles, err := s.deps.Source.Fetch(ctx, model.FetchRequest{Symbol: symbol, Interval: interval, Limit: limit})
	s.deps.Metrics.FetchDur.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		s.deps.Metrics.FetchErrors.WithLabelValues(provider).Inc()
		return nil, err
	}
	return candles, nil
}

// Analyze runs p (the scanner's pipeline when nil) over candles and records
// pipeline metrics.
func (s *Scanner) Analyze(p *signal.Pipeline, symbol string, candles []model.Candle) (model.Report, error) {
	if p == nil {
		p = s.pipeline
	}
	start := time.Now()
	rep, err := p.Analyze(symbol, candles)
	s.deps.Metrics.PipelineDur.Observe(time.Since(start).Seconds())
	s.deps.Metrics.PipelineRuns.WithLabelValues(resultLabel(err)).Inc()
	return rep, err
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, model.ErrInsufficientData):
		return metrics.ResultInsufficient
	case errors.Is(err, model.ErrMalformedInput):
		return metrics.ResultMalformed
	default:
		return metrics.ResultFetchError
	}
}

// ScanOnce scans symbols concurrently (bounded by Concurrency) and then
// dispatches every successful report. Per-symbol failures are reported in
// the results and never abort the other symbols.
func (s *Scanner) ScanOnce(ctx context.Context, symbols []string) []Result {
	start := time.Now()
	results := make([]Result, len(symbols))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, sym := range symbols {
		g.Go(func() error {
			results[i] = s.scanSymbol(ctx, sym)
			return nil
		})
	}
	g.Wait()

	failed := 0
	for i := range results {
		r := &results[i]
		if r.err != nil {
			failed++
			continue
		}
		r.NewViews = s.dispatch(logger.WithTraceID(ctx, r.RunID), r.Report)
	}

	s.mu.Lock()
	for _, r := range results {
		s.results[r.Symbol] = r
	}
	s.mu.Unlock()

	m := s.deps.Metrics
	m.ScanDur.Observe(time.Since(start).Seconds())
	m.LastScanUnix.Set(float64(s.now().Unix()))
	if s.deps.Health != nil {
		s.deps.Health.RecordScan(s.now(), failed)
	}
	slog.Info("scan complete", "symbols", len(symbols), "failed", failed, "took", time.Since(start).String())
	return results
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string) Result {
	runID := logger.NewRunID(symbol)
	ctx = logger.WithTraceID(ctx, runID)
	start := time.Now()
	res := Result{Symbol: symbol, RunID: runID, ScannedAt: s.now().UTC()}
	defer s.deps.Metrics.SymbolsScanned.Inc()

	candles, err := s.Fetch(ctx, symbol, "", 0)
	if err != nil {
		s.deps.Metrics.PipelineRuns.WithLabelValues(metrics.ResultFetchError).Inc()
		res.err = fmt.Errorf("fetch %s: %w", symbol, err)
	} else {
		rep, aerr := s.Analyze(nil, symbol, candles)
		if aerr != nil {
			res.err = aerr
		} else {
			res.Report = &rep
		}
	}
	res.Duration = time.Since(start)

	if res.err != nil {
		res.Error = res.err.Error()
		slog.WarnContext(ctx, "scan failed", append(logger.LogWithTrace(ctx), "symbol", symbol, "error", res.err)...)
		return res
	}
	slog.DebugContext(ctx, "scanned", append(logger.LogWithTrace(ctx),
		"symbol", symbol, "candles", res.Report.TotalCandles, "signals", res.Report.TotalSignals)...)
	return res
}

// newViews returns the views not yet dispatched for symbol. The first
// time a symbol is seen only its latest signal counts as new.
func (s *Scanner) newViews(symbol string, rep *model.Report) []model.SignalView {
	if rep.Latest == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mark, seen := s.lastSeen[symbol]
	s.lastSeen[symbol] = rep.Latest.TS
	if !seen {
		return []model.SignalView{*rep.Latest}
	}
	var out []model.SignalView
	for _, v := range rep.Signals {
		if v.TS.After(mark) {
			out = append(out, v)
		}
	}
	return out
}

// dispatch caches the report, journals its signals and announces the new
// ones. It returns the number of new signals.
func (s *Scanner) dispatch(ctx context.Context, rep *model.Report) int {
	symbol := rep.Symbol
	attrs := append(logger.LogWithTrace(ctx), "symbol", symbol)

	if s.deps.Cache != nil {
		if err := s.deps.Cache.SaveReport(ctx, *rep); err != nil {
			slog.WarnContext(ctx, "cache report failed", append(attrs, "error", err)...)
		}
	}

	if s.deps.Journal != nil && len(rep.Signals) > 0 {
		start := time.Now()
		n, err := s.deps.Journal.Record(ctx, symbol, rep.Signals)
		s.deps.Metrics.JournalWriteDur.Observe(time.Since(start).Seconds())
		if err != nil {
			slog.WarnContext(ctx, "journal write failed", append(attrs, "error", err)...)
		} else if n > 0 {
			slog.DebugContext(ctx, "journaled signals", append(attrs, "count", n)...)
		}
	}

	fresh := s.newViews(symbol, rep)
	for _, v := range fresh {
		s.deps.Metrics.SignalsTotal.WithLabelValues(v.Type).Inc()
		if s.deps.Cache != nil {
			if err := s.deps.Cache.PublishSignal(ctx, symbol, v); err != nil {
				slog.WarnContext(ctx, "publish signal failed", append(attrs, "error", err)...)
			}
		}
		if s.deps.Broadcast != nil {
			s.deps.Broadcast(symbol, v)
		}
		slog.InfoContext(ctx, "new signal", append(attrs, "type", v.Type, "ts", v.TS, "price", v.Price, "quality", v.Quality)...)
	}

	if len(fresh) > 0 && s.deps.Notifier != nil {
		last := fresh[len(fresh)-1]
		if err := s.deps.Notifier.Send(ctx, notification.FromSignal(symbol, last)); err != nil {
			s.deps.Metrics.NotifyErrors.Inc()
			slog.WarnContext(ctx, "notify failed", append(attrs, "error", err)...)
		}
	}
	return len(fresh)
}

// Results returns the last scan result per symbol.
func (s *Scanner) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, 0, len(s.results))
	for _, sym := range s.cfg.Symbols {
		if r, ok := s.results[sym]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Run scans cfg.Symbols every ScanInterval until ctx is cancelled. With a
// Session set, it sleeps through closed hours until the next open.
func (s *Scanner) Run(ctx context.Context) error {
	slog.Info("scanner started", "symbols", s.cfg.Symbols, "interval", s.cfg.Interval,
		"every", s.cfg.ScanInterval.String(), "provider", s.deps.Source.Name())

	for {
		if sess := s.cfg.Session; sess != nil && !sess.IsOpen(s.now()) {
			s.deps.Metrics.MarketState.Set(0)
			wait := sess.TimeUntilOpen(s.now())
			slog.Info("market closed, waiting", "status", sess.StatusString(s.now()), "wait", wait.String())
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		s.deps.Metrics.MarketState.Set(1)

		s.ScanOnce(ctx, s.cfg.Symbols)

		if !sleep(ctx, s.cfg.ScanInterval) {
			return ctx.Err()
		}
	}
}

// sleep waits d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

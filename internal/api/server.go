// Package api serves the HTTP and WebSocket interface of the signal engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tripleconfirm/internal/export"
	"tripleconfirm/internal/marketdata"
	"tripleconfirm/internal/metrics"
	"tripleconfirm/internal/model"
	"tripleconfirm/internal/scanner"
	"tripleconfirm/internal/signal"
)

const maxBodyBytes = 8 << 20

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// Options wires the server to the rest of the engine. Scanner is required;
// Cache, Journal, and Hub may be nil.
type Options struct {
	Scanner      *scanner.Scanner
	Cache        model.ReportCache
	Journal      model.SignalJournal
	Health       *metrics.HealthStatus
	Hub          *Hub
	Providers    func() []marketdata.ProviderInfo
	ExportDir    string
	ExportFormat string
}

// Server is the engine's REST + WebSocket front end.
type Server struct {
	opts    Options
	started time.Time
	addr    string
	srv     *http.Server
}

// NewServer creates an API server listening on addr.
func NewServer(addr string, opts Options) *Server {
	if opts.ExportFormat == "" {
		opts.ExportFormat = "csv"
	}
	s := &Server{opts: opts, started: time.Now(), addr: addr}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /export", s.handleExport)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("GET /reports/{symbol}", s.handleReport)
	mux.HandleFunc("GET /signals/{symbol}", s.handleSignals)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("OPTIONS /", func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("api server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("api server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the API server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

// ── REST ──

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}
	rep, err := s.analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readRequest(w, r)
	if !ok {
		return
	}
	format := req.Format
	if format == "" {
		format = s.opts.ExportFormat
	}
	exp, err := export.New(format)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rep, err := s.analyze(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	dir := s.opts.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	name := fmt.Sprintf("%s_%s.%s", fileSafe(rep.Symbol), time.Now().UTC().Format("20060102T150405Z"), exp.Extension())
	path := filepath.Join(dir, name)
	if err := exp.Export(path, rep.Symbol, rep.Signals); err != nil {
		slog.Error("export failed", "path", path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	slog.Info("signals exported", "symbol", rep.Symbol, "path", path, "rows", len(rep.Signals))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": rep.Symbol,
		"format": exp.Extension(),
		"path":   path,
		"rows":   len(rep.Signals),
	})
}

// scanSummary is one symbol's entry in GET /status.
type scanSummary struct {
	Symbol       string            `json:"symbol"`
	ScannedAt    time.Time         `json:"scanned_at"`
	Error        string            `json:"error,omitempty"`
	TotalSignals int               `json:"total_signals"`
	NewSignals   int               `json:"new_signals"`
	Latest       *model.SignalView `json:"latest_signal"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.opts.Scanner.Config()
	market := "open 24/7"
	if cfg.Session != nil {
		market = cfg.Session.StatusString(time.Now())
	}

	scans := []scanSummary{}
	for _, res := range s.opts.Scanner.Results() {
		sum := scanSummary{Symbol: res.Symbol, ScannedAt: res.ScannedAt, Error: res.Error, NewSignals: res.NewViews}
		if res.Report != nil {
			sum.TotalSignals = res.Report.TotalSignals
			sum.Latest = res.Report.Latest
		}
		scans = append(scans, sum)
	}

	body := map[string]interface{}{
		"provider":           s.opts.Scanner.Source().Name(),
		"symbols":            cfg.Symbols,
		"interval":           cfg.Interval,
		"scan_every":         cfg.ScanInterval.String(),
		"market":             market,
		"breakout_filter":    cfg.Signal.EnableBreakoutFilter,
		"min_signal_quality": cfg.Signal.MinSignalQuality,
		"uptime":             time.Since(s.started).Truncate(time.Second).String(),
		"scans":              scans,
	}
	if s.opts.Hub != nil {
		body["ws_clients"] = s.opts.Hub.ClientCount()
	}
	if s.opts.Health != nil {
		body["health"] = s.opts.Health.Snapshot()
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	var list []marketdata.ProviderInfo
	if s.opts.Providers != nil {
		list = s.opts.Providers()
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":    s.opts.Scanner.Source().Name(),
		"providers": list,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "report cache disabled"})
		return
	}
	symbol := r.PathValue("symbol")
	rep, err := s.opts.Cache.LatestReport(r.Context(), symbol)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	if rep == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no report for " + symbol})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if s.opts.Journal == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "signal journal disabled"})
		return
	}
	symbol := r.PathValue("symbol")
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	views, err := s.opts.Journal.Recent(r.Context(), symbol, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	if views == nil {
		views = []model.SignalView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":  symbol,
		"count":   len(views),
		"signals": views,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	s.opts.Health.ServeHTTP(w, r)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.opts.Hub == nil {
		http.Error(w, "websocket disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade error", "error", err)
		return
	}
	var lastSeq int64
	if q := r.URL.Query().Get("last_seq"); q != "" {
		lastSeq, _ = strconv.ParseInt(q, 10, 64)
	}
	var symbols []string
	if q := r.URL.Query().Get("symbols"); q != "" {
		symbols = strings.Split(q, ",")
	}
	s.opts.Hub.Register(conn, lastSeq, symbols)
}

// ── helpers ──

func (s *Server) readRequest(w http.ResponseWriter, r *http.Request) (*analyzeRequest, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
		return nil, false
	}
	req, err := parseAnalyzeRequest(body)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if req.Candles == nil && req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "symbol is required when candles are not supplied"})
		return nil, false
	}
	if req.Symbol == "" {
		req.Symbol = "CUSTOM"
	}
	return req, true
}

// analyze runs the pipeline over the inline candles, or over a freshly
// fetched window when none were supplied.
func (s *Server) analyze(ctx context.Context, req *analyzeRequest) (model.Report, error) {
	candles := req.Candles
	if candles == nil {
		var err error
		candles, err = s.opts.Scanner.Fetch(ctx, req.Symbol, req.Interval, req.Limit)
		if err != nil {
			return model.Report{}, &fetchError{err: err}
		}
	}

	var p *signal.Pipeline
	if req.BreakoutFilter != nil || req.MinQuality != nil {
		cfg := s.opts.Scanner.Config().Signal
		if req.BreakoutFilter != nil {
			cfg.EnableBreakoutFilter = *req.BreakoutFilter
		}
		if req.MinQuality != nil {
			cfg.MinSignalQuality = *req.MinQuality
		}
		p = signal.NewPipeline(cfg)
	}
	return s.opts.Scanner.Analyze(p, req.Symbol, candles)
}

type fetchError struct{ err error }

func (e *fetchError) Error() string { return "fetch candles: " + e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Field  string `json:"field,omitempty"`
	Index  *int   `json:"index,omitempty"`
	Have   int    `json:"have,omitempty"`
	Need   int    `json:"need,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps pipeline errors to status codes: malformed input 400,
// insufficient data 422, provider failures 502.
func writeError(w http.ResponseWriter, err error) {
	var (
		malformed    *model.MalformedInputError
		insufficient *model.InsufficientDataError
		fetch        *fetchError
	)
	switch {
	case errors.As(err, &fetch):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Kind: "fetch_error"})
	case errors.As(err, &malformed):
		body := errorBody{Error: err.Error(), Kind: "malformed_input", Field: malformed.Field, Detail: malformed.Reason}
		if malformed.Index >= 0 {
			idx := malformed.Index
			body.Index = &idx
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: err.Error(), Kind: "insufficient_data", Have: insufficient.Have, Need: insufficient.Need,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.', ' ':
			return '_'
		}
		return r
	}, s)
}

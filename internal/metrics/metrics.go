package metrics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline run results used as the "result" label.
const (
	ResultOK           = "ok"
	ResultInsufficient = "insufficient_data"
	ResultMalformed    = "malformed_input"
	ResultFetchError   = "fetch_error"
)

// Metrics holds all Prometheus metrics for the signal engine.
type Metrics struct {
	PipelineRuns *prometheus.CounterVec // labels: result
	PipelineDur  prometheus.Histogram
	SignalsTotal *prometheus.CounterVec // labels: type=BUY|SELL
	FetchErrors  *prometheus.CounterVec // labels: provider
	FetchDur     *prometheus.HistogramVec

	NotifyErrors    prometheus.Counter
	JournalWriteDur prometheus.Histogram
	WSClients       prometheus.Gauge

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
	RedisBufferedWrites      prometheus.Counter

	// Scanner session
	MarketState    prometheus.Gauge // 0=closed, 1=open
	LastScanUnix   prometheus.Gauge
	ScanDur        prometheus.Histogram
	SymbolsScanned prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_pipeline_runs_total",
			Help: "Pipeline runs by result",
		}, []string{"result"}),
		PipelineDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalengine_pipeline_duration_seconds",
			Help:    "Candle window to report latency",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_signals_total",
			Help: "Signals that passed the quality threshold (by type)",
		}, []string{"type"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signalengine_fetch_errors_total",
			Help: "Market data fetch failures (by provider)",
		}, []string{"provider"}),
		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signalengine_fetch_duration_seconds",
			Help:    "Market data fetch latency (by provider)",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),

		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalengine_notify_errors_total",
			Help: "Notification delivery failures",
		}),
		JournalWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalengine_journal_write_duration_seconds",
			Help:    "SQLite signal journal write latency",
			Buckets: prometheus.DefBuckets,
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_ws_clients",
			Help: "Connected WebSocket clients",
		}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalengine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		RedisBufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalengine_redis_buffered_writes_total",
			Help: "Redis writes buffered while the circuit breaker was open",
		}),

		MarketState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_market_state",
			Help: "Market session state (0=closed, 1=open)",
		}),
		LastScanUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signalengine_last_scan_timestamp_seconds",
			Help: "Unix time of the last completed scan",
		}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signalengine_scan_duration_seconds",
			Help:    "Duration of one multi-symbol scan",
			Buckets: prometheus.DefBuckets,
		}),
		SymbolsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signalengine_symbols_scanned_total",
			Help: "Symbols processed by the scanner",
		}),
	}

	reg.MustRegister(
		m.PipelineRuns,
		m.PipelineDur,
		m.SignalsTotal,
		m.FetchErrors,
		m.FetchDur,
		m.NotifyErrors,
		m.JournalWriteDur,
		m.WSClients,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
		m.RedisBufferedWrites,
		m.MarketState,
		m.LastScanUnix,
		m.ScanDur,
		m.SymbolsScanned,
	)

	return m
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}

package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	Provider       string    `json:"provider"`
	RedisEnabled   bool      `json:"redis_enabled"`
	RedisConnected bool      `json:"redis_connected"`
	SQLiteEnabled  bool      `json:"sqlite_enabled"`
	SQLiteOK       bool      `json:"sqlite_ok"`
	LastScanAt     time.Time `json:"last_scan_at"`
	LastScanErrors int       `json:"last_scan_errors"`

	// Liveness check results
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus(provider string) *HealthStatus {
	return &HealthStatus{
		Provider:  provider,
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetRedisEnabled(v bool) {
	h.mu.Lock()
	h.RedisEnabled = v
	h.RedisConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetSQLiteEnabled(v bool) {
	h.mu.Lock()
	h.SQLiteEnabled = v
	h.SQLiteOK = v
	h.mu.Unlock()
}

// RecordScan stores the outcome of the last scanner pass.
func (h *HealthStatus) RecordScan(at time.Time, failed int) {
	h.mu.Lock()
	h.LastScanAt = at
	h.LastScanErrors = failed
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(checkCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(checkCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// Snapshot is the JSON body served on /healthz and /status.
type Snapshot struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	Provider        string  `json:"provider"`
	RedisEnabled    bool    `json:"redis_enabled"`
	RedisConnected  bool    `json:"redis_connected"`
	RedisLatencyMs  float64 `json:"redis_latency_ms"`
	SQLiteEnabled   bool    `json:"sqlite_enabled"`
	SQLiteOK        bool    `json:"sqlite_ok"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
	LastScanAt      string  `json:"last_scan_at,omitempty"`
	LastScanErrors  int     `json:"last_scan_errors"`
	LastCheckAt     string  `json:"last_check_at,omitempty"`
}

// Snapshot returns the current health. Only enabled dependencies count
// towards the overall status.
func (h *HealthStatus) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	redisDown := h.RedisEnabled && !h.RedisConnected
	sqliteDown := h.SQLiteEnabled && !h.SQLiteOK

	status := "healthy"
	if redisDown || sqliteDown {
		status = "degraded"
	}
	if redisDown && sqliteDown {
		status = "unhealthy"
	}

	s := Snapshot{
		Status:          status,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Provider:        h.Provider,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteEnabled:   h.SQLiteEnabled,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastScanErrors:  h.LastScanErrors,
	}
	if !h.LastScanAt.IsZero() {
		s.LastScanAt = h.LastScanAt.Format(time.RFC3339)
	}
	if !h.LastCheckAt.IsZero() {
		s.LastCheckAt = h.LastCheckAt.Format(time.RFC3339)
	}
	return s
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s := h.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if s.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(s)
}

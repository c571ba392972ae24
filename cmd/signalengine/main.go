// cmd/signalengine runs the triple-confirmation scanner as a service: it
// scans the configured symbols on a schedule, caches reports in Redis,
// journals signals to SQLite, sends alerts, and serves the REST/WS API.
package main

import (
	"context"
	"database/sql"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tripleconfirm/config"
	"tripleconfirm/internal/api"
	"tripleconfirm/internal/logger"
	"tripleconfirm/internal/marketdata"
	"tripleconfirm/internal/markethours"
	"tripleconfirm/internal/metrics"
	"tripleconfirm/internal/model"
	"tripleconfirm/internal/notification"
	"tripleconfirm/internal/scanner"
	redisstore "tripleconfirm/internal/store/redis"
	sqlitestore "tripleconfirm/internal/store/sqlite"
)

func main() {
	cfg := config.Load()
	log := logger.Init("signalengine", logger.ParseLevel(cfg.LogLevel))
	log.Info("starting", "provider", cfg.DataProvider, "symbols", cfg.Symbols, "interval", cfg.Interval)

	// ---- Metrics & health ----
	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus(cfg.DataProvider)
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Market data ----
	source, err := marketdata.New(cfg)
	if err != nil {
		log.Error("market data init failed", "error", err)
		os.Exit(1)
	}

	// ---- Redis report cache (optional) ----
	var (
		cache    model.ReportCache
		rdbCache *redisstore.Cache
		rdb      *goredis.Client
	)
	if cfg.RedisAddr != "" {
		health.SetRedisEnabled(true)
		rdbCache, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.ReportTTL,
		})
		if err != nil {
			log.Warn("redis init failed, continuing without report cache", "error", err)
		} else {
			rdb = rdbCache.Client()
			cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
			cb.OnStateChange = func(from, to redisstore.State) {
				prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.RedisCircuitBreakerTrips.Inc()
				}
			}
			buffered := redisstore.NewBufferedCache(ctx, rdbCache, cb, 1000)
			buffered.OnBuffer = func() { prom.RedisBufferedWrites.Inc() }
			buffered.OnFlush = func(n int) { log.Info("redis buffer flushed", "writes", n) }
			cache = buffered
			defer buffered.Close()
		}
	}

	// ---- SQLite signal journal (optional) ----
	var (
		journal model.SignalJournal
		sqlDB   *sql.DB
	)
	if cfg.SQLitePath != "" {
		health.SetSQLiteEnabled(true)
		os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
		j, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			log.Error("sqlite init failed", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer j.Close()
		journal = j
		sqlDB = j.DB()
	}
	health.StartLivenessChecker(ctx, rdb, sqlDB, 10*time.Second)

	// ---- Notifications ----
	notifier := notification.Multi{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifier = append(notifier, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.DiscordWebhookURL != "" {
		notifier = append(notifier, notification.NewDiscordNotifier(cfg.DiscordWebhookURL))
	}
	if cfg.WebhookURL != "" {
		notifier = append(notifier, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	log.Info("notifiers ready", "channels", len(notifier))

	// ---- Market session ----
	var session *markethours.Session
	if cfg.MarketHoursOnly {
		session, err = markethours.ByName(cfg.MarketSession)
		if err != nil {
			log.Error("market session", "error", err)
			os.Exit(1)
		}
		log.Info(session.StatusString(time.Now()))
	}

	// ---- WebSocket hub ----
	hub := api.NewHub(500)
	hub.OnClientCount = func(n int) { prom.WSClients.Set(float64(n)) }

	deps := scanner.Deps{
		Source:   source,
		Cache:    cache,
		Journal:  journal,
		Notifier: notifier,
		Metrics:  prom,
		Health:   health,
	}
	if rdbCache != nil {
		// Signals reach the hub through Redis so every engine instance sees them.
		go rdbCache.SubscribeSignals(ctx, hub.Relay)
	} else {
		deps.Broadcast = hub.Broadcast
	}

	// ---- Scanner ----
	sc, err := scanner.New(scanner.Config{
		Symbols:      cfg.Symbols,
		Interval:     cfg.Interval,
		CandleLimit:  cfg.CandleLimit,
		ScanInterval: cfg.ScanInterval,
		Concurrency:  cfg.ScanConcurrency,
		Session:      session,
		Signal:       cfg.SignalConfig(),
	}, deps)
	if err != nil {
		log.Error("scanner init failed", "error", err)
		os.Exit(1)
	}

	// ---- API ----
	apiSrv := api.NewServer(cfg.HTTPAddr, api.Options{
		Scanner:      sc,
		Cache:        cache,
		Journal:      journal,
		Health:       health,
		Hub:          hub,
		Providers:    func() []marketdata.ProviderInfo { return marketdata.Providers(cfg) },
		ExportDir:    cfg.ExportDir,
		ExportFormat: cfg.ExportFormat,
	})
	apiSrv.Start()

	scanDone := make(chan error, 1)
	go func() { scanDone <- sc.Run(ctx) }()

	select {
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	case err := <-scanDone:
		log.Error("scanner stopped", "error", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	apiSrv.Stop(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	log.Info("stopped")
}

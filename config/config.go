package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"tripleconfirm/internal/indicator"
	"tripleconfirm/internal/signal"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Service
	HTTPAddr    string
	MetricsAddr string
	LogLevel    string

	// Signal engine
	EnableBreakoutFilter bool
	MinSignalQuality     float64
	AlligatorPeriods     [3]int // jaw, teeth, lips
	AlligatorShifts      [3]int
	StochParams          [3]int // k period, k smoothing, d smoothing
	VortexPeriod         int
	BreakoutLookback     int

	// Market data
	DataProvider string // binance | angel | csv
	Symbols      []string
	Interval     string
	CandleLimit  int
	CSVDir       string

	// Angel One credentials (required when DataProvider == "angel")
	AngelAPIKey     string
	AngelClientCode string
	AngelPassword   string
	AngelTOTPSecret string

	// Scanner
	ScanInterval    time.Duration
	ScanConcurrency int
	MarketHoursOnly bool
	MarketSession   string // nse | crypto
	ExportFormat    string // csv | parquet

	// Infrastructure
	RedisAddr     string // empty disables the report cache
	RedisPassword string
	ReportTTL     time.Duration
	SQLitePath    string // empty disables the signal journal
	ExportDir     string

	// Notifications (each channel is enabled when its settings are present)
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string
	WebhookURL        string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	def := indicator.DefaultParams()
	c := &Config{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		EnableBreakoutFilter: getBool("ENABLE_BREAKOUT_FILTER", true),
		MinSignalQuality:     getFloat("MIN_SIGNAL_QUALITY", 0.5),
		AlligatorPeriods:     getTriple("ALLIGATOR_PERIODS", [3]int{def.JawPeriod, def.TeethPeriod, def.LipsPeriod}),
		AlligatorShifts:      getTriple("ALLIGATOR_SHIFTS", [3]int{def.JawShift, def.TeethShift, def.LipsShift}),
		StochParams:          getTriple("STOCH_PARAMS", [3]int{def.KPeriod, def.KSmooth, def.DSmooth}),
		VortexPeriod:         getInt("VORTEX_PERIOD", def.VortexPeriod),
		BreakoutLookback:     getInt("BREAKOUT_LOOKBACK", 3),

		DataProvider: strings.ToLower(getEnv("DATA_PROVIDER", "binance")),
		Symbols:      splitList(getEnv("SYMBOLS", "BTCUSDT,ETHUSDT")),
		Interval:     getEnv("INTERVAL", "1h"),
		CandleLimit:  getInt("CANDLE_LIMIT", 200),
		CSVDir:       getEnv("CSV_DIR", "data/candles"),

		ScanInterval:    time.Duration(getInt("SCAN_INTERVAL_SEC", 300)) * time.Second,
		ScanConcurrency: getInt("SCAN_CONCURRENCY", 4),
		MarketHoursOnly: getBool("MARKET_HOURS_ONLY", false),
		ExportFormat:    strings.ToLower(getEnv("EXPORT_FORMAT", "csv")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		ReportTTL:     time.Duration(getInt("REPORT_TTL_SEC", 900)) * time.Second,
		SQLitePath:    getEnv("SQLITE_PATH", "data/signals.db"),
		ExportDir:     getEnv("EXPORT_DIR", "data/exports"),

		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    getEnv("TELEGRAM_CHAT_ID", ""),
		DiscordWebhookURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		WebhookURL:        getEnv("WEBHOOK_URL", ""),
	}

	defSession := "crypto"
	if c.DataProvider == "angel" {
		defSession = "nse"
	}
	c.MarketSession = strings.ToLower(getEnv("MARKET_SESSION", defSession))

	if c.DataProvider == "angel" {
		c.AngelAPIKey = mustEnv("ANGEL_API_KEY")
		c.AngelClientCode = mustEnv("ANGEL_CLIENT_CODE")
		c.AngelPassword = mustEnv("ANGEL_PASSWORD")
		c.AngelTOTPSecret = mustEnv("ANGEL_TOTP_SECRET")
	}
	return c
}

// IndicatorParams projects the indicator settings into indicator.Params.
func (c *Config) IndicatorParams() indicator.Params {
	p := indicator.DefaultParams()
	p.JawPeriod, p.TeethPeriod, p.LipsPeriod = c.AlligatorPeriods[0], c.AlligatorPeriods[1], c.AlligatorPeriods[2]
	p.JawShift, p.TeethShift, p.LipsShift = c.AlligatorShifts[0], c.AlligatorShifts[1], c.AlligatorShifts[2]
	p.KPeriod, p.KSmooth, p.DSmooth = c.StochParams[0], c.StochParams[1], c.StochParams[2]
	p.VortexPeriod = c.VortexPeriod
	return p
}

// SignalConfig projects the engine settings into signal.Config.
func (c *Config) SignalConfig() signal.Config {
	return signal.Config{
		EnableBreakoutFilter: c.EnableBreakoutFilter,
		MinSignalQuality:     c.MinSignalQuality,
		BreakoutLookback:     c.BreakoutLookback,
		Params:               c.IndicatorParams(),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 || f > 1 {
		log.Printf("[config] invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

// getTriple parses "a,b,c" into three integers. Shifts may be zero;
// everything else must be positive, which Params.Validate enforces later.
func getTriple(key string, fallback [3]int) [3]int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := splitList(v)
	if len(parts) != 3 {
		log.Printf("[config] %s needs 3 comma-separated values, got %q", key, v)
		return fallback
	}
	var out [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
			return fallback
		}
		out[i] = n
	}
	return out
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// cmd/scan runs the triple-confirmation pipeline once over a candle window
// and prints the report.
//
// Usage:
//
//	go run ./cmd/scan --symbol=BTCUSDT --interval=1h --limit=200
//	go run ./cmd/scan --csv=data/candles/NIFTY.csv --no-breakout --export=parquet
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"tripleconfirm/config"
	"tripleconfirm/internal/export"
	"tripleconfirm/internal/logger"
	"tripleconfirm/internal/marketdata"
	"tripleconfirm/internal/marketdata/csvfile"
	"tripleconfirm/internal/model"
	"tripleconfirm/internal/signal"
)

func main() {
	symbol := flag.String("symbol", "", "Symbol to fetch from the provider (default: first of SYMBOLS)")
	csvPath := flag.String("csv", "", "Read candles from this CSV file instead of a provider")
	provider := flag.String("provider", "", "Market data provider: binance | angel | csv (default: DATA_PROVIDER)")
	interval := flag.String("interval", "", "Candle interval (default: INTERVAL)")
	limit := flag.Int("limit", 0, "Number of closed candles to fetch (default: CANDLE_LIMIT)")
	noBreakout := flag.Bool("no-breakout", false, "Disable the breakout filter")
	minQuality := flag.Float64("min-quality", -1, "Report quality threshold in [0,1] (default: MIN_SIGNAL_QUALITY)")
	exportFmt := flag.String("export", "", "Also write signals to a file: csv | parquet")
	outDir := flag.String("out", "", "Export directory (default: EXPORT_DIR)")
	asJSON := flag.Bool("json", false, "Print the full report as JSON")
	flag.Parse()

	if *provider != "" {
		os.Setenv("DATA_PROVIDER", *provider)
	}
	cfg := config.Load()
	logger.Init("scan", logger.ParseLevel(cfg.LogLevel))

	sigCfg := cfg.SignalConfig()
	if *noBreakout {
		sigCfg.EnableBreakoutFilter = false
	}
	if *minQuality >= 0 {
		if *minQuality > 1 {
			fatalf("--min-quality must be in [0, 1], got %v", *minQuality)
		}
		sigCfg.MinSignalQuality = *minQuality
	}
	if err := sigCfg.Params.Validate(); err != nil {
		fatalf("invalid indicator parameters: %v", err)
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, candles, err := loadCandles(ctx, cfg, *csvPath, *symbol, *interval, *limit)
	if err != nil {
		fatalf("%v", err)
	}

	start := time.Now()
	rep, err := signal.NewPipeline(sigCfg).Analyze(name, candles)
	if err != nil {
		fatalf("analyze %s: %v", name, err)
	}
	elapsed := time.Since(start)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fatalf("encode report: %v", err)
		}
	} else {
		printSignals(rep)
	}

	exported := "-"
	if *exportFmt != "" {
		dir := *outDir
		if dir == "" {
			dir = cfg.ExportDir
		}
		path, err := writeExport(*exportFmt, dir, rep)
		if err != nil {
			fatalf("export: %v", err)
		}
		exported = path
	}

	latest := "none"
	if rep.Latest != nil {
		latest = fmt.Sprintf("%s @ %.2f", rep.Latest.Type, rep.Latest.Price)
	}
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════╗")
	fmt.Fprintln(os.Stderr, "║          TRIPLE CONFIRMATION SCAN        ║")
	fmt.Fprintln(os.Stderr, "╠══════════════════════════════════════════╣")
	fmt.Fprintf(os.Stderr, "║  Symbol:          %-22s ║\n", rep.Symbol)
	fmt.Fprintf(os.Stderr, "║  Candles:         %-22d ║\n", rep.TotalCandles)
	fmt.Fprintf(os.Stderr, "║  Signals:         %-22s ║\n", fmt.Sprintf("%d (%d buy, %d sell)", rep.TotalSignals, rep.BuySignals, rep.SellSignals))
	fmt.Fprintf(os.Stderr, "║  Avg quality:     %-22.3f ║\n", rep.AverageQuality)
	fmt.Fprintf(os.Stderr, "║  Latest:          %-22s ║\n", latest)
	fmt.Fprintf(os.Stderr, "║  Elapsed:         %-22s ║\n", elapsed.Round(time.Microsecond))
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════╝")
	if exported != "-" {
		fmt.Fprintf(os.Stderr, "exported to %s\n", exported)
	}
}

// loadCandles reads the CSV file when given, otherwise fetches from the
// configured provider. It returns the symbol name used in the report.
func loadCandles(ctx context.Context, cfg *config.Config, csvPath, symbol, interval string, limit int) (string, []model.Candle, error) {
	if csvPath != "" {
		f, err := os.Open(csvPath)
		if err != nil {
			return "", nil, err
		}
		defer f.Close()
		candles, err := csvfile.Read(f)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", csvPath, err)
		}
		if symbol == "" {
			symbol = strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath))
		}
		return symbol, candles, nil
	}

	if symbol == "" {
		if len(cfg.Symbols) == 0 {
			return "", nil, fmt.Errorf("no --symbol given and SYMBOLS is empty")
		}
		symbol = cfg.Symbols[0]
	}
	if interval == "" {
		interval = cfg.Interval
	}
	if limit <= 0 {
		limit = cfg.CandleLimit
	}
	src, err := marketdata.New(cfg)
	if err != nil {
		return "", nil, err
	}
	candles, err := src.Fetch(ctx, model.FetchRequest{Symbol: symbol, Interval: interval, Limit: limit})
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s from %s: %w", symbol, src.Name(), err)
	}
	return symbol, candles, nil
}

func printSignals(rep model.Report) {
	if len(rep.Signals) == 0 {
		fmt.Println("no signals above the quality threshold")
		return
	}
	fmt.Printf("%-20s %-4s %12s %7s %6s %-12s %s\n", "time", "type", "price", "quality", "rank", "reason", "structure")
	for _, v := range rep.Signals {
		ts := "-"
		if !v.TS.IsZero() {
			ts = v.TS.UTC().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-20s %-4s %12.4f %7.3f %6d %-12s %s\n",
			ts, v.Type, v.Price, v.Quality, v.BreakoutRank, v.Reason, v.Structure.Pattern)
	}
}

func writeExport(format, dir string, rep model.Report) (string, error) {
	exp, err := export.New(format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", rep.Symbol, time.Now().UTC().Format("20060102T150405Z"), exp.Extension()))
	return path, exp.Export(path, rep.Symbol, rep.Signals)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "scan: "+format+"\n", args...)
	os.Exit(1)
}

// Package marketdata selects and describes the candle providers that feed
// the signal pipeline. Providers return closed candles only, oldest first.
package marketdata

import (
	"fmt"
	"os"
	"strings"
	"time"

	"tripleconfirm/config"
	"tripleconfirm/internal/marketdata/angel"
	"tripleconfirm/internal/marketdata/binance"
	"tripleconfirm/internal/marketdata/csvfile"
	"tripleconfirm/internal/model"
)

// Provider names accepted by DATA_PROVIDER.
const (
	ProviderBinance = "binance"
	ProviderAngel   = "angel"
	ProviderCSV     = "csv"
)

// ProviderInfo describes one provider for the /providers endpoint.
type ProviderInfo struct {
	Name        string `json:"name"`
	Available   bool   `json:"available"`
	Active      bool   `json:"active"`
	Description string `json:"description"`
}

// New builds the provider selected by cfg.DataProvider.
func New(cfg *config.Config) (model.CandleSource, error) {
	switch cfg.DataProvider {
	case ProviderBinance:
		return binance.New(binance.Config{}), nil
	case ProviderAngel:
		return angel.New(angel.Config{
			APIKey:     cfg.AngelAPIKey,
			ClientCode: cfg.AngelClientCode,
			Password:   cfg.AngelPassword,
			TOTPSecret: cfg.AngelTOTPSecret,
		}), nil
	case ProviderCSV:
		return csvfile.New(cfg.CSVDir), nil
	default:
		return nil, fmt.Errorf("marketdata: unknown provider %q (use: binance, angel, csv)", cfg.DataProvider)
	}
}

// Providers lists every provider and whether it is usable with cfg.
func Providers(cfg *config.Config) []ProviderInfo {
	_, csvErr := os.Stat(cfg.CSVDir)
	return []ProviderInfo{
		{
			Name:        ProviderBinance,
			Available:   true,
			Active:      cfg.DataProvider == ProviderBinance,
			Description: "Binance USD-M futures klines (public REST)",
		},
		{
			Name:        ProviderAngel,
			Available:   cfg.AngelAPIKey != "" && cfg.AngelClientCode != "" && cfg.AngelTOTPSecret != "",
			Active:      cfg.DataProvider == ProviderAngel,
			Description: "Angel One SmartAPI historical candles (NSE/BSE/NFO/MCX)",
		},
		{
			Name:        ProviderCSV,
			Available:   csvErr == nil,
			Active:      cfg.DataProvider == ProviderCSV,
			Description: "Local CSV files <CSV_DIR>/<SYMBOL>.csv with header t,o,h,l,c,v",
		},
	}
}

// IntervalDuration parses provider-neutral intervals such as "15m", "1h", "1d".
func IntervalDuration(interval string) (time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(interval))
	if strings.HasSuffix(s, "d") {
		var n int
		if _, err := fmt.Sscanf(s, "%dd", &n); err != nil || n <= 0 {
			return 0, fmt.Errorf("marketdata: invalid interval %q", interval)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("marketdata: invalid interval %q", interval)
	}
	return d, nil
}

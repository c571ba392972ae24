// Package binance fetches closed klines from the Binance USD-M futures REST API.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"

	"tripleconfirm/internal/model"
)

const (
	defaultBaseURL = "https://fapi.binance.com"
	maxLimit       = 1500
)

// Config configures the source. Zero values select the public endpoint.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Source implements model.CandleSource over /fapi/v1/klines.
type Source struct {
	baseURL string
	timeout time.Duration
	client  *fasthttp.Client
	now     func() time.Time
}

// New creates a Binance source.
func New(cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Source{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		client:  &fasthttp.Client{Name: "tripleconfirm"},
		now:     time.Now,
	}
}

func (s *Source) Name() string { return "binance" }

// Fetch returns up to req.Limit closed candles ending at req.End (or now).
// The still-forming last kline is dropped.
func (s *Source) Fetch(ctx context.Context, req model.FetchRequest) ([]model.Candle, error) {
	httpReq := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(httpReq)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	httpReq.SetRequestURI(s.baseURL + "/fapi/v1/klines")
	httpReq.Header.SetMethod(fasthttp.MethodGet)
	queryArgs := httpReq.URI().QueryArgs()
	queryArgs.Set("symbol", req.Symbol)
	queryArgs.Set("interval", req.Interval)
	// One extra row covers the open kline that gets dropped.
	queryArgs.Set("limit", strconv.Itoa(min(req.Limit+1, maxLimit)))
	if !req.End.IsZero() {
		queryArgs.Set("endTime", strconv.FormatInt(req.End.UnixMilli(), 10))
	}

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(httpReq, resp, deadline); err != nil {
		return nil, fmt.Errorf("binance klines %s: %w", req.Symbol, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("binance klines %s: status %d: %s", req.Symbol, resp.StatusCode(),
			gjson.GetBytes(body, "msg").String())
	}

	jsonResult := gjson.ParseBytes(body)
	if !jsonResult.IsArray() {
		return nil, fmt.Errorf("binance klines %s: unexpected response format", req.Symbol)
	}

	now := s.now().UnixMilli()
	rows := jsonResult.Array()
	candles := make([]model.Candle, 0, len(rows))
	for i, v := range rows {
		row := v.Array()
		if len(row) < 7 {
			return nil, &model.MalformedInputError{Index: i, Field: "kline", Reason: fmt.Sprintf("%d fields, want at least 7", len(row))}
		}
		if row[6].Int() >= now {
			continue
		}
		candles = append(candles, model.Candle{
			TS:     time.UnixMilli(row[0].Int()).UTC(),
			Open:   row[1].Float(),
			High:   row[2].Float(),
			Low:    row[3].Float(),
			Close:  row[4].Float(),
			Volume: row[5].Float(),
		})
	}

	if req.Limit > 0 && len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}
	return candles, nil
}

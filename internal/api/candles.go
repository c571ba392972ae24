package api

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tripleconfirm/internal/model"
)

// analyzeRequest is the POST /analyze and POST /export body.
type analyzeRequest struct {
	Symbol   string
	Interval string
	Limit    int
	Format   string         // export only
	Candles  []model.Candle // nil when the window should be fetched

	BreakoutFilter *bool
	MinQuality     *float64
}

// parseAnalyzeRequest inspects body with gjson so a missing candle field is
// reported with its index instead of decoding to zero.
func parseAnalyzeRequest(body []byte) (*analyzeRequest, error) {
	if !gjson.ValidBytes(body) {
		return nil, &model.MalformedInputError{Index: -1, Field: "body", Reason: "invalid JSON"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, &model.MalformedInputError{Index: -1, Field: "body", Reason: "must be a JSON object"}
	}

	req := &analyzeRequest{
		Symbol:   strings.TrimSpace(root.Get("symbol").String()),
		Interval: root.Get("interval").String(),
		Limit:    int(root.Get("limit").Int()),
		Format:   root.Get("format").String(),
	}
	if v := root.Get("enable_breakout_filter"); v.Exists() {
		if v.Type != gjson.True && v.Type != gjson.False {
			return nil, &model.MalformedInputError{Index: -1, Field: "enable_breakout_filter", Reason: "must be a boolean"}
		}
		b := v.Bool()
		req.BreakoutFilter = &b
	}
	if v := root.Get("min_signal_quality"); v.Exists() {
		q := v.Float()
		if v.Type != gjson.Number || q < 0 || q > 1 {
			return nil, &model.MalformedInputError{Index: -1, Field: "min_signal_quality", Reason: "must be a number in [0, 1]"}
		}
		req.MinQuality = &q
	}

	arr := root.Get("candles")
	if !arr.Exists() || arr.Type == gjson.Null {
		return req, nil
	}
	if !arr.IsArray() {
		return nil, &model.MalformedInputError{Index: -1, Field: "candles", Reason: "must be an array"}
	}
	items := arr.Array()
	req.Candles = make([]model.Candle, 0, len(items))
	for i, item := range items {
		c, err := parseCandle(i, item)
		if err != nil {
			return nil, err
		}
		req.Candles = append(req.Candles, c)
	}
	return req, nil
}

func parseCandle(i int, item gjson.Result) (model.Candle, error) {
	if !item.IsObject() {
		return model.Candle{}, &model.MalformedInputError{Index: i, Field: "candle", Reason: "must be an object"}
	}
	var c model.Candle
	for _, f := range [...]struct {
		name string
		dst  *float64
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
		{"volume", &c.Volume},
	} {
		v := item.Get(f.name)
		if !v.Exists() || v.Type == gjson.Null {
			return c, &model.MalformedInputError{Index: i, Field: f.name, Reason: "missing"}
		}
		x, ok := number(v)
		if !ok {
			return c, &model.MalformedInputError{Index: i, Field: f.name, Reason: "not a finite number"}
		}
		*f.dst = x
	}

	ts := item.Get("timestamp")
	if !ts.Exists() {
		ts = item.Get("ts")
	}
	if ts.Exists() && ts.Type != gjson.Null {
		t, ok := timestamp(ts)
		if !ok {
			return c, &model.MalformedInputError{Index: i, Field: "ts", Reason: "want RFC3339 or unix milliseconds"}
		}
		c.TS = t
	}
	return c, nil
}

// number accepts JSON numbers and numeric strings.
func number(v gjson.Result) (float64, bool) {
	var x float64
	switch v.Type {
	case gjson.Number:
		x = v.Num
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		x = f
	default:
		return 0, false
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, false
	}
	return x, true
}

var tsLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04"}

func timestamp(v gjson.Result) (time.Time, bool) {
	switch v.Type {
	case gjson.Number:
		return time.UnixMilli(v.Int()).UTC(), true
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.UnixMilli(ms).UTC(), true
		}
		for _, layout := range tsLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

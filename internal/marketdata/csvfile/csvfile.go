// Package csvfile reads candle windows from local CSV files named
// <dir>/<SYMBOL>.csv with header t,o,h,l,c,v. The t column holds Unix
// milliseconds or an RFC3339 timestamp.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tripleconfirm/internal/model"
)

// Columns is the expected header.
var Columns = []string{"t", "o", "h", "l", "c", "v"}

// Source implements model.CandleSource over a directory of CSV files.
type Source struct {
	dir string
}

// New creates a CSV source rooted at dir.
func New(dir string) *Source {
	return &Source{dir: dir}
}

func (s *Source) Name() string { return "csv" }

// Fetch reads <dir>/<symbol>.csv and returns the last req.Limit candles
// (all of them when Limit <= 0) with TS at or before req.End.
func (s *Source) Fetch(ctx context.Context, req model.FetchRequest) ([]model.Candle, error) {
	if strings.ContainsAny(req.Symbol, `/\`) || req.Symbol == "" || strings.Contains(req.Symbol, "..") {
		return nil, fmt.Errorf("csvfile: invalid symbol %q", req.Symbol)
	}
	path := filepath.Join(s.dir, req.Symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csvfile: %w", err)
	}
	defer f.Close()

	candles, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("csvfile %s: %w", path, err)
	}
	if !req.End.IsZero() {
		n := 0
		for n < len(candles) && !candles[n].TS.After(req.End) {
			n++
		}
		candles = candles[:n]
	}
	if req.Limit > 0 && len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}
	return candles, nil
}

// Read parses a CSV candle stream. Missing or non-numeric fields are
// reported as *model.MalformedInputError with the zero-based data row.
func Read(r io.Reader) ([]model.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, &model.MalformedInputError{Index: -1, Field: col, Reason: "missing column"}
		}
	}

	var candles []model.Candle
	for row := 0; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		field := func(col string) (string, error) {
			i := idx[col]
			if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
				return "", &model.MalformedInputError{Index: row, Field: col, Reason: "missing value"}
			}
			return strings.TrimSpace(rec[i]), nil
		}
		number := func(col string) (float64, error) {
			s, err := field(col)
			if err != nil {
				return 0, err
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, &model.MalformedInputError{Index: row, Field: col, Reason: "not a number"}
			}
			return v, nil
		}

		var c model.Candle
		ts, err := field("t")
		if err != nil {
			return nil, err
		}
		if c.TS, err = parseTime(ts); err != nil {
			return nil, &model.MalformedInputError{Index: row, Field: "t", Reason: err.Error()}
		}
		for _, p := range []struct {
			col string
			dst *float64
		}{{"o", &c.Open}, {"h", &c.High}, {"l", &c.Low}, {"c", &c.Close}, {"v", &c.Volume}} {
			if *p.dst, err = number(p.col); err != nil {
				return nil, err
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseTime(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("timestamp is neither unix milliseconds nor RFC3339")
	}
	return t.UTC(), nil
}

// Write stores candles in the format Read accepts.
func Write(w io.Writer, candles []model.Candle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, c := range candles {
		if err := cw.Write([]string{
			strconv.FormatInt(c.TS.UnixMilli(), 10),
			floatStr(c.Open),
			floatStr(c.High),
			floatStr(c.Low),
			floatStr(c.Close),
			floatStr(c.Volume),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

package csvfile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tripleconfirm/internal/model"
)

func TestRead(t *testing.T) {
	in := "t,o,h,l,c,v\n" +
		"1709543700000,100,105,99,104,1200\n" +
		"2024-03-04T10:15:00Z,104,106,103,105.5,900\n"
	got, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d candles", len(got))
	}
	if !got[0].TS.Equal(time.UnixMilli(1709543700000)) || got[0].Volume != 1200 {
		t.Errorf("row 0 = %+v", got[0])
	}
	if !got[1].TS.Equal(time.Date(2024, 3, 4, 10, 15, 0, 0, time.UTC)) || got[1].Close != 105.5 {
		t.Errorf("row 1 = %+v", got[1])
	}
}

func TestRead_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		field string
		index int
	}{
		{"missing column", "t,o,h,l,c\n1,1,1,1,1\n", "v", -1},
		{"empty value", "t,o,h,l,c,v\n1,1,1,,1,1\n", "l", 0},
		{"short row", "t,o,h,l,c,v\n1,1,1,1,1,1\n2,1,1,1\n", "c", 1},
		{"not a number", "t,o,h,l,c,v\n1,1,abc,1,1,1\n", "h", 0},
		{"bad time", "t,o,h,l,c,v\nyesterday,1,1,1,1,1\n", "t", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in))
			var me *model.MalformedInputError
			if !errors.As(err, &me) {
				t.Fatalf("err = %v, want MalformedInputError", err)
			}
			if me.Field != tt.field || me.Index != tt.index {
				t.Errorf("got field %q index %d, want %q %d", me.Field, me.Index, tt.field, tt.index)
			}
			if !errors.Is(err, model.ErrMalformedInput) {
				t.Error("errors.Is ErrMalformedInput failed")
			}
		})
	}
}

func TestWriteRead_Fetch(t *testing.T) {
	dir := t.TempDir()
	t0 := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	var candles []model.Candle
	for i := 0; i < 5; i++ {
		candles = append(candles, model.Candle{
			TS: t0.Add(time.Duration(i) * time.Hour), Open: 10, High: 12, Low: 9, Close: 11 + float64(i)/4, Volume: 100,
		})
	}
	var buf bytes.Buffer
	if err := Write(&buf, candles); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "NIFTY.csv"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(dir)
	got, err := s.Fetch(context.Background(), model.FetchRequest{Symbol: "NIFTY", Limit: 2, End: t0.Add(3 * time.Hour)})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 2 || !got[1].TS.Equal(t0.Add(3*time.Hour)) || got[0].Close != 11.5 {
		t.Errorf("got %+v", got)
	}

	if _, err := s.Fetch(context.Background(), model.FetchRequest{Symbol: "../etc/passwd"}); err == nil {
		t.Error("path traversal should be rejected")
	}
	if _, err := s.Fetch(context.Background(), model.FetchRequest{Symbol: "MISSING"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}
}

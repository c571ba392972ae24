package heikinashi

import (
	"errors"
	"math"
	"testing"
	"time"

	"tripleconfirm/internal/model"
)

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func candles(ohlc ...[4]float64) []model.Candle {
	base := time.Date(2024, 1, 2, 9, 15, 0, 0, time.UTC)
	out := make([]model.Candle, len(ohlc))
	for i, v := range ohlc {
		out[i] = model.Candle{
			TS:   base.Add(time.Duration(i) * time.Hour),
			Open: v[0], High: v[1], Low: v[2], Close: v[3],
			Volume: 1000,
		}
	}
	return out
}

func TestConvert_HandCalculated(t *testing.T) {
	// Candle 0: O=10 H=12 L=9 C=11 -> haClose=10.5, haOpen=10, haHigh=12, haLow=9
	// Candle 1: O=11 H=14 L=10 C=13 -> haClose=12, haOpen=(10+10.5)/2=10.25
	//           haHigh=max(14,10.25,12)=14, haLow=min(10,10.25,12)=10
	// Candle 2: O=13 H=13.5 L=12 C=12.5 -> haClose=12.75, haOpen=(10.25+12)/2=11.125
	//           haHigh=13.5, haLow=min(12,11.125,12.75)=11.125
	ha, err := Convert(candles(
		[4]float64{10, 12, 9, 11},
		[4]float64{11, 14, 10, 13},
		[4]float64{13, 13.5, 12, 12.5},
	))
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	want := []struct{ o, h, l, c float64 }{
		{10, 12, 9, 10.5},
		{10.25, 14, 10, 12},
		{11.125, 13.5, 11.125, 12.75},
	}
	for i, w := range want {
		assertClose(t, "haOpen", ha[i].HAOpen(), w.o, 1e-12)
		assertClose(t, "haHigh", ha[i].HAHigh(), w.h, 1e-12)
		assertClose(t, "haLow", ha[i].HALow(), w.l, 1e-12)
		assertClose(t, "haClose", ha[i].HAClose(), w.c, 1e-12)
	}
	if ha[1].OrigClose != 13 || ha[1].OrigHigh != 14 {
		t.Errorf("original OHLC not carried through: %+v", ha[1])
	}
	if ha[2].Volume != 1000 {
		t.Errorf("volume not carried through: %v", ha[2].Volume)
	}
}

func TestConvert_Recurrence(t *testing.T) {
	in := make([]model.Candle, 0, 50)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < 50; i++ {
		o := price
		c := price + math.Sin(float64(i))*2
		in = append(in, model.Candle{
			TS:   base.Add(time.Duration(i) * time.Minute),
			Open: o, High: math.Max(o, c) + 1, Low: math.Min(o, c) - 1, Close: c,
		})
		price = c
	}

	ha, err := Convert(in)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(ha) != len(in) {
		t.Fatalf("len = %d, want %d", len(ha), len(in))
	}
	if ha[0].Open != in[0].Open {
		t.Errorf("haOpen[0] = %v, want open[0] = %v", ha[0].Open, in[0].Open)
	}
	for i := 1; i < len(ha); i++ {
		assertClose(t, "haOpen recurrence", ha[i].Open, (ha[i-1].Open+ha[i-1].Close)/2, 1e-9)
		if ha[i].High < ha[i].Open || ha[i].High < ha[i].Close || ha[i].High < in[i].High {
			t.Errorf("candle %d: haHigh %v below an operand", i, ha[i].High)
		}
		if ha[i].Low > ha[i].Open || ha[i].Low > ha[i].Close || ha[i].Low > in[i].Low {
			t.Errorf("candle %d: haLow %v above an operand", i, ha[i].Low)
		}
	}
}

func TestConvert_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		_, err := Convert(make([]model.Candle, n))
		if !errors.Is(err, model.ErrInsufficientData) {
			t.Errorf("len %d: expected ErrInsufficientData, got %v", n, err)
		}
	}
}

func TestConvert_Malformed(t *testing.T) {
	in := candles([4]float64{10, 12, 9, 11}, [4]float64{11, 14, 10, 13})
	in[1].High = math.NaN()
	_, err := Convert(in)
	var me *model.MalformedInputError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if me.Index != 1 || me.Field != "high" {
		t.Errorf("unexpected error detail: %+v", me)
	}

	in = candles([4]float64{10, 12, 9, 11}, [4]float64{11, 14, 10, 13})
	in[1].TS = in[0].TS
	if _, err := Convert(in); !errors.Is(err, model.ErrMalformedInput) {
		t.Errorf("duplicate timestamp: expected ErrMalformedInput, got %v", err)
	}

	in = candles([4]float64{1e308, 1e308, 1e308, 1e308}, [4]float64{1e308, 1e308, 1e308, 1e308})
	if _, err := Convert(in); !errors.Is(err, model.ErrMalformedInput) {
		t.Errorf("overflow: expected ErrMalformedInput, got %v", err)
	}
}

func TestConvert_IndexOnlyWindow(t *testing.T) {
	in := []model.Candle{
		{Open: 1, High: 2, Low: 0.5, Close: 1.5},
		{Open: 1.5, High: 2.5, Low: 1, Close: 2},
	}
	if _, err := Convert(in); err != nil {
		t.Errorf("unstamped window should be accepted: %v", err)
	}
}

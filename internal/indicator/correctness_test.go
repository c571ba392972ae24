package indicator

import (
	"errors"
	"math"
	"testing"

	"tripleconfirm/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helper
// ────────────────────────────────────────────────────────────

func haCandle(high, low, close float64) model.HACandle {
	return model.HACandle{Open: close, High: high, Low: low, Close: close}
}

// trend builds n HA candles whose close moves by step per candle with a
// fixed 1.0 wick on either side.
func trend(n int, start, step float64) []model.HACandle {
	out := make([]model.HACandle, n)
	for i := range out {
		c := start + float64(i)*step
		out[i] = haCandle(c+1, c-1, c)
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

func firstValid(series []model.OptFloat) int {
	for i, v := range series {
		if v.Valid {
			return i
		}
	}
	return -1
}

// ────────────────────────────────────────────────────────────
// SMMA Correctness
// ────────────────────────────────────────────────────────────

func TestSMMA_Correctness_Period3(t *testing.T) {
	// Values: 1, 2, 3, 4, 5
	// Seed at index 2: (1+2+3)/3 = 2
	// Index 3: (2*2 + 4)/3 = 2.666667
	// Index 4: (2.666667*2 + 5)/3 = 3.444444
	got := CalculateSMMA([]float64{1, 2, 3, 4, 5}, 3)
	want := []model.OptFloat{model.None, model.None, model.Some(2), model.Some(8.0 / 3), model.Some(31.0 / 9)}

	for i := range want {
		if got[i].Valid != want[i].Valid {
			t.Fatalf("index %d: Valid=%v, want %v", i, got[i].Valid, want[i].Valid)
		}
		if want[i].Valid {
			assertClose(t, "SMMA(3)", got[i].Value, want[i].Value, 1e-9)
		}
	}
}

func TestSMMA_Recurrence(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = 100 + math.Sin(float64(i)/3)*5
	}
	const p = 13
	got := CalculateSMMA(values, p)
	if firstValid(got) != p-1 {
		t.Fatalf("first valid index = %d, want %d", firstValid(got), p-1)
	}
	for i := p; i < len(values); i++ {
		want := (got[i-1].Value*(p-1) + values[i]) / p
		assertClose(t, "SMMA recurrence", got[i].Value, want, 1e-9)
	}
}

func TestSMMA_Degenerate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		values []float64
		period int
	}{
		{"shorter than period", []float64{1, 2}, 3},
		{"zero period", []float64{1, 2, 3}, 0},
		{"negative period", []float64{1, 2, 3}, -2},
		{"empty", nil, 5},
	} {
		got := CalculateSMMA(tc.values, tc.period)
		if len(got) != len(tc.values) {
			t.Errorf("%s: len=%d, want %d", tc.name, len(got), len(tc.values))
		}
		if firstValid(got) != -1 {
			t.Errorf("%s: expected all-invalid output, got %v", tc.name, got)
		}
	}
}

func TestSMA_InvalidSamplePropagates(t *testing.T) {
	in := []model.OptFloat{model.Some(1), model.None, model.Some(3), model.Some(5), model.Some(7), model.Some(0)}
	got := smaOpt(in, 2)

	wantValid := []bool{false, false, false, true, true, true}
	for i, v := range got {
		if v.Valid != wantValid[i] {
			t.Errorf("index %d: Valid=%v, want %v", i, v.Valid, wantValid[i])
		}
	}
	assertClose(t, "SMA(2)[3]", got[3].Value, 4, 1e-12)
	assertClose(t, "SMA(2)[5]", got[5].Value, 3.5, 1e-12)
}

// ────────────────────────────────────────────────────────────
// Alligator
// ────────────────────────────────────────────────────────────

func TestAlligator_Offsets(t *testing.T) {
	ha := trend(40, 100, 0.7)
	p := DefaultParams()
	all := CalculateAlligator(ha, p)

	for _, tc := range []struct {
		name   string
		line   []model.OptFloat
		period int
		shift  int
		first  int
	}{
		{"jaw", all.Jaw, 13, 8, 20},
		{"teeth", all.Teeth, 8, 5, 12},
		{"lips", all.Lips, 5, 3, 7},
	} {
		if got := firstValid(tc.line); got != tc.first {
			t.Errorf("%s: first valid index %d, want %d", tc.name, got, tc.first)
		}
		raw := CalculateSMMA(closes(ha), tc.period)
		for i := tc.shift; i < len(ha); i++ {
			if tc.line[i] != raw[i-tc.shift] {
				t.Fatalf("%s[%d] = %v, want smma[%d] = %v", tc.name, i, tc.line[i], i-tc.shift, raw[i-tc.shift])
			}
		}
	}
}

func TestAlligator_TrendingUp_Ordering(t *testing.T) {
	// With steadily rising prices, the fast line sits above the slow ones.
	ha := trend(30, 100, 1)
	all := CalculateAlligator(ha, DefaultParams())
	last := len(ha) - 1

	lips, teeth, jaw := all.Lips[last].Value, all.Teeth[last].Value, all.Jaw[last].Value
	if !(lips > teeth && teeth > jaw) {
		t.Errorf("uptrend ordering broken: lips=%.2f teeth=%.2f jaw=%.2f", lips, teeth, jaw)
	}
}

func TestAlligator_TrendingDown_Ordering(t *testing.T) {
	ha := trend(30, 200, -1)
	all := CalculateAlligator(ha, DefaultParams())
	last := len(ha) - 1

	lips, teeth, jaw := all.Lips[last].Value, all.Teeth[last].Value, all.Jaw[last].Value
	if !(lips < teeth && teeth < jaw) {
		t.Errorf("downtrend ordering broken: lips=%.2f teeth=%.2f jaw=%.2f", lips, teeth, jaw)
	}
}

// ────────────────────────────────────────────────────────────
// Stochastic
// ────────────────────────────────────────────────────────────

func TestStochastic_Warmup(t *testing.T) {
	ha := make([]model.HACandle, 40)
	for i := range ha {
		c := 100 + math.Sin(float64(i)/2)*4
		ha[i] = haCandle(c+1, c-1, c)
	}
	st := CalculateStochastic(ha, 14, 3, 3)

	if got := firstValid(st.K); got != 17 {
		t.Errorf("%%K first valid index = %d, want 17", got)
	}
	if got := firstValid(st.D); got != 17 {
		t.Errorf("%%D first valid index = %d, want 17", got)
	}
	for i := 0; i < 17; i++ {
		if st.K[i].Valid || st.D[i].Valid {
			t.Errorf("index %d: %%K=%v %%D=%v valid during warm-up", i, st.K[i], st.D[i])
		}
	}
	for i := 17; i < len(ha); i++ {
		for _, v := range []model.OptFloat{st.K[i], st.D[i]} {
			if !v.Valid || v.Value < 0 || v.Value > 100 {
				t.Errorf("index %d: value %v outside [0,100]", i, v)
			}
		}
	}
}

func TestStochastic_Extremes(t *testing.T) {
	// Close on the high of a rising series: raw %K = 100 every candle.
	up := make([]model.HACandle, 25)
	for i := range up {
		c := 100 + float64(i)
		up[i] = haCandle(c, c-2, c)
	}
	st := CalculateStochastic(up, 14, 3, 3)
	assertClose(t, "K at top", st.K[24].Value, 100, 1e-9)
	assertClose(t, "D at top", st.D[24].Value, 100, 1e-9)

	// Close on the low of a falling series: raw %K = 0, which is a real value.
	down := make([]model.HACandle, 25)
	for i := range down {
		c := 200 - float64(i)
		down[i] = haCandle(c+2, c, c)
	}
	st = CalculateStochastic(down, 14, 3, 3)
	if !st.K[24].Valid || st.K[24].Value != 0 {
		t.Errorf("K at bottom = %v, want valid 0", st.K[24])
	}
	if !st.D[24].Valid || st.D[24].Value != 0 {
		t.Errorf("D at bottom = %v, want valid 0", st.D[24])
	}
}

func TestStochastic_FlatWindow(t *testing.T) {
	ha := make([]model.HACandle, 30)
	for i := range ha {
		ha[i] = haCandle(50, 50, 50)
	}
	st := CalculateStochastic(ha, 14, 3, 3)
	if firstValid(st.K) != -1 || firstValid(st.D) != -1 {
		t.Errorf("flat window should leave K and D invalid, got K=%v D=%v", st.K[29], st.D[29])
	}
}

// ────────────────────────────────────────────────────────────
// Vortex
// ────────────────────────────────────────────────────────────

func TestVortex_HandCalculated(t *testing.T) {
	// period 2, (H,L,C): (10,8,9) (11,9,10) (12,10,11)
	// j=1: VM+=|11-8|=3  VM-=|9-10|=1  TR=max(2,2,0)=2
	// j=2: VM+=|12-9|=3  VM-=|10-11|=1 TR=max(2,2,0)=2
	// i=2: VI+ = 6/4 = 1.5, VI- = 2/4 = 0.5
	ha := []model.HACandle{haCandle(10, 8, 9), haCandle(11, 9, 10), haCandle(12, 10, 11)}
	vx := CalculateVortex(ha, 2)

	if vx.Plus[0].Valid || vx.Plus[1].Valid || vx.Minus[1].Valid {
		t.Errorf("indices < period must be invalid: %v %v", vx.Plus, vx.Minus)
	}
	assertClose(t, "VI+", vx.Plus[2].Value, 1.5, 1e-12)
	assertClose(t, "VI-", vx.Minus[2].Value, 0.5, 1e-12)
}

func TestVortex_FirstValidIndex(t *testing.T) {
	vx := CalculateVortex(trend(30, 100, 0.5), 14)
	if got := firstValid(vx.Plus); got != 14 {
		t.Errorf("VI+ first valid index = %d, want 14", got)
	}
	if got := firstValid(vx.Minus); got != 14 {
		t.Errorf("VI- first valid index = %d, want 14", got)
	}
}

func TestVortex_FlatWindowIsInvalid(t *testing.T) {
	ha := trend(10, 100, 1)
	for i := 0; i < 16; i++ {
		ha = append(ha, haCandle(120, 120, 120))
	}
	vx := CalculateVortex(ha, 14)

	// Index 25 covers pairs 12..25, all of which are flat.
	if vx.Plus[25].Valid || vx.Minus[25].Valid {
		t.Errorf("TR == 0 must leave both lines invalid, got %v / %v", vx.Plus[25], vx.Minus[25])
	}
	if !vx.Plus[14].Valid {
		t.Errorf("window with a price move should be valid at 14")
	}
}

// ────────────────────────────────────────────────────────────
// ATR & structure
// ────────────────────────────────────────────────────────────

func TestATR_WilderSmoothing(t *testing.T) {
	// TR: j=1 -> 2, j=2 -> 2, j=3 -> max(3, |14-11|, |11-11|) = 3
	// ATR(2)[2] = (2+2)/2 = 2, ATR(2)[3] = (2*1 + 3)/2 = 2.5
	ha := []model.HACandle{
		haCandle(10, 8, 9), haCandle(11, 9, 10), haCandle(12, 10, 11), haCandle(14, 11, 13),
	}
	atr := CalculateATR(ha, 2)
	if atr[0].Valid || atr[1].Valid {
		t.Errorf("ATR before period must be invalid: %v", atr)
	}
	assertClose(t, "ATR[2]", atr[2].Value, 2, 1e-9)
	assertClose(t, "ATR[3]", atr[3].Value, 2.5, 1e-9)

	if got := CalculateATR(ha[:2], 2); firstValid(got) != -1 {
		t.Errorf("short window should be all-invalid, got %v", got)
	}
}

func TestDetectStructure(t *testing.T) {
	calm := trend(25, 100, 0.01)
	ms := DetectStructure(calm, 24, 20)
	if ms.Pattern != PatternConsolidation || ms.HighVolatility {
		t.Errorf("calm window: got %+v, want consolidation", ms)
	}
	if !ms.NearResistance {
		t.Errorf("last candle of a rising window should be near resistance: %+v", ms)
	}
	if ms.NearSupport {
		t.Errorf("last candle of a rising window should not be near support: %+v", ms)
	}

	wild := make([]model.HACandle, 25)
	for i := range wild {
		c := 100.0
		if i%2 == 0 {
			c = 130
		}
		wild[i] = haCandle(c+1, c-1, c)
	}
	ms = DetectStructure(wild, 24, 20)
	if ms.Pattern != PatternVolatile || !ms.HighVolatility {
		t.Errorf("alternating window: got %+v, want volatile", ms)
	}
	assertClose(t, "price range", ms.PriceRange, 32, 1e-9)

	if got := DetectStructure(calm, 19, 20); got != (model.MarketStructure{}) {
		t.Errorf("index < lookback should give zero structure, got %+v", got)
	}
}

func TestQuantile_LinearInterpolation(t *testing.T) {
	v := []float64{4, 1, 3, 2, 5}
	assertClose(t, "q0.9", quantile(v, 0.9), 4.6, 1e-12)
	assertClose(t, "q0.1", quantile(v, 0.1), 1.4, 1e-12)
	assertClose(t, "q0.5", quantile(v, 0.5), 3, 1e-12)
}

// ────────────────────────────────────────────────────────────
// Compute & params
// ────────────────────────────────────────────────────────────

func TestCompute_MergesSeries(t *testing.T) {
	ha := trend(30, 100, 0.5)
	p := DefaultParams()
	frames, err := Compute(ha, p)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(frames) != len(ha) {
		t.Fatalf("len(frames) = %d, want %d", len(frames), len(ha))
	}

	all := CalculateAlligator(ha, p)
	st := CalculateStochastic(ha, p.KPeriod, p.KSmooth, p.DSmooth)
	vx := CalculateVortex(ha, p.VortexPeriod)
	for i, f := range frames {
		if f.Jaw != all.Jaw[i] || f.Lips != all.Lips[i] || f.K != st.K[i] || f.D != st.D[i] || f.VIPlus != vx.Plus[i] {
			t.Fatalf("frame %d does not match the individual series", i)
		}
	}
}

func TestCompute_Idempotent(t *testing.T) {
	ha := trend(30, 100, -0.3)
	a, _ := Compute(ha, DefaultParams())
	b, _ := Compute(ha, DefaultParams())
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("frame %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestCompute_OverflowIsMalformedInput(t *testing.T) {
	ha := make([]model.HACandle, 30)
	for i := range ha {
		ha[i] = haCandle(1e308, 1e308, 1e308)
	}

	frames, err := Compute(ha, DefaultParams())
	if !errors.Is(err, model.ErrMalformedInput) {
		t.Fatalf("err = %v, want ErrMalformedInput", err)
	}
	if frames != nil {
		t.Errorf("frames = %d, want nil on error", len(frames))
	}
	var me *model.MalformedInputError
	if !errors.As(err, &me) {
		t.Fatalf("err = %T, want *model.MalformedInputError", err)
	}
	if me.Field != "lips" && me.Field != "teeth" && me.Field != "jaw" {
		t.Errorf("field = %q, want an alligator line", me.Field)
	}
}

func TestParams(t *testing.T) {
	p := DefaultParams()
	if p.StochWarmup() != 17 {
		t.Errorf("StochWarmup = %d, want 17", p.StochWarmup())
	}
	if p.MinCandles() != 20 {
		t.Errorf("MinCandles = %d, want 20", p.MinCandles())
	}

	bad := p
	bad.VortexPeriod = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero vortex period")
	}
	bad = p
	bad.JawShift = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative shift")
	}
	if _, err := Compute(nil, bad); err == nil || errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("Compute with invalid params: got %v", err)
	}
}

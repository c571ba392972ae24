package signal

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"tripleconfirm/internal/model"
	"tripleconfirm/internal/signal/signaltest"
)

const triggerIndex = signaltest.TriggerIndex

func bullishWindow() []model.Candle { return signaltest.BullishWindow() }
func bearishWindow() []model.Candle { return signaltest.BearishWindow() }

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f)", label, got, want, tol)
	}
}

func fired(signals []model.Signal) []int {
	var idx []int
	for _, s := range signals {
		if s.EntrySignal != model.EntryNone {
			idx = append(idx, s.Index)
		}
	}
	return idx
}

func TestPipeline_BullishTripleConfirmation(t *testing.T) {
	signals, err := NewPipeline(DefaultConfig()).Run(bullishWindow())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(signals) != len(bullishWindow()) {
		t.Fatalf("got %d signals, want one per candle", len(signals))
	}
	if got := fired(signals); !reflect.DeepEqual(got, []int{triggerIndex}) {
		t.Fatalf("fired at %v, want [%d]", got, triggerIndex)
	}

	s := signals[triggerIndex]
	if !s.AlligatorBuy || !s.StochBuy || !s.VortexBuy || s.BuyPoints != 3 || s.SellPoints != 0 {
		t.Errorf("votes: %+v", s)
	}
	if !s.BuySignalBase || !s.BuySignal || s.SellSignal || s.EntrySignal != model.EntryBuy {
		t.Errorf("flags: base=%v buy=%v sell=%v entry=%d", s.BuySignalBase, s.BuySignal, s.SellSignal, s.EntrySignal)
	}
	if !s.MouthOpen || !s.BreakoutChecked {
		t.Errorf("mouthOpen=%v breakoutChecked=%v", s.MouthOpen, s.BreakoutChecked)
	}
	want := model.BreakoutResult{Valid: true, Reason: model.ReasonValidProgressive, Rank: 1}
	if s.Breakout != want {
		t.Errorf("breakout = %+v, want %+v", s.Breakout, want)
	}
	assertClose(t, "quality", s.Quality, 0.3+0.3+0.4/3, 1e-12)

	k, d := s.Indicators.K, s.Indicators.D
	if !k.Valid || !d.Valid || k.Value <= 80 || d.Value <= 80 {
		t.Errorf("stochastic at trigger: k=%v d=%v", k, d)
	}
	if !s.Indicators.ATR.Valid {
		t.Errorf("ATR should be valid at index %d", triggerIndex)
	}
	if s.Structure.Pattern == "" {
		t.Errorf("structure should be detected at index %d", triggerIndex)
	}
}

func TestPipeline_BearishTripleConfirmation(t *testing.T) {
	signals, err := NewPipeline(DefaultConfig()).Run(bearishWindow())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := fired(signals); !reflect.DeepEqual(got, []int{triggerIndex}) {
		t.Fatalf("fired at %v, want [%d]", got, triggerIndex)
	}

	s := signals[triggerIndex]
	if s.SellPoints != 3 || !s.SellSignal || s.EntrySignal != model.EntrySell {
		t.Errorf("sell signal: points=%d sell=%v entry=%d", s.SellPoints, s.SellSignal, s.EntrySignal)
	}
	if s.Indicators.K.Value >= 20 || s.Indicators.D.Value >= 20 {
		t.Errorf("stochastic should be oversold: k=%v d=%v", s.Indicators.K, s.Indicators.D)
	}
	assertClose(t, "quality", s.Quality, 0.3+0.3+0.4/3, 1e-12)
}

func TestPipeline_FilterDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableBreakoutFilter = false
	signals, err := NewPipeline(cfg).Run(bullishWindow())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	s := signals[triggerIndex]
	if s.BreakoutChecked || s.Breakout != (model.BreakoutResult{}) {
		t.Errorf("breakout must not be computed when the filter is off: %+v", s.Breakout)
	}
	if s.EntrySignal != model.EntryBuy {
		t.Fatalf("entry = %d, want buy", s.EntrySignal)
	}
	assertClose(t, "quality without rank", s.Quality, 0.6, 1e-12)
}

func TestPipeline_Analyze(t *testing.T) {
	rep, err := NewPipeline(DefaultConfig()).Analyze("TEST", bullishWindow())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.TotalCandles != 25 || rep.TotalSignals != 1 || rep.BuySignals != 1 || rep.SellSignals != 0 {
		t.Errorf("report counts: %+v", rep)
	}
	if rep.Latest == nil || rep.Latest.Type != model.SignalTypeBuy || rep.Latest.BreakoutRank != 1 {
		t.Fatalf("latest = %+v", rep.Latest)
	}
	if !rep.Latest.TS.Equal(bullishWindow()[triggerIndex].TS) {
		t.Errorf("latest ts = %v", rep.Latest.TS)
	}
	if rep.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not stamped")
	}

	cfg := DefaultConfig()
	cfg.MinSignalQuality = 0.9
	rep, err = NewPipeline(cfg).Analyze("TEST", bullishWindow())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.TotalSignals != 0 || rep.Latest != nil {
		t.Errorf("quality threshold 0.9 should drop the signal: %+v", rep)
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	p := NewPipeline(DefaultConfig())
	in := bullishWindow()
	first, err := p.Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := p.Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same window differ")
	}
	if !reflect.DeepEqual(in, bullishWindow()) {
		t.Error("Run mutated its input")
	}
}

func TestPipeline_Errors(t *testing.T) {
	p := NewPipeline(DefaultConfig())

	_, err := p.Run(bullishWindow()[:19])
	var ide *model.InsufficientDataError
	if !errors.As(err, &ide) || ide.Need != 20 || ide.Have != 19 {
		t.Errorf("19 candles: got %v", err)
	}

	bad := bullishWindow()
	bad[7].Close = math.Inf(1)
	if _, err := p.Run(bad); !errors.Is(err, model.ErrMalformedInput) {
		t.Errorf("infinite close: got %v", err)
	}

	bad = bullishWindow()
	bad[10].TS = bad[9].TS
	if _, err := p.Run(bad); !errors.Is(err, model.ErrMalformedInput) {
		t.Errorf("repeated timestamp: got %v", err)
	}

	cfg := DefaultConfig()
	cfg.Params.VortexPeriod = 0
	if _, err := NewPipeline(cfg).Run(bullishWindow()); err == nil {
		t.Error("invalid params should fail")
	}
}

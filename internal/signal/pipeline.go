package signal

import (
	"fmt"
	"time"

	"tripleconfirm/internal/heikinashi"
	"tripleconfirm/internal/indicator"
	"tripleconfirm/internal/model"
	"tripleconfirm/internal/report"
)

// Pipeline runs the full candle -> signal computation for one window.
type Pipeline struct {
	agg *Aggregator
}

// NewPipeline creates a pipeline with the given config.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{agg: NewAggregator(cfg)}
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.agg.Config }

// Run validates and normalizes candles, computes the indicators and
// evaluates every index. It fails without partial output when the window
// is shorter than Params.MinCandles or any candle is malformed.
func (p *Pipeline) Run(candles []model.Candle) ([]model.Signal, error) {
	cfg := p.agg.Config
	if need := cfg.Params.MinCandles(); len(candles) < need {
		return nil, &model.InsufficientDataError{Stage: "pipeline", Have: len(candles), Need: need}
	}

	ha, err := heikinashi.Convert(candles)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	frames, err := indicator.Compute(ha, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("indicators: %w", err)
	}
	signals, err := p.agg.Evaluate(ha, frames)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return signals, nil
}

// Analyze runs the pipeline and builds the filtered report for symbol.
func (p *Pipeline) Analyze(symbol string, candles []model.Candle) (model.Report, error) {
	signals, err := p.Run(candles)
	if err != nil {
		return model.Report{}, fmt.Errorf("analyze %s: %w", symbol, err)
	}
	rep := report.Build(symbol, signals, p.agg.Config.MinSignalQuality)
	rep.GeneratedAt = time.Now().UTC()
	return rep, nil
}

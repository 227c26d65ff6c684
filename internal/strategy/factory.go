// Package strategy turns bar history into per-bar trading signals consumed by
// the backtest engine.
package strategy

import (
	"strings"

	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
)

// Strategy defines behaviour shared by strategy implementations. Signals
// returns exactly one decision per input bar, aligned index-for-index.
type Strategy interface {
	Signals(bars []sig.Bar) []sig.Signal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	RSIPeriod     int
	RSIOversold   float64
	RSIOverbought float64
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
	BBPeriod      int
	BBStdDev      float64
	FastSMA       int
	SlowSMA       int
	MinEdge       float64
	Predictions   []float64 // precomputed model output, aligned with bars
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "consensus", "indicator":
		return NewConsensus(params)
	case "sma", "sma_cross":
		return NewSMACross(params.FastSMA, params.SlowSMA)
	case "model", "predictor":
		return NewModel(params.Predictions, params.MinEdge)
	default:
		return NewConsensus(params)
	}
}

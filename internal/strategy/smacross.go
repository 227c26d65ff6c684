package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"

	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
)

// SMACross signals on fast/slow moving-average crossovers: BUY when the fast
// average crosses above the slow one, SELL when it crosses below.
type SMACross struct {
	fast int
	slow int
}

// NewSMACross builds the crossover strategy, defaulting to 20/50 periods.
// The fast period is clamped below the slow one.
func NewSMACross(fast, slow int) *SMACross {
	if fast <= 0 {
		fast = 20
	}
	if slow <= 0 {
		slow = 50
	}
	if fast >= slow {
		fast = slow / 2
		if fast < 1 {
			fast = 1
		}
	}
	return &SMACross{fast: fast, slow: slow}
}

// Name returns the configured identifier for logging.
func (s *SMACross) Name() string { return "SMACross" }

// Signals emits a decision at each crossover bar and HOLD everywhere else.
func (s *SMACross) Signals(bars []sig.Bar) []sig.Signal {
	out := make([]sig.Signal, len(bars))
	for i := range bars {
		out[i] = sig.Signal{Action: sig.Hold, Ts: bars[i].Ts}
	}
	if len(bars) <= s.slow {
		return out
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	fast := talib.Sma(closes, s.fast)
	slow := talib.Sma(closes, s.slow)

	for i := s.slow; i < len(bars); i++ {
		prevDiff := fast[i-1] - slow[i-1]
		diff := fast[i] - slow[i]
		switch {
		case prevDiff <= 0 && diff > 0:
			out[i].Action = sig.Buy
		case prevDiff >= 0 && diff < 0:
			out[i].Action = sig.Sell
		default:
			continue
		}
		out[i].Confidence = 1
		out[i].Reason = fmt.Sprintf("sma%d=%.4f sma%d=%.4f", s.fast, fast[i], s.slow, slow[i])
	}
	return out
}

package strategy

import (
	"testing"

	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
)

func TestSMACrossSignalsOnCrossovers(t *testing.T) {
	// Flat, then a step up (fast crosses above slow), then a step down.
	closes := make([]float64, 0, 90)
	for i := 0; i < 30; i++ {
		closes = append(closes, 100)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 200)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 50)
	}

	strat := NewSMACross(5, 20)
	signals := strat.Signals(barsFromCloses(closes))
	if len(signals) != len(closes) {
		t.Fatalf("expected %d signals, got %d", len(closes), len(signals))
	}

	var buys, sells int
	var firstBuy, firstSell int
	for i, s := range signals {
		switch s.Action {
		case sig.Buy:
			buys++
			if firstBuy == 0 {
				firstBuy = i
			}
		case sig.Sell:
			sells++
			if firstSell == 0 {
				firstSell = i
			}
		}
	}
	if buys != 1 || sells != 1 {
		t.Fatalf("expected exactly one buy and one sell, got %d/%d", buys, sells)
	}
	if firstBuy < 30 || firstBuy >= 60 {
		t.Fatalf("buy crossover outside the step-up regime: %d", firstBuy)
	}
	if firstSell <= firstBuy {
		t.Fatalf("sell crossover before buy: %d <= %d", firstSell, firstBuy)
	}
}

func TestSMACrossShortSeriesAllHold(t *testing.T) {
	strat := NewSMACross(5, 20)
	for _, s := range strat.Signals(barsFromCloses([]float64{1, 2, 3})) {
		if s.Action != sig.Hold {
			t.Fatalf("expected HOLD for short series")
		}
	}
}

func TestSMACrossClampsFastPeriod(t *testing.T) {
	strat := NewSMACross(50, 20)
	if strat.fast >= strat.slow {
		t.Fatalf("fast period not clamped: %d >= %d", strat.fast, strat.slow)
	}
}

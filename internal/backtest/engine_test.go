package backtest

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gnanam1990/ai-trading-signals/internal/signal"
)

func barAt(i int, close float64) signal.Bar {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour)
	return signal.Bar{Ts: ts, Open: close, High: close, Low: close, Close: close}
}

func series(closes []float64, actions []signal.Action, sizes []float64) ([]signal.Bar, []signal.Signal) {
	bars := make([]signal.Bar, len(closes))
	sigs := make([]signal.Signal, len(closes))
	for i, c := range closes {
		bars[i] = barAt(i, c)
		sigs[i] = signal.Signal{Action: actions[i], Ts: bars[i].Ts}
		if sizes != nil {
			sigs[i].Size = sizes[i]
		}
	}
	return bars, sigs
}

func TestNewEngineRejectsNonPositiveBalance(t *testing.T) {
	for _, balance := range []float64{0, -100} {
		if _, err := NewEngine(balance); err == nil {
			t.Fatalf("expected error for balance %.2f", balance)
		}
	}
}

func TestRunEmptyInputs(t *testing.T) {
	engine, err := NewEngine(DefaultInitialBalance)
	if err != nil {
		t.Fatalf("NewEngine error: %v", err)
	}
	res, err := engine.Run(nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res != (Result{}) {
		t.Fatalf("expected zero result for empty run, got %+v", res)
	}
}

func TestRunLengthMismatch(t *testing.T) {
	engine, _ := NewEngine(DefaultInitialBalance)
	bars := []signal.Bar{barAt(0, 100)}
	if _, err := engine.Run(bars, nil); err == nil {
		t.Fatalf("expected error for mismatched lengths")
	}
}

func TestRunFIFOOrdering(t *testing.T) {
	engine, _ := NewEngine(DefaultInitialBalance)
	bars, sigs := series(
		[]float64{10, 20, 15, 25},
		[]signal.Action{signal.Buy, signal.Buy, signal.Sell, signal.Sell},
		[]float64{1, 1, 0, 0},
	)
	res, err := engine.Run(bars, sigs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	trades := engine.Trades()
	if res.NumTrades != 2 || len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", res.NumTrades)
	}
	// First sell must close the oldest open position (entry 10), never the newest.
	if trades[0].EntryPrice != 10 || trades[0].ExitPrice != 15 {
		t.Fatalf("unexpected first trade: %+v", trades[0])
	}
	if trades[1].EntryPrice != 20 || trades[1].ExitPrice != 25 {
		t.Fatalf("unexpected second trade: %+v", trades[1])
	}
	if trades[0].PnL != 5 || trades[1].PnL != 5 {
		t.Fatalf("unexpected pnl: %+v %+v", trades[0], trades[1])
	}
}

func TestRunSellWithoutPositionIsNoOp(t *testing.T) {
	engine, _ := NewEngine(DefaultInitialBalance)
	bars, sigs := series(
		[]float64{100, 110},
		[]signal.Action{signal.Sell, signal.Sell},
		nil,
	)
	res, err := engine.Run(bars, sigs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.NumTrades != 0 {
		t.Fatalf("expected no trades, got %d", res.NumTrades)
	}
	if engine.Balance() != DefaultInitialBalance {
		t.Fatalf("balance mutated without trades: %.2f", engine.Balance())
	}
}

func TestRunDefaultSize(t *testing.T) {
	engine, _ := NewEngine(DefaultInitialBalance)
	bars, sigs := series(
		[]float64{100, 110},
		[]signal.Action{signal.Buy, signal.Sell},
		nil, // no explicit size on the buy
	)
	if _, err := engine.Run(bars, sigs); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	trades := engine.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].Size != DefaultSize {
		t.Fatalf("expected default size %.2f, got %.2f", DefaultSize, trades[0].Size)
	}
	if math.Abs(trades[0].PnL-1.0) > 1e-9 { // (110-100)*0.1
		t.Fatalf("unexpected pnl %.4f", trades[0].PnL)
	}
}

func TestRunConcreteScenario(t *testing.T) {
	engine, _ := NewEngine(10000)
	bars, sigs := series(
		[]float64{100, 110, 110, 90},
		[]signal.Action{signal.Buy, signal.Sell, signal.Buy, signal.Sell},
		[]float64{1, 0, 1, 0},
	)
	res, err := engine.Run(bars, sigs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if res.NumTrades != 2 {
		t.Fatalf("expected 2 trades, got %d", res.NumTrades)
	}
	if math.Abs(engine.Balance()-9990) > 1e-9 {
		t.Fatalf("expected final balance 9990, got %.4f", engine.Balance())
	}
	if math.Abs(res.TotalReturn-(-0.001)) > 1e-12 {
		t.Fatalf("expected total return -0.001, got %.6f", res.TotalReturn)
	}
	if res.WinRate != 50 {
		t.Fatalf("expected win rate 50, got %.2f", res.WinRate)
	}
	// Peak equity 10010 after the first trade, 9990 after the second.
	wantDD := (10010.0 - 9990.0) / 10010.0 * 100
	if math.Abs(res.MaxDrawdown-wantDD) > 1e-9 {
		t.Fatalf("expected max drawdown %.6f, got %.6f", wantDD, res.MaxDrawdown)
	}
	// mean pnl -5, population stddev 15
	if math.Abs(res.SharpeRatio-(-5.0/15.0)) > 1e-6 {
		t.Fatalf("unexpected sharpe %.6f", res.SharpeRatio)
	}
}

func TestRunBalanceConsistency(t *testing.T) {
	engine, _ := NewEngine(10000)
	bars, sigs := series(
		[]float64{100, 105, 98, 120, 80, 130},
		[]signal.Action{signal.Buy, signal.Buy, signal.Sell, signal.Buy, signal.Sell, signal.Sell},
		[]float64{2, 1, 0, 3, 0, 0},
	)
	if _, err := engine.Run(bars, sigs); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	sum := 0.0
	for _, trade := range engine.Trades() {
		sum += trade.PnL
	}
	if math.Abs(engine.Balance()-(10000+sum)) > 1e-9 {
		t.Fatalf("balance %.4f does not equal initial + pnl sum %.4f", engine.Balance(), 10000+sum)
	}
}

func TestRunOpenPositionsExcluded(t *testing.T) {
	engine, _ := NewEngine(10000)
	bars, sigs := series(
		[]float64{100, 200},
		[]signal.Action{signal.Buy, signal.Hold},
		[]float64{1, 0},
	)
	res, err := engine.Run(bars, sigs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if engine.OpenPositions() != 1 {
		t.Fatalf("expected 1 open position, got %d", engine.OpenPositions())
	}
	// Unrealized gains never reach the metrics.
	if res.TotalReturn != 0 || res.NumTrades != 0 {
		t.Fatalf("open position leaked into result: %+v", res)
	}
}

func TestRunRecordsTrades(t *testing.T) {
	var recorded []Trade
	rec := recorderFunc(func(tr Trade) { recorded = append(recorded, tr) })

	engine, _ := NewEngine(10000, WithRecorder(rec))
	bars, sigs := series(
		[]float64{100, 110},
		[]signal.Action{signal.Buy, signal.Sell},
		[]float64{1, 0},
	)
	if _, err := engine.Run(bars, sigs); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(recorded) != 1 || recorded[0].PnL != 10 {
		t.Fatalf("recorder did not observe the trade: %+v", recorded)
	}
}

type recorderFunc func(Trade)

func (f recorderFunc) Record(tr Trade) { f(tr) }

func TestRunLogsLifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	engine, _ := NewEngine(10000, WithLogger(logger))
	bars, sigs := series(
		[]float64{100, 110},
		[]signal.Action{signal.Buy, signal.Sell},
		[]float64{1, 0},
	)
	if _, err := engine.Run(bars, sigs); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "backtest run started") || !strings.Contains(out, "backtest run finished") {
		t.Fatalf("missing lifecycle log events: %s", out)
	}
}

func TestReset(t *testing.T) {
	engine, _ := NewEngine(10000)
	bars, sigs := series(
		[]float64{100, 90, 95},
		[]signal.Action{signal.Buy, signal.Sell, signal.Buy},
		[]float64{1, 0, 1},
	)
	if _, err := engine.Run(bars, sigs); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	engine.Reset()
	if engine.Balance() != 10000 || engine.OpenPositions() != 0 || len(engine.Trades()) != 0 {
		t.Fatalf("reset did not restore pristine state")
	}

	res, err := engine.Run(nil, nil)
	if err != nil {
		t.Fatalf("Run after reset returned error: %v", err)
	}
	if res != (Result{}) {
		t.Fatalf("expected zero result after reset, got %+v", res)
	}
}

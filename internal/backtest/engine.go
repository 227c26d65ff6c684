// Package backtest replays strategy signals against historical bars using a
// simulated account and derives performance metrics from the resulting trade
// ledger.
package backtest

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gnanam1990/ai-trading-signals/internal/metrics"
	"github.com/gnanam1990/ai-trading-signals/internal/signal"
)

const (
	// DefaultInitialBalance seeds the simulated account when the caller has
	// no opinion.
	DefaultInitialBalance = 10000.0
	// DefaultSize is the position size applied to BUY signals that carry none.
	DefaultSize = 0.1
)

// ErrInitialBalance rejects construction with a non-positive bankroll.
var ErrInitialBalance = errors.New("initial balance must be positive")

// Option configures Engine construction.
type Option func(*Engine)

// WithLogger injects the observability sink. The engine is silent by default.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRecorder attaches a recorder that receives every closed trade.
func WithRecorder(rec TradeRecorder) Option {
	return func(e *Engine) { e.recorder = rec }
}

// Engine owns the simulated account state for one backtest run: cash balance,
// the FIFO queue of open positions, and the append-only trade ledger. It is
// not safe for concurrent use; treat one engine as single-use per run or call
// Reset before reuse.
type Engine struct {
	log      zerolog.Logger
	recorder TradeRecorder

	initialBalance float64
	balance        float64
	open           []Position
	ledger         *Ledger
}

// NewEngine constructs an engine with the given starting balance.
func NewEngine(initialBalance float64, opts ...Option) (*Engine, error) {
	if initialBalance <= 0 {
		return nil, ErrInitialBalance
	}
	e := &Engine{
		log:            zerolog.Nop(),
		initialBalance: initialBalance,
		balance:        initialBalance,
		ledger:         NewLedger(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run replays the signal series against the price series, one index at a
// time, and returns the summary metrics. Bars and signals must be aligned
// index-for-index; both empty is a legal degenerate run.
//
// BUY always opens a fresh position at the bar's close: there is no cap on
// concurrently open positions and no balance check, fills are perfect and
// instantaneous. SELL closes the oldest open position (strict FIFO) and is a
// silent no-op when nothing is open. Positions still open after the last bar
// are not force-closed and contribute nothing to the metrics.
func (e *Engine) Run(bars []signal.Bar, signals []signal.Signal) (Result, error) {
	if len(bars) != len(signals) {
		return Result{}, fmt.Errorf("bars/signals length mismatch: %d vs %d", len(bars), len(signals))
	}

	e.log.Info().Int("bars", len(bars)).Float64("balance", e.balance).Msg("backtest run started")

	for i, sig := range signals {
		bar := bars[i]
		switch sig.Action {
		case signal.Buy:
			size := sig.Size
			if size <= 0 {
				size = DefaultSize
			}
			e.open = append(e.open, Position{
				EntryPrice: bar.Close,
				Size:       size,
				OpenedAt:   bar.Ts,
			})
			e.log.Debug().Int("index", i).Float64("entry", bar.Close).Float64("size", size).Msg("opened position")

		case signal.Sell:
			if len(e.open) == 0 {
				// Nothing to close; best-effort simulation, not an error.
				continue
			}
			pos := e.open[0]
			e.open = e.open[1:]

			pnl := (bar.Close - pos.EntryPrice) * pos.Size
			e.balance += pnl

			trade := Trade{
				EntryPrice: pos.EntryPrice,
				ExitPrice:  bar.Close,
				Size:       pos.Size,
				PnL:        pnl,
				OpenedAt:   pos.OpenedAt,
				ClosedAt:   bar.Ts,
			}
			e.ledger.Record(trade)
			if e.recorder != nil {
				e.recorder.Record(trade)
			}
			metrics.TradesTotal.Inc()
			e.log.Debug().Int("index", i).Float64("entry", pos.EntryPrice).Float64("exit", bar.Close).Float64("pnl", pnl).Msg("closed trade")

		default:
			// HOLD or anything unrecognised leaves state untouched.
		}
	}

	result := computeResult(e.initialBalance, e.balance, e.ledger.Snapshot())
	e.log.Info().
		Int("trades", result.NumTrades).
		Int("still_open", len(e.open)).
		Float64("final_balance", e.balance).
		Float64("total_return", result.TotalReturn).
		Msg("backtest run finished")
	return result, nil
}

// Reset restores the starting balance and clears the open queue and ledger so
// the engine can be reused for another run.
func (e *Engine) Reset() {
	e.balance = e.initialBalance
	e.open = nil
	e.ledger.Reset()
}

// Balance returns the current cash balance.
func (e *Engine) Balance() float64 { return e.balance }

// OpenPositions reports how many positions remain open.
func (e *Engine) OpenPositions() int { return len(e.open) }

// Trades returns a copy of the ledger in close order.
func (e *Engine) Trades() []Trade { return e.ledger.Snapshot() }

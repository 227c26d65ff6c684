package backtest

import (
	"fmt"
	"math"
)

// epsilon keeps the sharpe denominator away from zero when every trade has
// identical PnL.
const epsilon = 1e-9

// Result is the immutable summary of one backtest run. MaxDrawdown and
// WinRate are percentages, TotalReturn is a fraction of the initial balance.
type Result struct {
	TotalReturn float64 `json:"total_return"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	MaxDrawdown float64 `json:"max_drawdown"`
	WinRate     float64 `json:"win_rate"`
	NumTrades   int     `json:"num_trades"`
}

func computeResult(initialBalance, finalBalance float64, trades []Trade) Result {
	return Result{
		TotalReturn: (finalBalance - initialBalance) / initialBalance,
		SharpeRatio: sharpeRatio(trades),
		MaxDrawdown: maxDrawdown(initialBalance, trades),
		WinRate:     winRate(trades),
		NumTrades:   len(trades),
	}
}

// winRate is the percentage of trades with strictly positive PnL.
func winRate(trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(trades)) * 100
}

// sharpeRatio is the simplified, unannualized variant: mean trade PnL over
// its population standard deviation. With fewer than two trades the variance
// carries no information, so the ratio is reported as zero.
func sharpeRatio(trades []Trade) float64 {
	if len(trades) < 2 {
		return 0
	}
	mean := 0.0
	for _, t := range trades {
		mean += t.PnL
	}
	mean /= float64(len(trades))

	variance := 0.0
	for _, t := range trades {
		d := t.PnL - mean
		variance += d * d
	}
	variance /= float64(len(trades))

	return mean / (math.Sqrt(variance) + epsilon)
}

// maxDrawdown replays the ledger against a running equity seeded at the
// initial balance, adding each trade's PnL exactly once, and reports the
// worst peak-to-equity decline as a percentage. The replay keeps its own
// equity; the engine's live balance has already absorbed every PnL.
func maxDrawdown(initialBalance float64, trades []Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	equity := initialBalance
	peak := initialBalance
	maxDD := 0.0
	for _, t := range trades {
		equity += t.PnL
		if equity > peak {
			peak = equity
		}
		if dd := (peak - equity) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD * 100
}

// Print writes a human-readable report block to stdout.
func (r Result) Print() {
	fmt.Println("\n=== Backtest Results ===")
	fmt.Printf("Total Trades:   %d\n", r.NumTrades)
	fmt.Printf("Total Return:   %.4f%%\n", r.TotalReturn*100)
	fmt.Printf("Win Rate:       %.2f%%\n", r.WinRate)
	fmt.Printf("Sharpe Ratio:   %.4f\n", r.SharpeRatio)
	fmt.Printf("Max Drawdown:   %.4f%%\n", r.MaxDrawdown)
}

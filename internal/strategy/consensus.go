package strategy

import (
	"fmt"

	"github.com/markcheno/go-talib"

	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
)

// Consensus votes three indicators per bar (RSI extremes, MACD vs its signal
// line, price vs Bollinger bands) and emits the majority action. A tie or no
// votes at all is a HOLD.
type Consensus struct {
	rsiPeriod     int
	rsiOversold   float64
	rsiOverbought float64
	macdFast      int
	macdSlow      int
	macdSignal    int
	bbPeriod      int
	bbStdDev      float64
}

// NewConsensus builds the indicator-vote strategy, filling unset knobs with
// the conventional defaults (RSI 14/30/70, MACD 12/26/9, Bollinger 20/2).
func NewConsensus(params Params) *Consensus {
	c := &Consensus{
		rsiPeriod:     params.RSIPeriod,
		rsiOversold:   params.RSIOversold,
		rsiOverbought: params.RSIOverbought,
		macdFast:      params.MACDFast,
		macdSlow:      params.MACDSlow,
		macdSignal:    params.MACDSignal,
		bbPeriod:      params.BBPeriod,
		bbStdDev:      params.BBStdDev,
	}
	if c.rsiPeriod <= 0 {
		c.rsiPeriod = 14
	}
	if c.rsiOversold <= 0 {
		c.rsiOversold = 30
	}
	if c.rsiOverbought <= 0 {
		c.rsiOverbought = 70
	}
	if c.macdFast <= 0 {
		c.macdFast = 12
	}
	if c.macdSlow <= 0 {
		c.macdSlow = 26
	}
	if c.macdSignal <= 0 {
		c.macdSignal = 9
	}
	if c.bbPeriod <= 0 {
		c.bbPeriod = 20
	}
	if c.bbStdDev <= 0 {
		c.bbStdDev = 2
	}
	return c
}

// Name returns the configured identifier for logging.
func (c *Consensus) Name() string { return "Consensus" }

// warmup is the first index at which every indicator has real values; talib
// emits zeros before its lookback and acting on those would fabricate votes.
func (c *Consensus) warmup() int {
	warm := c.rsiPeriod
	if macdWarm := c.macdSlow + c.macdSignal; macdWarm > warm {
		warm = macdWarm
	}
	if c.bbPeriod > warm {
		warm = c.bbPeriod
	}
	return warm
}

// Signals computes all indicator series once and votes bar by bar.
func (c *Consensus) Signals(bars []sig.Bar) []sig.Signal {
	out := make([]sig.Signal, len(bars))
	for i := range bars {
		out[i] = sig.Signal{Action: sig.Hold, Ts: bars[i].Ts}
	}
	warm := c.warmup()
	if len(bars) <= warm {
		return out
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	rsi := talib.Rsi(closes, c.rsiPeriod)
	macd, macdSignal, _ := talib.Macd(closes, c.macdFast, c.macdSlow, c.macdSignal)
	upper, _, lower := talib.BBands(closes, c.bbPeriod, c.bbStdDev, c.bbStdDev, talib.SMA)

	for i := warm; i < len(bars); i++ {
		buys, sells := 0, 0

		if rsi[i] < c.rsiOversold {
			buys++
		} else if rsi[i] > c.rsiOverbought {
			sells++
		}
		if macd[i] > macdSignal[i] {
			buys++
		} else if macd[i] < macdSignal[i] {
			sells++
		}
		if closes[i] < lower[i] {
			buys++
		} else if closes[i] > upper[i] {
			sells++
		}

		votes := buys + sells
		if votes == 0 {
			continue
		}
		switch {
		case buys > sells:
			out[i].Action = sig.Buy
			out[i].Confidence = float64(buys) / float64(votes)
			out[i].Reason = fmt.Sprintf("rsi=%.1f macd=%.4f sig=%.4f votes=%d/%d", rsi[i], macd[i], macdSignal[i], buys, votes)
		case sells > buys:
			out[i].Action = sig.Sell
			out[i].Confidence = float64(sells) / float64(votes)
			out[i].Reason = fmt.Sprintf("rsi=%.1f macd=%.4f sig=%.4f votes=%d/%d", rsi[i], macd[i], macdSignal[i], sells, votes)
		default:
			// Split vote, stay flat.
			out[i].Confidence = 0.5
		}
	}
	return out
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/gnanam1990/ai-trading-signals/internal/backtest"
	"github.com/gnanam1990/ai-trading-signals/internal/config"
	"github.com/gnanam1990/ai-trading-signals/internal/market"
	"github.com/gnanam1990/ai-trading-signals/internal/metrics"
	"github.com/gnanam1990/ai-trading-signals/internal/risk"
	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
	"github.com/gnanam1990/ai-trading-signals/internal/strategy"
	"github.com/gnanam1990/ai-trading-signals/internal/util"
)

func main() {
	configPath := flag.String("config", "internal/config/config.yaml", "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := market.NewFeed(cfg.Market.Provider, cfg.Market.Symbol, cfg.Market.Interval, log,
		market.WithBaseURL(cfg.Market.BaseURL),
		market.WithWSURL(cfg.Market.WSURL),
		market.WithCSVPath(cfg.Market.CSVPath),
		market.WithLimit(cfg.Market.Limit),
	)

	bars, err := feed.History(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("fetch history")
	}
	log.Info().Int("bars", len(bars)).Str("symbol", feed.Symbol()).Msg("history loaded")

	strat := buildStrategy(cfg, log)
	signals := strat.Signals(bars)
	for _, s := range signals {
		metrics.SignalsTotal.WithLabelValues(string(s.Action)).Inc()
	}
	log.Info().Str("strategy", strat.Name()).Int("signals", len(signals)).Msg("signals generated")

	size := cfg.Backtest.DefaultSize
	if size <= 0 {
		size = backtest.DefaultSize
	}
	applyRiskLimits(bars, signals, size, risk.Limits{
		MaxNotionalPerTrade: cfg.Risk.MaxNotionalPerTrade,
		MaxOpenPositions:    cfg.Risk.MaxOpenPositions,
	})

	balance := cfg.Backtest.InitialBalance
	if balance == 0 {
		balance = backtest.DefaultInitialBalance
	}

	opts := []backtest.Option{backtest.WithLogger(log)}
	if cfg.Backtest.TradesPath != "" {
		rec, err := backtest.NewJSONLRecorder(cfg.Backtest.TradesPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open trade recorder")
		}
		defer rec.Close()
		opts = append(opts, backtest.WithRecorder(rec))
	}

	eng, err := backtest.NewEngine(balance, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("create engine")
	}

	result, err := eng.Run(bars, signals)
	if err != nil {
		log.Fatal().Err(err).Msg("backtest failed")
	}

	result.Print()
	for i, tr := range eng.Trades() {
		fmt.Printf("  #%d  entry %.4f  exit %.4f  size %.4f  pnl %+.4f\n",
			i+1, tr.EntryPrice, tr.ExitPrice, tr.Size, tr.PnL)
	}
	if open := eng.OpenPositions(); open > 0 {
		fmt.Printf("  %d position(s) still open at end of tape\n", open)
	}
}

// buildStrategy wires config params into a strategy, loading the model
// prediction file when the model mode is selected.
func buildStrategy(cfg *config.Config, log zerolog.Logger) strategy.Strategy {
	p := cfg.Strategy.Params
	params := strategy.Params{
		RSIPeriod:     p.RSIPeriod,
		RSIOversold:   p.RSIOversold,
		RSIOverbought: p.RSIOverbought,
		MACDFast:      p.MACDFast,
		MACDSlow:      p.MACDSlow,
		MACDSignal:    p.MACDSignal,
		BBPeriod:      p.BBPeriod,
		BBStdDev:      p.BBStdDev,
		FastSMA:       p.FastSMA,
		SlowSMA:       p.SlowSMA,
		MinEdge:       p.MinEdge,
	}
	if mode := cfg.Strategy.Mode; mode == "model" || mode == "predictor" {
		preds, err := strategy.LoadPredictions(p.PredictionsPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", p.PredictionsPath).Msg("load predictions")
		}
		params.Predictions = preds
	}
	return strategy.Build(cfg.Strategy.Mode, params)
}

// applyRiskLimits downgrades BUY signals that would breach limits to HOLD,
// tracking the open position count the simulation will see. Surviving BUYs
// are stamped with the configured size so the engine trades the same
// notional the limits were checked against.
func applyRiskLimits(bars []sig.Bar, signals []sig.Signal, size float64, limits risk.Limits) {
	open := 0
	for i := range signals {
		switch signals[i].Action {
		case sig.Buy:
			if signals[i].Size <= 0 {
				signals[i].Size = size
			}
			if !limits.Allow(bars[i].Close*signals[i].Size) || !limits.AllowOpen(open) {
				signals[i].Action = sig.Hold
				continue
			}
			open++
		case sig.Sell:
			if open > 0 {
				open--
			}
		}
	}
}

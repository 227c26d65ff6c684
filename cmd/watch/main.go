package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/gnanam1990/ai-trading-signals/internal/config"
	"github.com/gnanam1990/ai-trading-signals/internal/market"
	"github.com/gnanam1990/ai-trading-signals/internal/metrics"
	sig "github.com/gnanam1990/ai-trading-signals/internal/signal"
	"github.com/gnanam1990/ai-trading-signals/internal/strategy"
	"github.com/gnanam1990/ai-trading-signals/internal/util"
)

// maxWindow bounds the rolling bar history handed to the strategy on each
// closed candle.
const maxWindow = 500

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

	window, err := feed.History(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("no history, starting from live bars only")
		window = nil
	}
	log.Info().Int("bars", len(window)).Str("symbol", feed.Symbol()).Msg("warmed up")

	p := cfg.Strategy.Params
	strat := strategy.Build(cfg.Strategy.Mode, strategy.Params{
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
	})

	bars := make(chan sig.Bar, 64)
	go func() {
		if err := feed.Watch(ctx, bars); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
		}
		cancel()
	}()

	log.Info().Str("strategy", strat.Name()).Msg("watching for signals")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return
		case bar := <-bars:
			window = append(window, bar)
			if len(window) > maxWindow {
				window = window[len(window)-maxWindow:]
			}
			signals := strat.Signals(window)
			latest := signals[len(signals)-1]
			metrics.SignalsTotal.WithLabelValues(string(latest.Action)).Inc()

			ev := log.Info()
			if latest.Action == sig.Hold {
				ev = log.Debug()
			}
			ev.Str("symbol", feed.Symbol()).
				Str("action", string(latest.Action)).
				Float64("close", bar.Close).
				Float64("confidence", latest.Confidence).
				Str("reason", latest.Reason).
				Msg("signal")
		}
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gnanam1990/ai-trading-signals/internal/config"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Trading Signals Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit backtest knobs")
		fmt.Println("3) Edit strategy settings")
		fmt.Println("4) Save config")
		fmt.Println("5) Run backtest")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editBacktest(reader, cfg)
		case "3":
			editStrategy(reader, cfg)
		case "4":
			if err := saveConfig(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			runBacktest(reader)
		case "6":
			reloaded, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Market: %s %s @ %s (provider %s)\n", cfg.Market.Symbol, cfg.Market.Interval, cfg.Market.BaseURL, cfg.Market.Provider)
	fmt.Printf("Initial balance: $%.2f\n", cfg.Backtest.InitialBalance)
	fmt.Printf("Default size: %.4f\n", cfg.Backtest.DefaultSize)
	fmt.Printf("Trades path: %s\n", cfg.Backtest.TradesPath)
	fmt.Printf("Strategy mode: %s\n", cfg.Strategy.Mode)
	fmt.Printf("RSI %d (%.0f/%.0f) | MACD %d/%d/%d | BB %d@%.1f | SMA %d/%d\n",
		cfg.Strategy.Params.RSIPeriod, cfg.Strategy.Params.RSIOversold, cfg.Strategy.Params.RSIOverbought,
		cfg.Strategy.Params.MACDFast, cfg.Strategy.Params.MACDSlow, cfg.Strategy.Params.MACDSignal,
		cfg.Strategy.Params.BBPeriod, cfg.Strategy.Params.BBStdDev,
		cfg.Strategy.Params.FastSMA, cfg.Strategy.Params.SlowSMA)
	fmt.Printf("Per-trade notional cap: $%.2f | max open positions: %d\n",
		cfg.Risk.MaxNotionalPerTrade, cfg.Risk.MaxOpenPositions)
}

func editBacktest(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Backtest ---")
	cfg.Backtest.InitialBalance = promptFloat(reader, "Initial balance", cfg.Backtest.InitialBalance)
	cfg.Backtest.DefaultSize = promptFloat(reader, "Default position size", cfg.Backtest.DefaultSize)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (0 disables)", cfg.Risk.MaxNotionalPerTrade)
	cfg.Risk.MaxOpenPositions = int(promptFloat(reader, "Max open positions (0 disables)", float64(cfg.Risk.MaxOpenPositions)))
}

func editStrategy(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Strategy ---")
	fmt.Printf("Current mode: %s\n", cfg.Strategy.Mode)
	fmt.Print("Mode (consensus/sma/model, blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Strategy.Mode = strings.TrimSpace(line)
	}
	cfg.Strategy.Params.RSIPeriod = int(promptFloat(reader, "RSI period", float64(cfg.Strategy.Params.RSIPeriod)))
	cfg.Strategy.Params.RSIOversold = promptFloat(reader, "RSI oversold", cfg.Strategy.Params.RSIOversold)
	cfg.Strategy.Params.RSIOverbought = promptFloat(reader, "RSI overbought", cfg.Strategy.Params.RSIOverbought)
	cfg.Strategy.Params.FastSMA = int(promptFloat(reader, "Fast SMA", float64(cfg.Strategy.Params.FastSMA)))
	cfg.Strategy.Params.SlowSMA = int(promptFloat(reader, "Slow SMA", float64(cfg.Strategy.Params.SlowSMA)))
	cfg.Strategy.Params.MinEdge = promptFloat(reader, "Model min edge", cfg.Strategy.Params.MinEdge)
}

func runBacktest(reader *bufio.Reader) {
	fmt.Println("Running backtest (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/backtest")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start backtest: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func loadConfig() (*config.Config, error) {
	return config.Load(locateConfig())
}

func saveConfig(cfg *config.Config) error {
	return config.Save(locateConfig(), cfg)
}

func locateConfig() string {
	if filepath.IsAbs(defaultConfigPath) {
		return defaultConfigPath
	}
	return filepath.Clean(defaultConfigPath)
}

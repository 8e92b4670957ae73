package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/letieu/pattern-backtest/internal/config"
	"github.com/letieu/pattern-backtest/internal/providers/bybit"
	"github.com/letieu/pattern-backtest/internal/storage"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config file (optional, uses env vars by default)")
		symbol     = flag.String("symbol", "", "Symbol to download; overrides backtest.symbol")
		interval   = flag.String("interval", "", "Candle interval; overrides backtest.interval")
		folder     = flag.String("folder", "./data", "Output folder")
		format     = flag.String("format", "json", "File format: json or csv")
	)
	flag.Parse()

	cfg := config.Load(*configFile)
	slog.SetDefault(cfg.Logger())

	if *symbol != "" {
		cfg.Backtest.Symbol = *symbol
	}
	if *interval != "" {
		cfg.Backtest.Interval = *interval
	}

	start, end, err := cfg.BacktestWindow()
	if err != nil {
		log.Fatalf("Invalid time window: %v", err)
	}

	client := bybit.NewClient(&cfg.Bybit)
	candles, err := client.GetCandleRange(cfg.Backtest.Symbol, cfg.Backtest.Interval, start, end)
	if err != nil {
		log.Fatalf("Failed to download candles: %v", err)
	}

	filePath := filepath.Join(*folder, fmt.Sprintf("%s-%s.%s", cfg.Backtest.Symbol, cfg.Backtest.Interval, *format))
	if err := storage.SaveCandles(filePath, candles); err != nil {
		log.Fatalf("Failed to save candles: %v", err)
	}

	fmt.Printf("Saved %d candles (%s to %s) to %s\n", len(candles),
		start.Format(time.RFC3339), end.Format(time.RFC3339), filePath)
}

package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/letieu/pattern-backtest/internal/backtester"
	"github.com/letieu/pattern-backtest/internal/bot"
	"github.com/letieu/pattern-backtest/internal/config"
	"github.com/letieu/pattern-backtest/internal/providers/bybit"
	"github.com/letieu/pattern-backtest/internal/storage"
	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to config file (optional, uses env vars by default)")
		dataFile   = flag.String("data", "", "Candle file (.json or .csv); overrides backtest.dataFile")
		save       = flag.Bool("save", true, "Save results to file")
		output     = flag.String("output", "", "Output directory for results; overrides backtest.outputDir")
		notify     = flag.Bool("notify", false, "Send the summary through bot.frontend")
	)
	flag.Parse()

	cfg := config.Load(*configFile)
	logger := cfg.Logger()
	slog.SetDefault(logger)

	if *dataFile != "" {
		cfg.Backtest.DataFile = *dataFile
	}
	if *output != "" {
		cfg.Backtest.OutputDir = *output
	}

	candles, err := loadCandles(cfg)
	if err != nil {
		log.Fatalf("Failed to load candles: %v", err)
	}

	kinds, err := cfg.Kinds()
	if err != nil {
		log.Fatalf("Invalid backtest.patterns: %v", err)
	}
	grids, err := cfg.Grids()
	if err != nil {
		log.Fatalf("Invalid sweep configuration: %v", err)
	}
	configs := strategies.BuildAll(grids, kinds...)

	fmt.Printf("Running %d strategies on %d candles\n", len(configs), len(candles))

	progress := make(chan backtester.Progress, 16)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for p := range progress {
			fmt.Printf("\rProgress: %6.2f%%", p.Percent)
			if p.Percent >= 100 {
				fmt.Println()
				return
			}
		}
	}()

	engine := backtester.NewEngine().WithLogger(logger)
	result, err := engine.RunTest(candles, configs, progress)
	if err != nil {
		log.Fatalf("Backtest failed: %v", err)
	}
	<-printed
	engine.LogResults(result)

	summary := backtester.Summary(result, cfg.Backtest.Top)
	fmt.Print(summary)

	if *save {
		base := fmt.Sprintf("backtest_%s_%s_%s", cfg.Backtest.Symbol, cfg.Backtest.Interval, time.Now().Format("20060102_150405"))
		if err := engine.SaveResults(result, filepath.Join(cfg.Backtest.OutputDir, base+".json")); err != nil {
			log.Printf("Failed to save results: %v", err)
		}
		if err := engine.SaveSummaryCSV(result, filepath.Join(cfg.Backtest.OutputDir, base+".csv")); err != nil {
			log.Printf("Failed to save summary: %v", err)
		}
	}

	if *notify {
		sender, err := bot.NewSender(cfg)
		if err != nil {
			log.Fatalf("Failed to create frontend: %v", err)
		}
		if err := sender.SendMessage(summary); err != nil {
			log.Printf("Failed to send summary: %v", err)
		}
	}
}

// loadCandles reads backtest.dataFile, or downloads the configured window from
// Bybit when no file is set.
func loadCandles(cfg *config.Config) ([]types.Candle, error) {
	if cfg.Backtest.DataFile != "" {
		return storage.LoadCandles(cfg.Backtest.DataFile)
	}

	start, end, err := cfg.BacktestWindow()
	if err != nil {
		return nil, err
	}
	client := bybit.NewClient(&cfg.Bybit)
	candles, err := client.GetCandleRange(cfg.Backtest.Symbol, cfg.Backtest.Interval, start, end)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateSeries(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

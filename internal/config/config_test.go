package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/pattern-backtest/internal/patterns"
	"github.com/letieu/pattern-backtest/internal/strategies"
)

const sampleConfig = `
bybit:
  pageSize: 500
bot:
  enabledIntervals: ["4h"]
  repetitions: 2
backtest:
  symbol: ETHUSDT
  marketType: futures
  patterns: ["w", "bull-reversal"]
  startTime: "2024-01-01T00:00:00Z"
  endTime: "2024-02-01T00:00:00Z"
sweep:
  takeProfit:
    min: 1
    max: 2
    step: 0.5
  repetitions:
    min: 3
    max: 3
    step: 1
  searchRange:
    min: 5
    max: 10
    step: 5
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pattern-backtest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg := Load(writeConfig(t))

	assert.Equal(t, 500, cfg.Bybit.PageSize)
	assert.Equal(t, "https://api.bybit.com", cfg.Bybit.BaseURL, "defaults survive")
	assert.Equal(t, 10*time.Second, cfg.Bybit.Timeout)
	assert.Equal(t, []string{"4h"}, cfg.Bot.EnabledIntervals)
	assert.Equal(t, 2, cfg.Bot.Repetitions)
	assert.Equal(t, time.Hour, cfg.Bot.ScanInterval)
	assert.Equal(t, "ETHUSDT", cfg.Backtest.Symbol)
	assert.Equal(t, 1000.0, cfg.Backtest.StartingEquity)
	assert.Equal(t, strategies.Range[float64]{Min: 1, Max: 2, Step: 0.5}, cfg.Sweep.TakeProfit)
	assert.Equal(t, strategies.Range[float64]{Min: 1, Max: 1, Step: 0.1}, cfg.Sweep.StopLoss)
	assert.Equal(t, strategies.Range[int]{Min: 5, Max: 10, Step: 5}, cfg.Sweep.SearchRange)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PB_BACKTEST_SYMBOL", "SOLUSDT")

	cfg := Load(writeConfig(t))
	assert.Equal(t, "SOLUSDT", cfg.Backtest.Symbol)
}

func TestKindsAndGrids(t *testing.T) {
	cfg := Load(writeConfig(t))

	kinds, err := cfg.Kinds()
	require.NoError(t, err)
	assert.Equal(t, []patterns.Kind{patterns.KindW, patterns.KindBullReversal}, kinds)

	grids, err := cfg.Grids()
	require.NoError(t, err)
	require.Len(t, grids, 3)

	w := grids[patterns.KindW]
	assert.Equal(t, strategies.MarketFutures, w.MarketType)
	assert.Equal(t, 1000.0, w.StartingEquity)
	assert.Equal(t, cfg.Sweep.Repetitions, w.SizeA)

	reversal := grids[patterns.KindBullReversal]
	assert.Equal(t, cfg.Sweep.ReversalStopLoss, reversal.StopLoss)
	assert.Equal(t, cfg.Sweep.TrendLength, reversal.SizeA)

	// 3 take-profits x 1 stop x 1 repetition x 2 ranges x 1 risk
	configs := strategies.BuildAll(grids, kinds[:1]...)
	assert.Len(t, configs, 6)

	cfg.Backtest.Patterns = []string{"triangle"}
	_, err = cfg.Kinds()
	assert.Error(t, err)

	cfg.Backtest.MarketType = "margin"
	_, err = cfg.Grids()
	assert.Error(t, err)
}

func TestBacktestWindow(t *testing.T) {
	cfg := Load(writeConfig(t))

	start, end, err := cfg.BacktestWindow()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), end.UTC())

	cfg.Backtest.StartTime, cfg.Backtest.EndTime = "", ""
	start, end, err = cfg.BacktestWindow()
	require.NoError(t, err)
	assert.Equal(t, 30*24*time.Hour, end.Sub(start))

	cfg.Backtest.StartTime = "2030-01-01T00:00:00Z"
	cfg.Backtest.EndTime = "2029-01-01T00:00:00Z"
	_, _, err = cfg.BacktestWindow()
	assert.Error(t, err)

	cfg.Backtest.StartTime = "yesterday"
	_, _, err = cfg.BacktestWindow()
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	cfg := Load(writeConfig(t))
	logger := cfg.Logger()
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

package backtester

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

type SweepResult struct {
	ID        string           `json:"id"`
	Symbol    string           `json:"symbol,omitempty"`
	Interval  string           `json:"interval,omitempty"`
	Candles   int              `json:"candles"`
	StartTime time.Time        `json:"startTime"`
	EndTime   time.Time        `json:"endTime"`
	Elapsed   time.Duration    `json:"elapsed"`
	Results   []StrategyResult `json:"results"`
}

type Engine struct {
	logger *slog.Logger
}

func NewEngine() *Engine {
	return &Engine{
		logger: slog.Default(),
	}
}

func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	return e
}

// RunTest runs every configuration against the candles one after another. A
// configuration that fails is recorded with its error and the sweep goes on.
// progress may be nil; otherwise it receives advisory sweep-wide percentages
// ending with 100. RunTest never waits on the reader of progress, which must
// not be closed by the caller.
func (e *Engine) RunTest(candles []types.Candle, configs []strategies.Config, progress chan<- Progress) (*SweepResult, error) {
	if len(candles) == 0 {
		return nil, errors.New("no candles to backtest")
	}

	started := time.Now()
	sweep := &SweepResult{
		ID:        uuid.NewString(),
		Symbol:    candles[0].Symbol,
		Interval:  candles[0].Interval,
		Candles:   len(candles),
		StartTime: time.UnixMilli(candles[0].OpenTime).UTC(),
		EndTime:   time.UnixMilli(candles[len(candles)-1].CloseTime).UTC(),
		Results:   make([]StrategyResult, 0, len(configs)),
	}

	e.logger.Info("starting backtest sweep",
		"sweep_id", sweep.ID,
		"strategies", len(configs),
		"candles", len(candles))

	agg := newAggregator(len(configs), sweep.ID, progress)
	for i, cfg := range configs {
		report := agg.reporter(i)
		result, err := e.runStrategy(candles, cfg, report)
		if err != nil {
			e.logger.Error("strategy failed", "sweep_id", sweep.ID, "strategy", cfg.String(), "error", err)
			result = failedResult(cfg, err)
		}
		sweep.Results = append(sweep.Results, result)
		report(100)
	}
	agg.finish()

	sweep.Elapsed = time.Since(started)
	e.logger.Info("backtest sweep completed", "sweep_id", sweep.ID, "elapsed", sweep.Elapsed)
	return sweep, nil
}

func (e *Engine) runStrategy(candles []types.Candle, cfg strategies.Config, progress strategies.ProgressFunc) (result StrategyResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy panicked: %v", r)
		}
	}()

	trades := strategies.CreateTrades(candles, cfg, progress, false)
	account := NewAccount(cfg.StartingEquity)
	Resolve(candles, trades, cfg, account, progress)

	result = BuildResult(cfg, trades, account)
	e.logger.Debug("strategy done",
		"strategy", cfg.String(),
		"trades", len(trades),
		"win_ratio", result.WinRatio.String(),
		"final_equity", result.FinalEquity)
	return result, nil
}

func failedResult(cfg strategies.Config, err error) StrategyResult {
	undefined := Ratio(math.NaN())
	return StrategyResult{
		Name:             cfg.Name(),
		Config:           cfg,
		PatternParams:    cfg.Pattern.Values(),
		WinRatio:         undefined,
		LoseRatio:        undefined,
		UnknownRatio:     undefined,
		RequiredWinRatio: RequiredWinRatio(cfg.TakeProfitMultiplier, cfg.StopLossMultiplier),
		EfficiencyRatio:  undefined,
		FinalEquity:      cfg.StartingEquity,
		EquityCurve:      []float64{},
		Error:            err.Error(),
	}
}

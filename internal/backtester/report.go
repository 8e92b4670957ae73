package backtester

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

func (e *Engine) SaveResults(result *SweepResult, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	e.logger.Info("results saved", "path", filePath)
	return nil
}

type summaryRow struct {
	Pattern          string  `csv:"pattern"`
	Params           string  `csv:"pattern_params"`
	MarketType       string  `csv:"market_type"`
	TakeProfit       float64 `csv:"tp_multiplier"`
	StopLoss         float64 `csv:"sl_multiplier"`
	RiskPerTrade     float64 `csv:"risk_per_trade"`
	WinCount         int     `csv:"total_win"`
	LoseCount        int     `csv:"total_lose"`
	UnknownCount     int     `csv:"total_unknown"`
	ClosedCount      int     `csv:"total_closed"`
	OpenCount        int     `csv:"total_unclosed"`
	WinRatio         Ratio   `csv:"win_ratio"`
	RequiredWinRatio Ratio   `csv:"required_win_ratio"`
	Efficiency       Ratio   `csv:"efficiency"`
	RiskReward       string  `csv:"risk_reward"`
	FinalEquity      float64 `csv:"final_equity"`
	Error            string  `csv:"error"`
}

func formatParams(params map[string]string) string {
	keys := lo.Keys(params)
	sort.Strings(keys)
	return strings.Join(lo.Map(keys, func(k string, _ int) string {
		return k + "=" + params[k]
	}), ";")
}

// SaveSummaryCSV writes one row per strategy result.
func (e *Engine) SaveSummaryCSV(result *SweepResult, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	rows := lo.Map(result.Results, func(r StrategyResult, _ int) *summaryRow {
		return &summaryRow{
			Pattern:          r.Name,
			Params:           formatParams(r.PatternParams),
			MarketType:       string(r.Config.MarketType),
			TakeProfit:       r.Config.TakeProfitMultiplier,
			StopLoss:         r.Config.StopLossMultiplier,
			RiskPerTrade:     r.Config.RiskPerTrade,
			WinCount:         r.WinCount,
			LoseCount:        r.LoseCount,
			UnknownCount:     r.UnknownCount,
			ClosedCount:      r.ClosedCount,
			OpenCount:        r.OpenCount,
			WinRatio:         r.WinRatio,
			RequiredWinRatio: r.RequiredWinRatio,
			Efficiency:       r.EfficiencyRatio,
			RiskReward:       r.RiskReward,
			FinalEquity:      r.FinalEquity,
			Error:            r.Error,
		}
	})
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	e.logger.Info("summary saved", "path", filePath, "rows", len(rows))
	return nil
}

// Rank orders results by efficiency, best first. Undefined efficiencies go last.
func Rank(results []StrategyResult) []StrategyResult {
	ranked := append([]StrategyResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].EfficiencyRatio, ranked[j].EfficiencyRatio
		if a.Undefined() != b.Undefined() {
			return b.Undefined()
		}
		return a > b
	})
	return ranked
}

// Summary renders the top results as plain text for console and chat frontends.
func Summary(result *SweepResult, top int) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Backtest %s: %d strategies on %d candles", result.ID, len(result.Results), result.Candles))
	if result.Symbol != "" {
		builder.WriteString(fmt.Sprintf(" (%s %s)", result.Symbol, result.Interval))
	}
	builder.WriteString("\n")

	ranked := Rank(result.Results)
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}
	for i, r := range ranked {
		builder.WriteString(fmt.Sprintf("%d. %s [%s] %s tp=%g sl=%g risk=%g | win %s%% (need %s%%) | eff %s | closed %d open %d | equity %.2f\n",
			i+1, r.Name, formatParams(r.PatternParams), r.Config.MarketType,
			r.Config.TakeProfitMultiplier, r.Config.StopLossMultiplier, r.Config.RiskPerTrade,
			r.WinRatio, r.RequiredWinRatio, r.EfficiencyRatio,
			r.ClosedCount, r.OpenCount, r.FinalEquity))
	}
	return builder.String()
}

// LogResults writes every result, best first, to the engine's logger at debug level.
func (e *Engine) LogResults(result *SweepResult) {
	for _, r := range Rank(result.Results) {
		e.logger.Debug("strategy result",
			"strategy", r.Name,
			"params", formatParams(r.PatternParams),
			"win_ratio", r.WinRatio.String(),
			"efficiency", r.EfficiencyRatio.String(),
			"final_equity", r.FinalEquity)
	}
}

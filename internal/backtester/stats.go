package backtester

import (
	"fmt"
	"math"
	"strconv"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

// Ratio is a percentage rounded to two decimals. NaN marks a ratio that is
// undefined because no trade closed; it is written as null in JSON and left
// empty in CSV so it is never confused with a real 0%.
type Ratio float64

func (r Ratio) Undefined() bool {
	return math.IsNaN(float64(r))
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.Undefined() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(r), 'f', -1, 64)), nil
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Ratio(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("failed to parse ratio: %w", err)
	}
	*r = Ratio(v)
	return nil
}

func (r Ratio) MarshalCSV() (string, error) {
	if r.Undefined() {
		return "", nil
	}
	return strconv.FormatFloat(float64(r), 'f', -1, 64), nil
}

func round2(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio(math.NaN())
	}
	return Ratio(decimal.NewFromFloat(v).Round(2).InexactFloat64())
}

type StrategyResult struct {
	Name             string            `json:"name"`
	Config           strategies.Config `json:"strategyParams"`
	PatternParams    map[string]string `json:"patternParams"`
	WinRatio         Ratio             `json:"winRatio"`
	LoseRatio        Ratio             `json:"loseRatio"`
	UnknownRatio     Ratio             `json:"unknownRatio"`
	WinCount         int               `json:"totalWin"`
	LoseCount        int               `json:"totalLose"`
	UnknownCount     int               `json:"totalUnknown"`
	ClosedCount      int               `json:"totalClosed"`
	OpenCount        int               `json:"totalUnclosed"`
	RequiredWinRatio Ratio             `json:"requiredWinRatio"`
	RiskReward       string            `json:"riskReward"`
	EfficiencyRatio  Ratio             `json:"efficiency"`
	FinalEquity      float64           `json:"finalEquity"`
	EquityCurve      []float64         `json:"equityEvolution"`
	Exhausted        bool              `json:"exhausted,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// RequiredWinRatio is the break-even win percentage for a take-profit/stop-loss
// ratio: 100 / (1 + tp/sl).
func RequiredWinRatio(tp, sl float64) Ratio {
	return round2(100 / (1 + tp/sl))
}

// BuildResult aggregates the resolved trades of one configuration.
func BuildResult(cfg strategies.Config, trades []types.Trade, account *Account) StrategyResult {
	counts := lo.CountValuesBy(trades, func(t types.Trade) types.Status { return t.Status })
	win, lose, unknown := counts[types.StatusWin], counts[types.StatusLost], counts[types.StatusUnknown]
	closed := win + lose + unknown

	percent := func(count int) Ratio {
		return round2(float64(count) * 100 / float64(closed))
	}
	winRatio := percent(win)
	required := RequiredWinRatio(cfg.TakeProfitMultiplier, cfg.StopLossMultiplier)

	return StrategyResult{
		Name:             cfg.Name(),
		Config:           cfg,
		PatternParams:    cfg.Pattern.Values(),
		WinRatio:         winRatio,
		LoseRatio:        percent(lose),
		UnknownRatio:     percent(unknown),
		WinCount:         win,
		LoseCount:        lose,
		UnknownCount:     unknown,
		ClosedCount:      closed,
		OpenCount:        len(trades) - closed,
		RequiredWinRatio: required,
		RiskReward:       fmt.Sprintf("%s:1", round2(cfg.TakeProfitMultiplier/cfg.StopLossMultiplier).String()),
		EfficiencyRatio:  round2(float64(winRatio) / float64(required)),
		FinalEquity:      account.Equity,
		EquityCurve:      account.EquityCurve,
		Exhausted:        account.Exhausted,
	}
}

func (r Ratio) String() string {
	if r.Undefined() {
		return "n/a"
	}
	return strconv.FormatFloat(float64(r), 'f', -1, 64)
}

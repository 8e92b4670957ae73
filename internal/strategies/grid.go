package strategies

import (
	"github.com/samber/lo"

	"github.com/letieu/pattern-backtest/internal/patterns"
)

// Range is an inclusive min/max/step sweep over one parameter.
type Range[T int | float64] struct {
	Min  T `mapstructure:"min" json:"min"`
	Max  T `mapstructure:"max" json:"max"`
	Step T `mapstructure:"step" json:"step"`
}

func Fixed[T int | float64](v T) Range[T] {
	return Range[T]{Min: v, Max: v, Step: 1}
}

// Values lists Min, Min+Step, ... up to Max inclusive. Float ranges tolerate half
// a step of accumulated error at the upper bound. A non-positive step or an
// inverted range yields Min alone.
func (r Range[T]) Values() []T {
	if r.Step <= 0 || r.Max <= r.Min {
		return []T{r.Min}
	}
	upper := r.Max + r.Step/2
	if upper == r.Max {
		upper = r.Max + 1
	}
	return lo.RangeWithSteps(r.Min, upper, r.Step)
}

// Grid describes a parameter sweep. SizeA and SizeB are the pattern-size
// parameters: repetitions and search range for W/M, trend and counter-trend
// length for BullReversal.
type Grid struct {
	TakeProfit     Range[float64]
	StopLoss       Range[float64]
	SizeA          Range[int]
	SizeB          Range[int]
	RiskPercent    Range[float64]
	StartingEquity float64
	MarketType     MarketType
}

// Build returns one Config per combination, nested take-profit, stop-loss,
// SizeA, SizeB, risk (innermost). RiskPercent is converted to a fraction.
func (g Grid) Build(kind patterns.Kind) []Config {
	var configs []Config
	for _, tp := range g.TakeProfit.Values() {
		for _, sl := range g.StopLoss.Values() {
			for _, a := range g.SizeA.Values() {
				for _, b := range g.SizeB.Values() {
					params := patternParams(kind, a, b)
					configs = append(configs, lo.Map(g.RiskPercent.Values(), func(risk float64, _ int) Config {
						return Config{
							TakeProfitMultiplier: tp,
							StopLossMultiplier:   sl,
							RiskPerTrade:         risk * 0.01,
							StartingEquity:       g.StartingEquity,
							MarketType:           g.MarketType,
							Pattern:              params,
						}
					})...)
				}
			}
		}
	}
	return configs
}

func patternParams(kind patterns.Kind, a, b int) patterns.Params {
	switch kind {
	case patterns.KindM:
		return patterns.M(a, b)
	case patterns.KindBullReversal:
		return patterns.BullReversal(a, b)
	default:
		return patterns.W(a, b)
	}
}

// BuildAll concatenates the grids of several kinds, kind by kind.
func BuildAll(grids map[patterns.Kind]Grid, kinds ...patterns.Kind) []Config {
	return lo.FlatMap(kinds, func(kind patterns.Kind, _ int) []Config {
		grid, ok := grids[kind]
		if !ok {
			return nil
		}
		return grid.Build(kind)
	})
}

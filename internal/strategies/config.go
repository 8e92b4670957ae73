package strategies

import (
	"fmt"
	"strings"

	"github.com/letieu/pattern-backtest/internal/patterns"
)

type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(strings.ToLower(strings.TrimSpace(s))) {
	case MarketSpot:
		return MarketSpot, nil
	case MarketFutures:
		return MarketFutures, nil
	}
	return "", fmt.Errorf("unknown market type %q", s)
}

// Config is one runnable strategy: trade sizing, exit multipliers and the
// pattern that opens trades.
type Config struct {
	TakeProfitMultiplier float64         `json:"tpMultiplier"`
	StopLossMultiplier   float64         `json:"slMultiplier"`
	RiskPerTrade         float64         `json:"riskPerTrade"`
	StartingEquity       float64         `json:"-"`
	MarketType           MarketType      `json:"marketType"`
	Pattern              patterns.Params `json:"pattern"`
}

func (c Config) Name() string {
	return c.Pattern.Kind.String()
}

func (c Config) String() string {
	return fmt.Sprintf("%s tp=%g sl=%g risk=%g %s %v", c.Name(), c.TakeProfitMultiplier, c.StopLossMultiplier,
		c.RiskPerTrade, c.MarketType, c.Pattern.Values())
}

package backtester

import (
	"math"

	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

const minute = int64(60_000)

func ohlc(index int, open, high, low, close float64) types.Candle {
	return types.Candle{
		OpenTime:  int64(index) * minute,
		CloseTime: int64(index)*minute + minute - 1,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
	}
}

func createCandles(pairs ...[2]float64) []types.Candle {
	candles := make([]types.Candle, len(pairs))
	for i, p := range pairs {
		open, close := p[0], p[1]
		candles[i] = ohlc(i, open, math.Max(open, close)+0.5, math.Min(open, close)-0.5, close)
	}
	return candles
}

// wSeries holds one W (bottom 94.5, neckline 104.5) broken out on candle 11 and
// running up through a 114.5 target on candle 14.
func wSeries() []types.Candle {
	return createCandles(
		[2]float64{110, 105}, [2]float64{105, 100}, [2]float64{100, 95},
		[2]float64{95, 98}, [2]float64{98, 101}, [2]float64{101, 104},
		[2]float64{104, 101}, [2]float64{101, 98}, [2]float64{98, 97},
		[2]float64{97, 100}, [2]float64{100, 103}, [2]float64{103, 106},
		[2]float64{106, 109}, [2]float64{109, 112}, [2]float64{112, 115},
		[2]float64{115, 116}, [2]float64{116, 117}, [2]float64{117, 118},
		[2]float64{118, 119}, [2]float64{119, 120},
	)
}

func pendingTrade(side types.Side, entry, stop, target float64, opensOn types.Candle) types.Trade {
	return types.Trade{
		Pattern:    "test",
		Side:       side,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		OpenTime:   opensOn.CloseTime,
		Status:     types.StatusNotOpened,
	}
}

func unitConfig(market strategies.MarketType, risk float64) strategies.Config {
	return strategies.Config{
		TakeProfitMultiplier: 1,
		StopLossMultiplier:   1,
		RiskPerTrade:         risk,
		StartingEquity:       1000,
		MarketType:           market,
	}
}

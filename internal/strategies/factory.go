package strategies

import (
	"github.com/letieu/pattern-backtest/internal/patterns"
	"github.com/letieu/pattern-backtest/internal/types"
)

// ProgressFunc receives a completion percentage for the running configuration.
type ProgressFunc func(percent float32)

const progressEvery = 1000

// CreateTrades scans the whole series with the configured detector and turns each
// formation into a pending trade. After a match the cursor moves to the match's
// end candle, otherwise one candle forward. Scan progress is reported as 0-50%.
func CreateTrades(candles []types.Candle, cfg Config, progress ProgressFunc, potentialOnly bool) []types.Trade {
	detect := cfg.Pattern.Detector()

	var trades []types.Trade
	lastSent := 0
	for cursor := 0; cursor < len(candles); {
		if match, ok := detect(candles, cursor, potentialOnly); ok {
			trades = append(trades, NewTrade(match, cfg))
			if match.EndIndex > cursor {
				cursor = match.EndIndex
			} else {
				cursor++
			}
		} else {
			cursor++
		}

		if progress != nil && lastSent+progressEvery < cursor {
			progress(float32(cursor) / float32(len(candles)) * 50)
			lastSent = cursor
		}
	}
	return trades
}

// NewTrade derives entry, stop-loss and take-profit from a match.
//
// W and M extend the neckline-to-anchor distance: the stop sits (sl-1) distances
// beyond the anchor and the target tp distances past the neckline. BullReversal
// scales the peak by sl and extends the reversal move by tp.
func NewTrade(match patterns.Match, cfg Config) types.Trade {
	trade := types.Trade{
		Pattern:   match.Kind.String(),
		OpenIndex: match.EndIndex,
		OpenTime:  match.EndTime,
		Status:    types.StatusNotOpened,
	}

	tp, sl := cfg.TakeProfitMultiplier, cfg.StopLossMultiplier
	switch match.Kind {
	case patterns.KindW:
		height := match.Neckline - match.Lower
		trade.Side = types.Long
		trade.EntryPrice = match.Neckline
		trade.StopLoss = match.Lower - height*(sl-1)
		trade.TakeProfit = match.Neckline + height*tp
	case patterns.KindM:
		height := match.Neckline - match.Higher
		trade.Side = types.Short
		trade.EntryPrice = match.Neckline
		trade.StopLoss = match.Higher - height*(sl-1)
		trade.TakeProfit = match.Neckline + height*tp
	case patterns.KindBullReversal:
		trade.Side = types.Long
		trade.EntryPrice = match.End
		trade.StopLoss = match.Peak * sl
		trade.TakeProfit = match.End + (match.End-match.Peak)*tp
	}
	return trade
}

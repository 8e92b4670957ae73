package patterns

import "github.com/letieu/pattern-backtest/internal/types"

// findBullReversal detects TrendLength bearish candles starting at start followed
// directly by CounterTrendLength bullish candles. Peak is the close ending the
// bearish run, End the close ending the bullish one.
func findBullReversal(candles []types.Candle, start int, p ReversalParams) (Match, bool) {
	trend := p.TrendLength
	if trend < 1 {
		trend = 1
	}
	counter := p.CounterTrendLength
	if counter < 1 {
		counter = 1
	}
	if start < 0 || start+trend+counter > len(candles) {
		return Match{}, false
	}

	if _, ok := findRun(candles, start, start+trend, trend, bearish); !ok {
		return Match{}, false
	}
	trendEnd := start + trend - 1
	if _, ok := findRun(candles, trendEnd+1, trendEnd+1+counter, counter, bullish); !ok {
		return Match{}, false
	}
	end := trendEnd + counter

	return Match{
		Kind:       KindBullReversal,
		StartIndex: start,
		StartTime:  candles[start].OpenTime,
		EndIndex:   end,
		EndTime:    candles[end].CloseTime,
		Peak:       candles[trendEnd].Close,
		End:        candles[end].Close,
	}, true
}

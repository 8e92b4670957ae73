package patterns

import "github.com/letieu/pattern-backtest/internal/types"

type predicate func(c *types.Candle) bool

func bullish(c *types.Candle) bool { return c.IsBullish() }
func bearish(c *types.Candle) bool { return c.IsBearish() }

func matchesAll(c *types.Candle, preds []predicate) bool {
	for _, pred := range preds {
		if !pred(c) {
			return false
		}
	}
	return true
}

func clip(from, to, n int) (int, int) {
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	return from, to
}

// findRun returns the index of the first candle of the first run of repetitions
// consecutive candles in [from, to) satisfying every predicate. A candle failing
// any predicate resets the run.
func findRun(candles []types.Candle, from, to, repetitions int, preds ...predicate) (int, bool) {
	if repetitions < 1 {
		repetitions = 1
	}
	from, to = clip(from, to, len(candles))

	count := 0
	for i := from; i < to; i++ {
		if !matchesAll(&candles[i], preds) {
			count = 0
			continue
		}
		count++
		if count >= repetitions {
			return i - count + 1, true
		}
	}
	return 0, false
}

// extremeScan searches [from, to) for the best candle accepted by qualifies.
// A candle matching failing aborts the whole search. A candle matching fast is
// still considered and then ends the search at the current best. On equal
// values the earlier candle is kept.
type extremeScan struct {
	qualifies predicate
	better    func(c, best *types.Candle) bool
	failing   predicate
	fast      predicate
}

func (s extremeScan) find(candles []types.Candle, from, to int) (int, bool) {
	from, to = clip(from, to, len(candles))

	best := -1
	for i := from; i < to; i++ {
		c := &candles[i]
		if s.failing != nil && s.failing(c) {
			return 0, false
		}
		if s.qualifies == nil || s.qualifies(c) {
			if best < 0 || s.better(c, &candles[best]) {
				best = i
			}
		}
		if s.fast != nil && s.fast(c) {
			break
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

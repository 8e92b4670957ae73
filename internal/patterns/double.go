package patterns

import "github.com/letieu/pattern-backtest/internal/types"

// direction selects the W (bottom) or M (top) reading of the double formation.
type direction int

const (
	bottom direction = iota
	top
)

// trendIn is the move into the first extreme, trendOut the move away from it.
func (d direction) trendIn(c *types.Candle) bool {
	if d == top {
		return c.IsBullish()
	}
	return c.IsBearish()
}

func (d direction) trendOut(c *types.Candle) bool {
	if d == top {
		return c.IsBearish()
	}
	return c.IsBullish()
}

// extreme is the wick on the formation side, counter the opposite wick.
func (d direction) extreme(c *types.Candle) float64 {
	if d == top {
		return c.High
	}
	return c.Low
}

func (d direction) counter(c *types.Candle) float64 {
	if d == top {
		return c.Low
	}
	return c.High
}

// beyond reports whether a lies further on the formation side than b:
// below for W, above for M.
func (d direction) beyond(a, b float64) bool {
	if d == top {
		return a > b
	}
	return a < b
}

func (d direction) kind() Kind {
	if d == top {
		return KindM
	}
	return KindW
}

// findDouble detects a W (bottom) or M (top) formation anchored at start:
//
//  1. Repetitions candles trending into the first extreme;
//  2. a run of Repetitions candles trending out, inside the next SearchRange candles;
//  3. the neckline candle right after that run (extended while it lasts);
//  4. a second extreme found by an extremum scan that aborts if the first extreme
//     is broken and stops early once price crosses the neckline;
//  5. unless potentialOnly, a close beyond the neckline within SearchRange candles.
func findDouble(candles []types.Candle, start int, p DoubleParams, d direction, potentialOnly bool) (Match, bool) {
	n := len(candles)
	r := p.Repetitions
	if r < 1 {
		r = 1
	}
	span := p.SearchRange
	if span < 1 {
		span = 1
	}
	if start < 0 || start+2*r+1 >= n {
		return Match{}, false
	}

	if _, ok := findRun(candles, start, start+r, r, d.trendIn); !ok {
		return Match{}, false
	}

	outStart, ok := findRun(candles, start+r, start+r+span, r, d.trendOut)
	if !ok {
		return Match{}, false
	}
	neck := outStart + r
	for neck < n && d.trendOut(&candles[neck]) {
		neck++
	}
	if neck >= n {
		return Match{}, false
	}

	// The first extreme is searched from start up to and including the first
	// trend-out candle, so gap candles and that candle's wick count.
	anchorIdx, _ := extremeScan{
		better: func(c, best *types.Candle) bool { return d.beyond(d.extreme(c), d.extreme(best)) },
	}.find(candles, start, outStart+1)
	anchor := d.extreme(&candles[anchorIdx])
	neckline := d.counter(&candles[neck])
	if !d.beyond(anchor, neckline) {
		return Match{}, false
	}

	breaksAnchor := func(c *types.Candle) bool { return d.beyond(d.extreme(c), anchor) }
	second, ok := extremeScan{
		qualifies: func(c *types.Candle) bool { return d.beyond(c.Close, neckline) },
		better:    func(c, best *types.Candle) bool { return d.beyond(c.Close, best.Close) },
		failing:   breaksAnchor,
		fast:      func(c *types.Candle) bool { return d.beyond(neckline, d.counter(c)) },
	}.find(candles, neck+1, neck+1+span)
	if !ok {
		return Match{}, false
	}

	match := Match{
		Kind:       d.kind(),
		StartIndex: start,
		StartTime:  candles[start].OpenTime,
		EndIndex:   second,
		EndTime:    candles[second].CloseTime,
		Neckline:   neckline,
	}
	if d == top {
		match.Higher = anchor
	} else {
		match.Lower = anchor
	}
	if potentialOnly {
		return match, true
	}

	_, to := clip(second+1, second+1+span, n)
	for i := second + 1; i < to; i++ {
		c := &candles[i]
		if breaksAnchor(c) {
			return Match{}, false
		}
		if d.beyond(neckline, c.Close) {
			match.EndIndex = i
			match.EndTime = c.CloseTime
			return match, true
		}
	}
	return Match{}, false
}

package patterns

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/pattern-backtest/internal/types"
)

const minute = int64(60_000)

// createCandles builds one candle per (open, close) pair with half-point wicks,
// one minute apart.
func createCandles(pairs ...[2]float64) []types.Candle {
	candles := make([]types.Candle, len(pairs))
	for i, p := range pairs {
		open, close := p[0], p[1]
		candles[i] = types.Candle{
			OpenTime:  int64(i) * minute,
			CloseTime: int64(i)*minute + minute - 1,
			Open:      open,
			Close:     close,
			High:      math.Max(open, close) + 0.5,
			Low:       math.Min(open, close) - 0.5,
		}
	}
	return candles
}

// mirror reflects prices around 100 so a W becomes an M.
func mirror(candles []types.Candle) []types.Candle {
	out := make([]types.Candle, len(candles))
	for i, c := range candles {
		out[i] = c
		out[i].Open = 200 - c.Open
		out[i].Close = 200 - c.Close
		out[i].High = 200 - c.Low
		out[i].Low = 200 - c.High
	}
	return out
}

// wSeries: three bearish candles down to 94.5, three bullish up to a 104.5
// neckline, a pullback to 97 and a breakout close at 106 on candle 11.
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

func TestFindRun(t *testing.T) {
	candles := createCandles(
		[2]float64{10, 9}, [2]float64{9, 8}, [2]float64{8, 9}, // down, down, up
		[2]float64{9, 8}, [2]float64{8, 7}, [2]float64{7, 6}, // down x3
	)

	tests := []struct {
		name        string
		from, to    int
		repetitions int
		wantIndex   int
		wantOK      bool
	}{
		{name: "run reset by bullish candle", from: 0, to: 6, repetitions: 3, wantIndex: 3, wantOK: true},
		{name: "short run found first", from: 0, to: 6, repetitions: 2, wantIndex: 0, wantOK: true},
		{name: "window too small", from: 0, to: 3, repetitions: 3, wantOK: false},
		{name: "window clipped to slice", from: 3, to: 100, repetitions: 3, wantIndex: 3, wantOK: true},
		{name: "zero repetitions means one", from: 2, to: 6, repetitions: 0, wantIndex: 3, wantOK: true},
		{name: "empty window", from: 6, to: 6, repetitions: 1, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findRun(candles, tt.from, tt.to, tt.repetitions, bearish)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantIndex, got)
			}
		})
	}
}

func TestFindRun_AllPredicatesMustHold(t *testing.T) {
	candles := createCandles([2]float64{10, 9}, [2]float64{9, 8}, [2]float64{8, 7})
	above := func(c *types.Candle) bool { return c.Low > 8 }

	_, ok := findRun(candles, 0, 3, 3, bearish, above)
	assert.False(t, ok)

	idx, ok := findRun(candles, 0, 3, 1, bearish, above)
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestExtremeScan(t *testing.T) {
	candles := createCandles(
		[2]float64{10, 8}, [2]float64{8, 6}, [2]float64{6, 6.5},
		[2]float64{7, 6}, [2]float64{6, 12}, [2]float64{12, 5},
	)
	lowestClose := func(c, best *types.Candle) bool { return c.Close < best.Close }

	t.Run("earliest extreme wins ties", func(t *testing.T) {
		idx, ok := extremeScan{better: lowestClose}.find(candles, 0, 4)
		require.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("fast condition stops at current best", func(t *testing.T) {
		idx, ok := extremeScan{
			better: lowestClose,
			fast:   func(c *types.Candle) bool { return c.High > 11 },
		}.find(candles, 0, 6)
		require.True(t, ok)
		assert.Equal(t, 1, idx, "candle 5 closes lower but lies after the fast stop")
	})

	t.Run("failing condition aborts", func(t *testing.T) {
		_, ok := extremeScan{
			better:  lowestClose,
			failing: func(c *types.Candle) bool { return c.Low < 5.6 },
		}.find(candles, 0, 6)
		assert.False(t, ok)
	})

	t.Run("no qualifying candle", func(t *testing.T) {
		_, ok := extremeScan{
			qualifies: func(c *types.Candle) bool { return c.Close > 100 },
			better:    lowestClose,
		}.find(candles, 0, 6)
		assert.False(t, ok)
	})
}

func TestFindW(t *testing.T) {
	candles := wSeries()

	match, ok := Find(candles, 0, W(3, 5), false)
	require.True(t, ok)

	assert.Equal(t, KindW, match.Kind)
	assert.Equal(t, 0, match.StartIndex)
	assert.Equal(t, candles[0].OpenTime, match.StartTime)
	assert.Equal(t, 11, match.EndIndex)
	assert.Equal(t, candles[11].CloseTime, match.EndTime)
	assert.Equal(t, 94.5, match.Lower)
	assert.Equal(t, 104.5, match.Neckline)
	assert.Greater(t, match.Neckline, match.Lower)
}

func TestFindW_PotentialOnly(t *testing.T) {
	candles := wSeries()

	match, ok := Find(candles, 0, W(3, 5), true)
	require.True(t, ok)
	assert.Equal(t, 8, match.EndIndex, "second bottom is the lowest pullback close")
	assert.Equal(t, 94.5, match.Lower)
	assert.Equal(t, 104.5, match.Neckline)
}

func TestFindW_FirstBottomWindow(t *testing.T) {
	tests := []struct {
		name      string
		index     int
		low       float64
		wantLower float64
	}{
		{name: "wick of the first bullish candle counts", index: 3, low: 94, wantLower: 94},
		{name: "later trend-out candles do not", index: 4, low: 93, wantLower: 94.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candles := wSeries()
			candles[tt.index].Low = tt.low

			match, ok := Find(candles, 0, W(3, 5), false)
			require.True(t, ok)
			assert.Equal(t, tt.wantLower, match.Lower)
		})
	}
}

func TestFindW_NoMatch(t *testing.T) {
	tests := []struct {
		name    string
		candles []types.Candle
		start   int
	}{
		{name: "not anchored on a bearish run", candles: wSeries(), start: 3},
		{name: "second bottom breaks the first", candles: func() []types.Candle {
			c := wSeries()
			c[7].Low = 90
			return c
		}()},
		{name: "no breakout", candles: wSeries()[:11]},
		{name: "empty", candles: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Find(tt.candles, tt.start, W(3, 5), false)
			assert.False(t, ok)
		})
	}
}

func TestFindM_MirrorsW(t *testing.T) {
	candles := mirror(wSeries())

	match, ok := Find(candles, 0, M(3, 5), false)
	require.True(t, ok)

	assert.Equal(t, KindM, match.Kind)
	assert.Equal(t, 11, match.EndIndex)
	assert.Equal(t, 105.5, match.Higher)
	assert.Equal(t, 95.5, match.Neckline)
	assert.Less(t, match.Neckline, match.Higher)

	_, ok = Find(candles, 0, W(3, 5), false)
	assert.False(t, ok)
}

func TestFindBullReversal(t *testing.T) {
	candles := wSeries()

	match, ok := Find(candles, 0, BullReversal(3, 3), false)
	require.True(t, ok)
	assert.Equal(t, KindBullReversal, match.Kind)
	assert.Equal(t, 5, match.EndIndex)
	assert.Equal(t, 95.0, match.Peak)
	assert.Equal(t, 104.0, match.End)
	assert.Equal(t, candles[5].CloseTime, match.EndTime)

	_, ok = Find(candles, 0, BullReversal(4, 1), false)
	assert.False(t, ok, "only three bearish candles")

	_, ok = Find(candles, 0, BullReversal(3, 4), false)
	assert.False(t, ok, "counter trend broken by candle 6")
}

func TestFind_ShortInputNeverMatches(t *testing.T) {
	candles := wSeries()
	params := []Params{W(3, 5), M(3, 5), BullReversal(3, 3), W(0, 0), BullReversal(0, 0)}

	for _, p := range params {
		for n := 0; n <= len(candles); n++ {
			for start := -1; start <= n+1; start++ {
				assert.NotPanics(t, func() {
					Find(candles[:n], start, p, false)
					Find(candles[:n], start, p, true)
				})
			}
		}
		_, ok := Find(candles[:4], 0, p, false)
		assert.False(t, ok, p.Kind.String())
	}
}

func TestFind_Deterministic(t *testing.T) {
	candles := wSeries()
	first, ok1 := Find(candles, 0, W(3, 5), false)
	second, ok2 := Find(candles, 0, W(3, 5), false)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestParams(t *testing.T) {
	kind, err := ParseKind("bull-reversal")
	require.NoError(t, err)
	assert.Equal(t, KindBullReversal, kind)

	_, err = ParseKind("triangle")
	assert.Error(t, err)

	assert.Equal(t, map[string]string{"name": "W", "klines_repetitions": "3", "klines_range": "5"}, W(3, 5).Values())
	assert.Equal(t, map[string]string{"name": "Bull Reversal", "trend_size": "4", "counter_trend_size": "2"}, BullReversal(4, 2).Values())

	_, ok := Find(wSeries(), 0, Params{}, false)
	assert.False(t, ok, "zero kind never matches")
}

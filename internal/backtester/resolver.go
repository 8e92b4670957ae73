package backtester

import (
	"math"
	"sort"

	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

const (
	FeeRateSpot    = 0.0
	FeeRateFutures = 0.0002
	MaxLeverage    = 10.0
)

const progressEvery = 1000

func FeeRate(market strategies.MarketType) float64 {
	if market == strategies.MarketFutures {
		return FeeRateFutures
	}
	return FeeRateSpot
}

// Account is the running balance of one strategy run.
type Account struct {
	Equity      float64
	EquityCurve []float64
	Exhausted   bool
}

func NewAccount(startingEquity float64) *Account {
	return &Account{Equity: startingEquity, EquityCurve: []float64{}}
}

// Resolve walks the candles once, from the first candle that can open a pending
// trade, activating, triggering and closing trades against the account.
// Closed trades are left untouched, so resolving a resolved list is a no-op.
// The pass stops as soon as equity reaches zero. Progress is reported as 50-100%.
func Resolve(candles []types.Candle, trades []types.Trade, cfg strategies.Config, account *Account, progress strategies.ProgressFunc) {
	if account.Equity <= 0 {
		account.Exhausted = true
		return
	}

	first := 0
	for first < len(trades) && trades[first].Status.Closed() {
		first++
	}
	if first == len(trades) {
		return
	}
	start := sort.Search(len(candles), func(i int) bool {
		return candles[i].CloseTime >= trades[first].OpenTime
	})

	lastSent := 0
	for i := start; i < len(candles); i++ {
		c := &candles[i]
		for first < len(trades) && trades[first].Status.Closed() {
			first++
		}
		if first == len(trades) {
			return
		}

		for j := first; j < len(trades); j++ {
			t := &trades[j]
			if t.OpenTime > c.CloseTime {
				break
			}
			switch t.Status {
			case types.StatusNotOpened:
				if t.OpenTime == c.CloseTime {
					account.open(t, c, i, cfg)
				}
			case types.StatusNotTriggered:
				if c.Contains(t.EntryPrice) {
					t.MarkRunning(i)
				}
			case types.StatusRunning:
				if i > t.RunningSince() {
					account.settle(t, c)
				}
			}
			if account.Equity <= 0 {
				account.Exhausted = true
				return
			}
		}

		if progress != nil && lastSent+progressEvery < i {
			progress(float32(i)/float32(len(candles))*50 + 50)
			lastSent = i
		}
	}
}

// open sizes the trade so that hitting the stop loses risk*(sl/tp) of equity,
// caps spot exposure at MaxLeverage and charges the entry fee.
func (a *Account) open(t *types.Trade, c *types.Candle, index int, cfg strategies.Config) {
	distance := math.Abs(t.EntryPrice - t.StopLoss)

	size := 0.0
	if distance > 0 && cfg.TakeProfitMultiplier != 0 {
		size = a.Equity * cfg.RiskPerTrade * (cfg.StopLossMultiplier / cfg.TakeProfitMultiplier) / distance
	}
	if cfg.MarketType == strategies.MarketSpot && t.EntryPrice > 0 {
		if limit := a.Equity * MaxLeverage / t.EntryPrice; size > limit {
			size = limit
		}
	}

	fees := size * t.EntryPrice * FeeRate(cfg.MarketType)
	a.Equity -= fees

	t.PositionSize = size
	t.Fees = fees
	t.EquityAtOpen = a.Equity
	t.GrossProfit = size * math.Abs(t.TakeProfit-t.EntryPrice)
	t.GrossLoss = size * distance

	if c.Contains(t.EntryPrice) {
		t.MarkRunning(index)
	} else {
		t.Status = types.StatusNotTriggered
	}
}

// settle closes a running trade touched by the candle. Touching both levels in
// one candle is Unknown: OHLC data cannot tell which came first.
func (a *Account) settle(t *types.Trade, c *types.Candle) {
	stop, target := t.StopTouched(c), t.TargetTouched(c)
	switch {
	case stop && target:
		t.Status = types.StatusUnknown
	case stop:
		t.Status = types.StatusLost
		a.Equity -= t.GrossLoss
		a.EquityCurve = append(a.EquityCurve, a.Equity)
	case target:
		t.Status = types.StatusWin
		a.Equity += t.GrossProfit
		a.EquityCurve = append(a.EquityCurve, a.Equity)
	default:
		return
	}
	t.CloseTime = c.CloseTime
}

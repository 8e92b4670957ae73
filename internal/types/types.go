package types

import (
	"time"
)

type Candle struct {
	OpenTime      int64   `json:"openTime" csv:"open_time"`
	CloseTime     int64   `json:"closeTime" csv:"close_time"`
	Open          float64 `json:"open" csv:"open"`
	High          float64 `json:"high" csv:"high"`
	Low           float64 `json:"low" csv:"low"`
	Close         float64 `json:"close" csv:"close"`
	Volume        float64 `json:"volume" csv:"volume"`
	QuoteVolume   float64 `json:"quoteVolume" csv:"quote_volume"`
	TradeCount    int64   `json:"tradeCount" csv:"trade_count"`
	TakerBuyBase  float64 `json:"takerBuyBase" csv:"taker_buy_base"`
	TakerBuyQuote float64 `json:"takerBuyQuote" csv:"taker_buy_quote"`
	Symbol        string  `json:"symbol,omitempty" csv:"-"`
	Interval      string  `json:"interval,omitempty" csv:"-"`
}

type CandleColor string

const (
	ColorGreen CandleColor = "green"
	ColorRed   CandleColor = "red"
)

func (c *Candle) Color() CandleColor {
	if c.Close >= c.Open {
		return ColorGreen
	}
	return ColorRed
}

// IsBullish reports a strictly rising candle. Doji candles are neither bullish nor bearish.
func (c *Candle) IsBullish() bool {
	return c.Close > c.Open
}

func (c *Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Contains reports whether price lies inside the candle's low/high bracket.
func (c *Candle) Contains(price float64) bool {
	return price >= c.Low && price <= c.High
}

type Signal struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	Pattern   string    `json:"pattern"`
	Trend     string    `json:"trend"`
	Price     float64   `json:"price"`
	Neckline  float64   `json:"neckline"`
	Anchor    float64   `json:"anchor"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
	Candles   []Candle  `json:"candles"`
}

type MarketDataProvider interface {
	GetSymbols() ([]string, error)
	GetCandles(symbol, interval string, limit int, endTime int64) ([]Candle, error)
	GetTickerInfo(symbol string) (TickerInfo, error)
}

type TickerInfo struct {
	Symbol       string  `json:"symbol"`
	LastPrice    float64 `json:"lastPrice"`
	PrevPrice24h float64 `json:"prevPrice24h"`
	Volume24h    float64 `json:"volume24h"`
	Turnover24h  float64 `json:"turnover24h"`
}

type NotificationSender interface {
	SendSignals(signals []Signal) error
	SendMessage(message string) error
}

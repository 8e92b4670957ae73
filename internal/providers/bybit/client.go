package bybit

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/letieu/pattern-backtest/internal/config"
	"github.com/letieu/pattern-backtest/internal/types"
)

type Client struct {
	config            *config.BybitConfig
	client            *http.Client
	logger            *slog.Logger
	cachedSymbols     []string
	lastSymbolsUpdate time.Time
	mu                sync.RWMutex
}

type InstrumentsResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List           []Instrument `json:"list"`
		NextPageCursor string       `json:"nextPageCursor"`
	} `json:"result"`
}

type Instrument struct {
	Symbol    string `json:"symbol"`
	Status    string `json:"status"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
}

type KlineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

type TickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol       string `json:"symbol"`
			LastPrice    string `json:"lastPrice"`
			PrevPrice24h string `json:"prevPrice24h"`
			Volume24h    string `json:"volume24h"`
			Turnover24h  string `json:"turnover24h"`
		} `json:"list"`
	} `json:"result"`
}

func NewClient(cfg *config.BybitConfig) *Client {
	return &Client{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: slog.Default(),
	}
}

func (c *Client) GetSymbols() ([]string, error) {
	c.mu.RLock()
	if len(c.cachedSymbols) > 0 && time.Since(c.lastSymbolsUpdate) < 24*time.Hour {
		defer c.mu.RUnlock()
		return c.cachedSymbols, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if len(c.cachedSymbols) > 0 && time.Since(c.lastSymbolsUpdate) < 24*time.Hour {
		return c.cachedSymbols, nil
	}

	var symbols []string
	cursor := ""

	for {
		url := fmt.Sprintf("%s/v5/market/instruments-info?category=linear&limit=1000", c.config.BaseURL)
		if cursor != "" {
			url = fmt.Sprintf("%s&cursor=%s", url, cursor)
		}

		var instrumentsResp InstrumentsResponse
		if err := c.getJSON(url, &instrumentsResp); err != nil {
			return nil, err
		}

		if instrumentsResp.RetCode != 0 {
			return nil, fmt.Errorf("API error: retCode=%d, msg=%s", instrumentsResp.RetCode, instrumentsResp.RetMsg)
		}

		for _, instrument := range instrumentsResp.Result.List {
			if instrument.Status == "Trading" && strings.HasSuffix(instrument.Symbol, "USDT") {
				symbols = append(symbols, instrument.Symbol)
			}
		}

		cursor = instrumentsResp.Result.NextPageCursor
		if cursor == "" {
			break
		}

		c.pause()
	}

	c.cachedSymbols = symbols
	c.lastSymbolsUpdate = time.Now()

	c.logger.Info("retrieved symbols", "count", len(symbols))
	return symbols, nil
}

// pause spaces paged requests according to the configured requests per second.
func (c *Client) pause() {
	if c.config.RateLimit <= 0 {
		time.Sleep(100 * time.Millisecond)
		return
	}
	time.Sleep(time.Second / time.Duration(c.config.RateLimit))
}

func (c *Client) getJSON(url string, out interface{}) error {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	maxRetries := 3

	for i := 0; i < maxRetries; i++ {
		resp, err = c.client.Do(req)
		if err == nil {
			return resp, nil
		}

		// Only retry on network errors or timeouts
		c.logger.Warn("request failed, retrying in 2s", "attempt", i+1, "max_attempts", maxRetries, "error", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, err)
}

// GetCandles returns up to limit candles ending at endTime (unix ms, 0 = now),
// oldest first.
func (c *Client) GetCandles(symbol, interval string, limit int, endTime int64) ([]types.Candle, error) {
	return c.fetchKlines(symbol, interval, limit, 0, endTime)
}

// GetCandleRange pages backwards from end to start and returns every candle
// opened in [start, end), oldest first and without duplicates.
func (c *Client) GetCandleRange(symbol, interval string, start, end time.Time) ([]types.Candle, error) {
	pageSize := c.config.PageSize
	if pageSize <= 0 || pageSize > 1000 {
		pageSize = 1000
	}
	startMs, cursor := start.UnixMilli(), end.UnixMilli()-1

	var all []types.Candle
	for page := 1; cursor >= startMs; page++ {
		candles, err := c.fetchKlines(symbol, interval, pageSize, startMs, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to get page %d for %s: %w", page, symbol, err)
		}
		if len(candles) == 0 {
			break
		}
		all = append(all, candles...)

		oldest := candles[0].OpenTime
		if oldest <= startMs || oldest-1 >= cursor {
			break
		}
		cursor = oldest - 1

		if page%10 == 0 {
			c.logger.Info("retrieving candles", "symbol", symbol, "interval", interval, "pages", page, "candles", len(all))
		}
		c.pause()
	}

	all = lo.UniqBy(all, func(candle types.Candle) int64 { return candle.OpenTime })
	all = lo.Filter(all, func(candle types.Candle, _ int) bool {
		return candle.OpenTime >= startMs && candle.OpenTime < end.UnixMilli()
	})
	sort.Slice(all, func(i, j int) bool { return all[i].OpenTime < all[j].OpenTime })
	return all, nil
}

func (c *Client) fetchKlines(symbol, interval string, limit int, startTime, endTime int64) ([]types.Candle, error) {
	bybitInterval := mapIntervalToBybit(interval)
	url := fmt.Sprintf("%s/v5/market/kline?category=linear&symbol=%s&interval=%s&limit=%d",
		c.config.BaseURL, symbol, bybitInterval, limit)

	if startTime > 0 {
		url = fmt.Sprintf("%s&start=%d", url, startTime)
	}
	if endTime > 0 {
		url = fmt.Sprintf("%s&end=%d", url, endTime)
	}

	var klineResp KlineResponse
	if err := c.getJSON(url, &klineResp); err != nil {
		return nil, err
	}

	if klineResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: retCode=%d, msg=%s", klineResp.RetCode, klineResp.RetMsg)
	}

	duration := IntervalDuration(interval)
	var candles []types.Candle
	for _, candleData := range klineResp.Result.List {
		candle, err := parseKline(candleData, duration)
		if err != nil {
			c.logger.Warn("skipping kline", "symbol", symbol, "error", err)
			continue
		}
		candle.Symbol = symbol
		candle.Interval = interval
		candles = append(candles, candle)
	}

	// Reverse candles to be chronological (Oldest First)
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// parseKline decodes [startTime, open, high, low, close, volume, turnover].
func parseKline(data []string, duration time.Duration) (types.Candle, error) {
	if len(data) < 6 {
		return types.Candle{}, fmt.Errorf("kline has %d fields, want at least 6", len(data))
	}

	timestamp, err := strconv.ParseInt(data[0], 10, 64)
	if err != nil {
		return types.Candle{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	var prices [5]float64
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := range prices {
		prices[i], err = strconv.ParseFloat(data[i+1], 64)
		if err != nil {
			return types.Candle{}, fmt.Errorf("failed to parse %s price: %w", names[i], err)
		}
	}

	candle := types.Candle{
		OpenTime:  timestamp,
		CloseTime: timestamp + duration.Milliseconds() - 1,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
	}
	if len(data) > 6 {
		if turnover, err := strconv.ParseFloat(data[6], 64); err == nil {
			candle.QuoteVolume = turnover
		}
	}
	if err := candle.Validate(); err != nil {
		return types.Candle{}, err
	}
	return candle, nil
}

func (c *Client) GetTickerInfo(symbol string) (types.TickerInfo, error) {
	url := fmt.Sprintf("%s/v5/market/tickers?category=linear&symbol=%s", c.config.BaseURL, symbol)

	var tickersResp TickersResponse
	if err := c.getJSON(url, &tickersResp); err != nil {
		return types.TickerInfo{}, err
	}
	if tickersResp.RetCode != 0 {
		return types.TickerInfo{}, fmt.Errorf("API error: retCode=%d, msg=%s", tickersResp.RetCode, tickersResp.RetMsg)
	}
	if len(tickersResp.Result.List) == 0 {
		return types.TickerInfo{}, fmt.Errorf("no ticker for %s", symbol)
	}

	t := tickersResp.Result.List[0]
	parse := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	return types.TickerInfo{
		Symbol:       t.Symbol,
		LastPrice:    parse(t.LastPrice),
		PrevPrice24h: parse(t.PrevPrice24h),
		Volume24h:    parse(t.Volume24h),
		Turnover24h:  parse(t.Turnover24h),
	}, nil
}

// IntervalDuration maps an interval name to its length. Unknown names map to one hour.
func IntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "3m":
		return 3 * time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "2h":
		return 2 * time.Hour
	case "4h":
		return 4 * time.Hour
	case "6h":
		return 6 * time.Hour
	case "12h":
		return 12 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	case "1M":
		return 30 * 24 * time.Hour
	default:
		return time.Hour
	}
}

func mapIntervalToBybit(interval string) string {
	switch interval {
	case "1m":
		return "1"
	case "3m":
		return "3"
	case "5m":
		return "5"
	case "15m":
		return "15"
	case "30m":
		return "30"
	case "1h":
		return "60"
	case "2h":
		return "120"
	case "4h":
		return "240"
	case "6h":
		return "360"
	case "12h":
		return "720"
	case "1d":
		return "D"
	case "1w":
		return "W"
	case "1M":
		return "M"
	default:
		return interval
	}
}

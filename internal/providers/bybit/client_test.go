package bybit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letieu/pattern-backtest/internal/config"
)

const hourMs = int64(3_600_000)

// fakeExchange serves hourly klines opened at 0h..(count-1)h, newest first as
// Bybit does, honouring start, end (inclusive) and limit.
func fakeExchange(t *testing.T, count int, requests *int32) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v5/market/kline", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		q := r.URL.Query()
		assert.Equal(t, "linear", q.Get("category"))
		assert.Equal(t, "60", q.Get("interval"))

		limit, _ := strconv.Atoi(q.Get("limit"))
		start, _ := strconv.ParseInt(q.Get("start"), 10, 64)
		end := int64(count) * hourMs
		if v := q.Get("end"); v != "" {
			end, _ = strconv.ParseInt(v, 10, 64)
		}

		list := [][]string{}
		for i := count - 1; i >= 0 && len(list) < limit; i-- {
			open := int64(i) * hourMs
			if open < start || open > end {
				continue
			}
			price := 100 + float64(i)
			list = append(list, []string{
				strconv.FormatInt(open, 10),
				strconv.FormatFloat(price, 'f', -1, 64),
				strconv.FormatFloat(price+2, 'f', -1, 64),
				strconv.FormatFloat(price-1, 'f', -1, 64),
				strconv.FormatFloat(price+1, 'f', -1, 64),
				"10",
				"1000",
			})
		}
		writeJSON(t, w, map[string]any{"retCode": 0, "retMsg": "OK", "result": map[string]any{"list": list}})
	})
	mux.HandleFunc("/v5/market/instruments-info", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		if r.URL.Query().Get("cursor") == "" {
			writeJSON(t, w, map[string]any{"retCode": 0, "result": map[string]any{
				"list": []map[string]string{
					{"symbol": "BTCUSDT", "status": "Trading"},
					{"symbol": "ETHBTC", "status": "Trading"},
				},
				"nextPageCursor": "page2",
			}})
			return
		}
		writeJSON(t, w, map[string]any{"retCode": 0, "result": map[string]any{
			"list": []map[string]string{
				{"symbol": "SOLUSDT", "status": "Trading"},
				{"symbol": "OLDUSDT", "status": "Closed"},
			},
		}})
	})
	mux.HandleFunc("/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(requests, 1)
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			writeJSON(t, w, map[string]any{"retCode": 10001, "retMsg": "params error: symbol invalid"})
			return
		}
		writeJSON(t, w, map[string]any{"retCode": 0, "result": map[string]any{
			"list": []map[string]string{
				{"symbol": "BTCUSDT", "lastPrice": "65000.5", "prevPrice24h": "64000", "volume24h": "1234.5", "turnover24h": "80000000"},
			},
		}})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(t *testing.T, w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(body))
}

func newTestClient(baseURL string, pageSize int) *Client {
	return NewClient(&config.BybitConfig{
		BaseURL:   baseURL,
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		PageSize:  pageSize,
	})
}

func TestGetCandles(t *testing.T) {
	var requests int32
	server := fakeExchange(t, 10, &requests)
	client := newTestClient(server.URL, 0)

	candles, err := client.GetCandles("BTCUSDT", "1h", 3, 0)
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, 7*hourMs, candles[0].OpenTime, "oldest first")
	assert.Equal(t, 9*hourMs, candles[2].OpenTime)
	assert.Equal(t, 8*hourMs-1, candles[0].CloseTime)
	assert.Equal(t, 107.0, candles[0].Open)
	assert.Equal(t, 109.0, candles[0].High)
	assert.Equal(t, 106.0, candles[0].Low)
	assert.Equal(t, 108.0, candles[0].Close)
	assert.Equal(t, 1000.0, candles[0].QuoteVolume)
	assert.Equal(t, "BTCUSDT", candles[0].Symbol)
	assert.Equal(t, "1h", candles[0].Interval)

	candles, err = client.GetCandles("BTCUSDT", "1h", 2, 4*hourMs)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 3*hourMs, candles[0].OpenTime)
	assert.Equal(t, 4*hourMs, candles[1].OpenTime)
}

func TestGetCandleRange_PagesBackwards(t *testing.T) {
	var requests int32
	server := fakeExchange(t, 10, &requests)
	client := newTestClient(server.URL, 2)

	start := time.UnixMilli(0)
	end := time.UnixMilli(5 * hourMs)

	candles, err := client.GetCandleRange("BTCUSDT", "1h", start, end)
	require.NoError(t, err)
	require.Len(t, candles, 5)
	for i, c := range candles {
		assert.Equal(t, int64(i)*hourMs, c.OpenTime)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestGetCandleRange_WindowInsideHistory(t *testing.T) {
	var requests int32
	server := fakeExchange(t, 10, &requests)
	client := newTestClient(server.URL, 1000)

	candles, err := client.GetCandleRange("BTCUSDT", "1h", time.UnixMilli(2*hourMs+1), time.UnixMilli(6*hourMs))
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, 3*hourMs, candles[0].OpenTime)
	assert.Equal(t, 5*hourMs, candles[2].OpenTime)
}

func TestGetSymbols(t *testing.T) {
	var requests int32
	server := fakeExchange(t, 0, &requests)
	client := newTestClient(server.URL, 0)

	symbols, err := client.GetSymbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT", "SOLUSDT"}, symbols)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))

	_, err = client.GetSymbols()
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests), "symbols are cached")
}

func TestGetTickerInfo(t *testing.T) {
	var requests int32
	server := fakeExchange(t, 0, &requests)
	client := newTestClient(server.URL, 0)

	info, err := client.GetTickerInfo("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 65000.5, info.LastPrice)
	assert.Equal(t, 1234.5, info.Volume24h)

	_, err = client.GetTickerInfo("NOPE")
	assert.ErrorContains(t, err, "retCode=10001")
}

func TestParseKline(t *testing.T) {
	tests := []struct {
		name    string
		data    []string
		wantErr bool
	}{
		{name: "valid", data: []string{"3600000", "100", "102", "99", "101", "5", "500"}},
		{name: "without turnover", data: []string{"3600000", "100", "102", "99", "101", "5"}},
		{name: "too short", data: []string{"3600000", "100"}, wantErr: true},
		{name: "bad timestamp", data: []string{"x", "100", "102", "99", "101", "5"}, wantErr: true},
		{name: "bad price", data: []string{"3600000", "100", "abc", "99", "101", "5"}, wantErr: true},
		{name: "high below low", data: []string{"3600000", "100", "98", "99", "101", "5"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candle, err := parseKline(tt.data, time.Hour)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(3_600_000), candle.OpenTime)
			assert.Equal(t, int64(7_199_999), candle.CloseTime)
		})
	}
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, "240", mapIntervalToBybit("4h"))
	assert.Equal(t, "D", mapIntervalToBybit("1d"))
	assert.Equal(t, 4*time.Hour, IntervalDuration("4h"))
	assert.Equal(t, 15*time.Minute, IntervalDuration("15m"))
}

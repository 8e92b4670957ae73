package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/letieu/pattern-backtest/internal/types"
)

func TestFormatSignals(t *testing.T) {
	signals := []types.Signal{
		{Symbol: "SOLUSDT", Interval: "1h", Pattern: "M", Trend: "bearish", Neckline: 95.5},
		{Symbol: "ETHUSDT", Interval: "1h", Pattern: "W", Trend: "bullish", Neckline: 104.5},
		{Symbol: "ADAUSDT", Interval: "1h", Pattern: "Bull Reversal", Trend: "bullish", Neckline: 0.45},
	}

	text := FormatSignals(signals)
	lines := strings.Split(strings.TrimSpace(text), "\n")

	// header, blank line, then one line per signal
	assert.Len(t, lines, 5)
	assert.Contains(t, lines[0], "<b>Chart patterns</b> (1h)")
	assert.Contains(t, lines[2], "ADAUSDT", "bullish first, then by symbol")
	assert.Contains(t, lines[3], "ETHUSDT")
	assert.Contains(t, lines[3], "<code>104.5</code>")
	assert.True(t, strings.HasPrefix(lines[4], "🔴 <a href=\"https://www.bybit.com/trade/usdt/SOLUSDT\">"))
	assert.Equal(t, "SOLUSDT", signals[0].Symbol, "input order untouched")
}

func TestFormatSignals_Empty(t *testing.T) {
	assert.Empty(t, FormatSignals(nil))
}

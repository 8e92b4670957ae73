package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/letieu/pattern-backtest/internal/types"
)

type Bot struct {
	out io.Writer
}

func NewBot() *Bot {
	return &Bot{out: os.Stdout}
}

// NewBotWithWriter writes to out instead of stdout.
func NewBotWithWriter(out io.Writer) *Bot {
	return &Bot{out: out}
}

func (b *Bot) SendSignals(signals []types.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	message := b.formatSignalsMessage(signals)
	_, err := fmt.Fprintln(b.out, message)
	return err
}

func (b *Bot) SendMessage(message string) error {
	_, err := fmt.Fprintln(b.out, message)
	return err
}

func (b *Bot) formatSignalsMessage(signals []types.Signal) string {
	if len(signals) == 0 {
		return "No pattern signals found"
	}

	var builder strings.Builder

	interval := signals[0].Interval

	builder.WriteString(fmt.Sprintf("\n=== \033[1mPatterns (%s)\033[0m ===\n", interval))

	for _, signal := range signals {
		trendIcon := "⬆️"
		colorCode := "\033[92m" // Green
		if signal.Trend == "bearish" {
			trendIcon = "⬇️"
			colorCode = "\033[91m" // Red
		}

		line := fmt.Sprintf("%s[%s] %s %-13s %-7s\033[0m %s | Price: %.4f | Neckline: %.4f | Anchor: %.4f | Vol: %.1f",
			colorCode, signal.Symbol, trendIcon, signal.Pattern, strings.ToUpper(signal.Trend), candleStrip(signal.Candles),
			signal.Price, signal.Neckline, signal.Anchor, signal.Volume)

		builder.WriteString(line)
		builder.WriteString("\n")
	}
	builder.WriteString("==========================\n")

	return builder.String()
}

// candleStrip renders the trailing candles as colored blocks, oldest first.
func candleStrip(candles []types.Candle) string {
	var strip strings.Builder
	for i := range candles {
		if candles[i].Color() == types.ColorGreen {
			strip.WriteString("🟩")
		} else {
			strip.WriteString("🟥")
		}
	}
	return strip.String()
}

package telegram

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/letieu/pattern-backtest/internal/config"
	"github.com/letieu/pattern-backtest/internal/types"
)

type Bot struct {
	config *config.TelegramConfig
	bot    *tgbotapi.BotAPI
}

func NewBot(cfg *config.TelegramConfig) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot.Debug = false

	return &Bot{
		config: cfg,
		bot:    bot,
	}, nil
}

func (b *Bot) SendSignals(signals []types.Signal) error {
	if len(signals) == 0 {
		return nil
	}

	return b.send(FormatSignals(signals))
}

// SendMessage sends plain text, preformatted so report columns stay aligned.
func (b *Bot) SendMessage(message string) error {
	return b.send("<pre>" + html.EscapeString(message) + "</pre>")
}

func (b *Bot) send(text string) error {
	chatID, err := strconv.ParseInt(b.config.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID format: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := b.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

// WaitForChatID blocks until someone messages the bot and returns that chat's
// ID and the sender's user name.
func (b *Bot) WaitForChatID(timeoutSeconds int) (int64, string, error) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds

	updates := b.bot.GetUpdatesChan(u)
	defer b.bot.StopReceivingUpdates()

	for update := range updates {
		if update.Message == nil {
			continue
		}
		var from string
		if update.Message.From != nil {
			from = update.Message.From.UserName
		}
		return update.Message.Chat.ID, from, nil
	}
	return 0, "", fmt.Errorf("update channel closed before any message arrived")
}

// UserName is the bot account the token authorizes.
func (b *Bot) UserName() string {
	return b.bot.Self.UserName
}

// FormatSignals renders signals as HTML, bullish first, then by symbol.
func FormatSignals(signals []types.Signal) string {
	if len(signals) == 0 {
		return ""
	}

	var builder strings.Builder

	interval := signals[0].Interval

	// Header
	builder.WriteString(fmt.Sprintf("📊 <b>Chart patterns</b> (%s)\n\n", html.EscapeString(interval)))

	sorted := append([]types.Signal(nil), signals...)
	sort.SliceStable(sorted, func(i, j int) bool {
		isIBullish := sorted[i].Trend != "bearish"
		isJBullish := sorted[j].Trend != "bearish"

		if isIBullish != isJBullish {
			return isIBullish
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})

	for _, signal := range sorted {
		icon := "🟢"
		if signal.Trend == "bearish" {
			icon = "🔴"
		}

		url := fmt.Sprintf("https://www.bybit.com/trade/usdt/%s", signal.Symbol)
		line := fmt.Sprintf("%s <a href=\"%s\"><b>%s</b></a> %s neckline <code>%g</code>\n",
			icon, url, html.EscapeString(signal.Symbol), html.EscapeString(signal.Pattern), signal.Neckline)

		builder.WriteString(line)
	}

	return builder.String()
}

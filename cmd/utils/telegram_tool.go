package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/letieu/pattern-backtest/internal/backtester"
	"github.com/letieu/pattern-backtest/internal/config"
	"github.com/letieu/pattern-backtest/internal/frontends/telegram"
	"github.com/letieu/pattern-backtest/internal/patterns"
	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

func main() {
	action := flag.String("action", "get-id", "Action to perform: 'get-id' or 'test-msg'")
	configFile := flag.String("config", "pattern-backtest.yaml", "Path to config file")
	flag.Parse()

	cfg := config.Load(*configFile)
	if cfg.Telegram.BotToken == "" {
		log.Fatal("Bot token not found in config file")
	}

	bot, err := telegram.NewBot(&cfg.Telegram)
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}

	log.Printf("Authorized on account %s", bot.UserName())

	if *action == "test-msg" {
		sendTestMessage(bot, cfg.Telegram.ChatID)
	} else {
		getChatID(bot)
	}
}

// sendTestMessage sends a summary of a tiny built-in backtest, the same kind of
// message `backtest -notify` produces.
func sendTestMessage(bot *telegram.Bot, chatID string) {
	if chatID == "" {
		log.Fatal("Chat ID is empty in config file")
	}

	candles := make([]types.Candle, 0, 8)
	for i, p := range [][2]float64{{100, 90}, {90, 80}, {80, 70}, {70, 75}, {75, 81}, {81, 86}, {86, 92}, {92, 95}} {
		open := int64(i) * 3_600_000
		candles = append(candles, types.Candle{
			OpenTime: open, CloseTime: open + 3_599_999,
			Open: p[0], Close: p[1], High: max(p[0], p[1]) + 1, Low: min(p[0], p[1]) - 1,
			Symbol: "TESTUSDT", Interval: "1h",
		})
	}
	cfg := strategies.Config{
		TakeProfitMultiplier: 1,
		StopLossMultiplier:   1,
		RiskPerTrade:         0.01,
		StartingEquity:       1000,
		MarketType:           strategies.MarketSpot,
		Pattern:              patterns.BullReversal(3, 1),
	}

	result, err := backtester.NewEngine().RunTest(candles, []strategies.Config{cfg}, nil)
	if err != nil {
		log.Fatalf("Failed to run sample backtest: %v", err)
	}

	if err := bot.SendMessage("✅ Test message\n\n" + backtester.Summary(result, 1)); err != nil {
		log.Fatalf("Failed to send message: %v", err)
	}

	fmt.Println("Successfully sent test message!")
}

func getChatID(bot *telegram.Bot) {
	fmt.Println("Waiting for messages... Please send a message to your bot on Telegram.")

	chatID, from, err := bot.WaitForChatID(60)
	if err != nil {
		log.Fatalf("Failed to read updates: %v", err)
	}

	fmt.Printf("[%s] Chat ID: %d\n", from, chatID)
	fmt.Println("------------------------------")
	fmt.Println("Copy this Chat ID and put it in your pattern-backtest.yaml file.")
}

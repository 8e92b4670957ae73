package bot

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/letieu/pattern-backtest/internal/config"
	"github.com/letieu/pattern-backtest/internal/frontends/console"
	"github.com/letieu/pattern-backtest/internal/frontends/telegram"
	"github.com/letieu/pattern-backtest/internal/patterns"
	"github.com/letieu/pattern-backtest/internal/providers/bybit"
	"github.com/letieu/pattern-backtest/internal/strategies"
	"github.com/letieu/pattern-backtest/internal/types"
)

// Bot periodically scans symbols for formations that are forming right now:
// potential W and M patterns (second extreme in place, neckline not yet broken)
// and completed bull reversals.
type Bot struct {
	config   *config.Config
	provider types.MarketDataProvider
	sender   types.NotificationSender
	watch    []strategies.Config
	logger   *slog.Logger
}

func NewBot(cfg *config.Config) (*Bot, error) {
	bybitClient := bybit.NewClient(&cfg.Bybit)

	sender, err := NewSender(cfg)
	if err != nil {
		return nil, err
	}

	return NewBotWithDeps(cfg, bybitClient, sender), nil
}

// NewSender builds the frontend named by bot.frontend.
func NewSender(cfg *config.Config) (types.NotificationSender, error) {
	switch cfg.Bot.Frontend {
	case "console", "":
		return console.NewBot(), nil
	case "telegram":
		sender, err := telegram.NewBot(&cfg.Telegram)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		return sender, nil
	default:
		slog.Warn("unknown frontend, defaulting to console", "frontend", cfg.Bot.Frontend)
		return console.NewBot(), nil
	}
}

func NewBotWithDeps(cfg *config.Config, provider types.MarketDataProvider, sender types.NotificationSender) *Bot {
	r, span := cfg.Bot.Repetitions, cfg.Bot.SearchRange
	// unit multipliers put the stop on the pattern anchor and the entry on the neckline
	watch := lo.Map([]patterns.Params{
		patterns.W(r, span),
		patterns.M(r, span),
		patterns.BullReversal(r, 1),
	}, func(p patterns.Params, _ int) strategies.Config {
		return strategies.Config{TakeProfitMultiplier: 1, StopLossMultiplier: 1, Pattern: p}
	})

	return &Bot{
		config:   cfg,
		provider: provider,
		sender:   sender,
		watch:    watch,
		logger:   slog.Default(),
	}
}

func (b *Bot) Start() error {
	b.logger.Info("starting pattern alert bot", "intervals", b.config.Bot.EnabledIntervals)

	if b.config.Bot.RunOnce {
		b.logger.Info("running in one-time mode")
		return b.scan()
	}

	scanInterval := b.config.Bot.ScanInterval
	if scanInterval <= 0 {
		scanInterval = time.Hour
	}
	ticker := time.NewTicker(scanInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := b.scan(); err != nil {
			b.logger.Error("scan failed", "error", err)
		}
	}
	return nil
}

func (b *Bot) scan() error {
	symbols, err := b.provider.GetSymbols()
	if err != nil {
		return fmt.Errorf("failed to get symbols: %w", err)
	}

	b.logger.Info("scanning symbols for patterns", "symbols", len(symbols))

	var wg sync.WaitGroup
	signalsChan := make(chan []types.Signal, len(b.config.Bot.EnabledIntervals))

	for _, interval := range b.config.Bot.EnabledIntervals {
		wg.Add(1)
		go func(intervalStr string) {
			defer wg.Done()
			signals := b.scanInterval(symbols, intervalStr)
			signalsChan <- signals
		}(interval)
	}

	wg.Wait()
	close(signalsChan)

	allSignals := make([]types.Signal, 0)
	for signals := range signalsChan {
		allSignals = append(allSignals, signals...)
	}

	if len(allSignals) > 0 {
		b.logger.Info("found signals, sending result", "signals", len(allSignals))
		if err := b.sender.SendSignals(allSignals); err != nil {
			return fmt.Errorf("failed to send signals: %w", err)
		}
	} else {
		b.logger.Info("no signals found in this scan")
	}

	return nil
}

func (b *Bot) scanInterval(symbols []string, interval string) []types.Signal {
	var signals []types.Signal
	var mu sync.Mutex

	concurrency := b.config.Bot.MaxConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	batchSize := b.config.Bot.BatchSize
	if batchSize < 1 {
		batchSize = len(symbols)
	}

	semaphore := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := 0; i < len(symbols); i += batchSize {
		end := i + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		batch := symbols[i:end]

		for _, symbol := range batch {
			wg.Add(1)
			go func(sym string) {
				defer wg.Done()

				semaphore <- struct{}{}
				defer func() { <-semaphore }()

				found := b.checkSymbol(sym, interval)
				if len(found) > 0 {
					mu.Lock()
					signals = append(signals, found...)
					mu.Unlock()
				}
			}(symbol)
		}

		if end < len(symbols) {
			time.Sleep(300 * time.Millisecond)
		}
	}

	wg.Wait()
	return signals
}

func (b *Bot) checkSymbol(symbol, interval string) []types.Signal {
	lookback := b.config.Bot.Lookback
	candles, err := b.provider.GetCandles(symbol, interval, lookback+1, b.config.Bot.TargetTime)
	if err != nil {
		b.logger.Warn("failed to get candles", "symbol", symbol, "error", err)
		return nil
	}

	candles = closedCandles(candles, b.now())
	if len(candles) < 4 {
		// Not enough closed candles
		return nil
	}

	var signals []types.Signal
	for _, cfg := range b.watch {
		signal, ok := b.detect(candles, cfg)
		if !ok {
			continue
		}
		signal.Symbol = symbol
		signal.Interval = interval

		if tickerInfo, err := b.provider.GetTickerInfo(symbol); err != nil {
			b.logger.Warn("failed to get ticker info", "symbol", symbol, "error", err)
		} else {
			signal.Price = tickerInfo.LastPrice
			signal.Volume = tickerInfo.Volume24h
		}

		b.logger.Info("signal found", "symbol", symbol, "interval", interval, "pattern", signal.Pattern)
		signals = append(signals, signal)
	}
	return signals
}

// detect reports the latest formation of cfg's pattern when it ends on one of
// the newest candles.
func (b *Bot) detect(candles []types.Candle, cfg strategies.Config) (types.Signal, bool) {
	trades := strategies.CreateTrades(candles, cfg, nil, true)
	if len(trades) == 0 {
		return types.Signal{}, false
	}

	last := trades[len(trades)-1]
	fresh := cfg.Pattern.Double.Repetitions
	if cfg.Pattern.Kind == patterns.KindBullReversal || fresh < 1 {
		fresh = 1
	}
	if last.OpenIndex < len(candles)-fresh {
		return types.Signal{}, false
	}

	trend := "bullish"
	if last.Side == types.Short {
		trend = "bearish"
	}
	from := len(candles) - 4
	return types.Signal{
		Pattern:   last.Pattern,
		Trend:     trend,
		Price:     candles[len(candles)-1].Close,
		Neckline:  last.EntryPrice,
		Anchor:    last.StopLoss,
		Timestamp: time.UnixMilli(candles[last.OpenIndex].CloseTime).UTC(),
		Candles:   candles[from:],
	}, true
}

func (b *Bot) now() int64 {
	if b.config.Bot.TargetTime > 0 {
		return b.config.Bot.TargetTime
	}
	return time.Now().UnixMilli()
}

// closedCandles drops a trailing candle that has not closed yet at now.
func closedCandles(candles []types.Candle, now int64) []types.Candle {
	if len(candles) > 0 && candles[len(candles)-1].CloseTime >= now {
		return candles[:len(candles)-1]
	}
	return candles
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/letieu/pattern-backtest/internal/patterns"
	"github.com/letieu/pattern-backtest/internal/strategies"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Bybit    BybitConfig    `mapstructure:"bybit"`
	Bot      BotConfig      `mapstructure:"bot"`
	Backtest BacktestConfig `mapstructure:"backtest"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"botToken"`
	ChatID   string `mapstructure:"chatId"`
}

type BybitConfig struct {
	BaseURL   string            `mapstructure:"baseUrl"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	RateLimit int               `mapstructure:"rateLimit"`
	PageSize  int               `mapstructure:"pageSize"`
	Headers   map[string]string `mapstructure:"headers"`
}

type BotConfig struct {
	BatchSize        int           `mapstructure:"batchSize"`
	MaxConcurrency   int           `mapstructure:"maxConcurrency"`
	EnabledIntervals []string      `mapstructure:"enabledIntervals"`
	Frontend         string        `mapstructure:"frontend"`
	RunOnce          bool          `mapstructure:"runOnce"`
	TargetTime       int64         `mapstructure:"targetTime"`
	ScanInterval     time.Duration `mapstructure:"scanInterval"`
	Lookback         int           `mapstructure:"lookback"`
	Repetitions      int           `mapstructure:"repetitions"`
	SearchRange      int           `mapstructure:"searchRange"`
}

type BacktestConfig struct {
	Symbol         string   `mapstructure:"symbol"`
	Interval       string   `mapstructure:"interval"`
	DataFile       string   `mapstructure:"dataFile"`
	StartTime      string   `mapstructure:"startTime"`
	EndTime        string   `mapstructure:"endTime"`
	StartingEquity float64  `mapstructure:"startingEquity"`
	MarketType     string   `mapstructure:"marketType"`
	Patterns       []string `mapstructure:"patterns"`
	OutputDir      string   `mapstructure:"outputDir"`
	Top            int      `mapstructure:"top"`
}

type SweepConfig struct {
	TakeProfit         strategies.Range[float64] `mapstructure:"takeProfit"`
	StopLoss           strategies.Range[float64] `mapstructure:"stopLoss"`
	Risk               strategies.Range[float64] `mapstructure:"risk"`
	Repetitions        strategies.Range[int]     `mapstructure:"repetitions"`
	SearchRange        strategies.Range[int]     `mapstructure:"searchRange"`
	TrendLength        strategies.Range[int]     `mapstructure:"trendLength"`
	CounterTrendLength strategies.Range[int]     `mapstructure:"counterTrendLength"`
	ReversalStopLoss   strategies.Range[float64] `mapstructure:"reversalStopLoss"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configFile string) *Config {
	v := viper.New()

	// Set defaults for telegram config
	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.chatId", "")

	// Set defaults for bybit config
	v.SetDefault("bybit.baseUrl", "https://api.bybit.com")
	v.SetDefault("bybit.timeout", "10s")
	v.SetDefault("bybit.rateLimit", 20)
	v.SetDefault("bybit.pageSize", 1000)
	v.SetDefault("bybit.headers", map[string]interface{}{
		"Content-Type": "application/json",
	})

	// Set defaults for bot config
	v.SetDefault("bot.batchSize", 20)
	v.SetDefault("bot.maxConcurrency", 5)
	v.SetDefault("bot.enabledIntervals", []string{"1h", "4h", "1d"})
	v.SetDefault("bot.frontend", "console")
	v.SetDefault("bot.scanInterval", "1h")
	v.SetDefault("bot.lookback", 60)
	v.SetDefault("bot.repetitions", 3)
	v.SetDefault("bot.searchRange", 10)

	// Set defaults for backtest config
	v.SetDefault("backtest.symbol", "BTCUSDT")
	v.SetDefault("backtest.interval", "1h")
	v.SetDefault("backtest.startingEquity", 1000.0)
	v.SetDefault("backtest.marketType", "spot")
	v.SetDefault("backtest.patterns", []string{"w", "m", "bull-reversal"})
	v.SetDefault("backtest.outputDir", "./results")
	v.SetDefault("backtest.top", 10)

	// Set defaults for the parameter sweep
	setRange(v, "sweep.takeProfit", 1.0, 3.0, 0.5)
	setRange(v, "sweep.stopLoss", 1.0, 1.0, 0.1)
	setRange(v, "sweep.risk", 1.0, 1.0, 1.0)
	setRange(v, "sweep.repetitions", 2, 4, 1)
	setRange(v, "sweep.searchRange", 10, 30, 10)
	setRange(v, "sweep.trendLength", 3, 5, 1)
	setRange(v, "sweep.counterTrendLength", 1, 3, 1)
	setRange(v, "sweep.reversalStopLoss", 0.99, 0.99, 0.01)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// If config file is specified, load it and prioritize it
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			fmt.Printf("Failed to read config file %s: %v\n", configFile, err)
			os.Exit(1)
		}
	} else {
		// Try to find default config file
		v.SetConfigName("pattern-backtest")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// No config file found, continue with defaults and env vars
			fmt.Printf("No config file found, using defaults and environment variables\n")
		}
	}
	v.SetEnvPrefix("PB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		fmt.Printf("Failed to unmarshal config: %v\n", err)
		os.Exit(1)
	}

	return &cfg
}

func setRange[T int | float64](v *viper.Viper, key string, min, max, step T) {
	v.SetDefault(key+".min", min)
	v.SetDefault(key+".max", max)
	v.SetDefault(key+".step", step)
}

// Kinds parses backtest.patterns.
func (c *Config) Kinds() ([]patterns.Kind, error) {
	kinds := make([]patterns.Kind, 0, len(c.Backtest.Patterns))
	for _, name := range c.Backtest.Patterns {
		kind, err := patterns.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Grids builds the sweep grid of every pattern kind. BullReversal uses its own
// stop-loss range because its stop is a multiple of the peak price.
func (c *Config) Grids() (map[patterns.Kind]strategies.Grid, error) {
	market, err := strategies.ParseMarketType(c.Backtest.MarketType)
	if err != nil {
		return nil, err
	}

	double := strategies.Grid{
		TakeProfit:     c.Sweep.TakeProfit,
		StopLoss:       c.Sweep.StopLoss,
		SizeA:          c.Sweep.Repetitions,
		SizeB:          c.Sweep.SearchRange,
		RiskPercent:    c.Sweep.Risk,
		StartingEquity: c.Backtest.StartingEquity,
		MarketType:     market,
	}
	reversal := double
	reversal.StopLoss = c.Sweep.ReversalStopLoss
	reversal.SizeA = c.Sweep.TrendLength
	reversal.SizeB = c.Sweep.CounterTrendLength

	return map[patterns.Kind]strategies.Grid{
		patterns.KindW:            double,
		patterns.KindM:            double,
		patterns.KindBullReversal: reversal,
	}, nil
}

// BacktestWindow parses backtest.startTime/endTime (RFC3339). Empty values
// default to the last 30 days.
func (c *Config) BacktestWindow() (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if c.Backtest.EndTime != "" {
		t, err := time.Parse(time.RFC3339, c.Backtest.EndTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("failed to parse end time: %w", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -30)
	if c.Backtest.StartTime != "" {
		t, err := time.Parse(time.RFC3339, c.Backtest.StartTime)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("failed to parse start time: %w", err)
		}
		start = t
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time %s is not before end time %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return start, end, nil
}

// Logger builds the slog logger described by the log section.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

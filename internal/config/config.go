package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/eqt-market-sim/internal/state"
)

const defaultConfigPath = "config/default.toml"

type Config struct {
	Market    MarketConfig
	Simulator SimulatorConfig
	API       APIConfig
	Logging   LoggingConfig
	Chart     ChartConfig
	Alerting  AlertingConfig
}

type MarketConfig struct {
	InitialPrice    float64
	InitialBase     float64
	InitialQuote    float64
	Volatility      float64
	TrendBias       float64
	MeanReversion   float64
	ReversionTarget float64
	HistoryCapacity int
	Prefill         bool
	Seed            int64 // 0 seeds from the clock
	BaseSymbol      string
	QuoteSymbol     string
}

type SimulatorConfig struct {
	TickIntervalSecs int
}

type APIConfig struct {
	BindAddress        string
	CORSOrigins        []string
	TradeRatePerSecond int
	StreamIntervalSecs int
}

type LoggingConfig struct {
	Level string
	File  string
}

type ChartConfig struct {
	StreamURL          string
	ReconnectDelaySecs int
}

type AlertingConfig struct {
	Enabled           bool
	SlackWebhookURL   string
	DiscordWebhookURL string
	MoveThresholdPct  float64 // absolute 24h change that triggers an alert
	CooldownSecs      int
}

// tomlFile mirrors config/default.toml. Pointer fields distinguish absent keys.
type tomlFile struct {
	Market struct {
		InitialPrice    *float64 `toml:"initial_price"`
		InitialBase     *float64 `toml:"initial_base"`
		InitialQuote    *float64 `toml:"initial_quote"`
		Volatility      *float64 `toml:"volatility"`
		TrendBias       *float64 `toml:"trend_bias"`
		MeanReversion   *float64 `toml:"mean_reversion"`
		ReversionTarget *float64 `toml:"reversion_target"`
		HistoryCapacity *int     `toml:"history_capacity"`
		Prefill         *bool    `toml:"prefill"`
		Seed            *int64   `toml:"seed"`
		BaseSymbol      *string  `toml:"base_symbol"`
		QuoteSymbol     *string  `toml:"quote_symbol"`
	} `toml:"market"`
	Simulator struct {
		TickIntervalSecs *int `toml:"tick_interval_secs"`
	} `toml:"simulator"`
	API struct {
		BindAddress        *string  `toml:"bind_address"`
		CORSOrigins        []string `toml:"cors_origins"`
		TradeRatePerSecond *int     `toml:"trade_rate_per_second"`
		StreamIntervalSecs *int     `toml:"stream_interval_secs"`
	} `toml:"api"`
	Logging struct {
		Level *string `toml:"level"`
		File  *string `toml:"file"`
	} `toml:"logging"`
	Chart struct {
		StreamURL          *string `toml:"stream_url"`
		ReconnectDelaySecs *int    `toml:"reconnect_delay_secs"`
	} `toml:"chart"`
	Alerting struct {
		Enabled           *bool    `toml:"enabled"`
		SlackWebhookURL   *string  `toml:"slack_webhook_url"`
		DiscordWebhookURL *string  `toml:"discord_webhook_url"`
		MoveThresholdPct  *float64 `toml:"move_threshold_pct"`
		CooldownSecs      *int     `toml:"cooldown_secs"`
	} `toml:"alerting"`
}

// Load reads .env (if present), environment variables and the TOML file named
// by EQT_CONFIG_PATH (default config/default.toml). File values win over env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return LoadFrom(getEnv("EQT_CONFIG_PATH", defaultConfigPath))
}

func LoadFrom(tomlPath string) (*Config, error) {
	cfg := &Config{
		Market: MarketConfig{
			InitialPrice:    getEnvFloat("EQT__MARKET__INITIAL_PRICE", 700),
			InitialBase:     getEnvFloat("EQT__MARKET__INITIAL_BASE", 18),
			InitialQuote:    getEnvFloat("EQT__MARKET__INITIAL_QUOTE", 0),
			Volatility:      getEnvFloat("EQT__MARKET__VOLATILITY", 0.02),
			TrendBias:       getEnvFloat("EQT__MARKET__TREND_BIAS", 0.001),
			MeanReversion:   getEnvFloat("EQT__MARKET__MEAN_REVERSION", 0.1),
			ReversionTarget: getEnvFloat("EQT__MARKET__REVERSION_TARGET", 700),
			HistoryCapacity: getEnvInt("EQT__MARKET__HISTORY_CAPACITY", state.DefaultHistoryCapacity),
			Prefill:         getEnvBool("EQT__MARKET__PREFILL", true),
			Seed:            int64(getEnvInt("EQT__MARKET__SEED", 0)),
			BaseSymbol:      getEnv("EQT__MARKET__BASE_SYMBOL", "CELO"),
			QuoteSymbol:     getEnv("EQT__MARKET__QUOTE_SYMBOL", "EQT"),
		},
		Simulator: SimulatorConfig{
			TickIntervalSecs: getEnvInt("EQT__SIMULATOR__TICK_INTERVAL_SECS", 5),
		},
		API: APIConfig{
			BindAddress:        getEnv("EQT__API__BIND_ADDRESS", "0.0.0.0:5000"),
			CORSOrigins:        getEnvSlice("EQT__API__CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			TradeRatePerSecond: getEnvInt("EQT__API__TRADE_RATE_PER_SECOND", 5),
			StreamIntervalSecs: getEnvInt("EQT__API__STREAM_INTERVAL_SECS", 5),
		},
		Logging: LoggingConfig{
			Level: getEnv("EQT__LOGGING__LEVEL", "info"),
			File:  getEnv("EQT__LOGGING__FILE", ""),
		},
		Chart: ChartConfig{
			StreamURL:          getEnv("EQT__CHART__STREAM_URL", "ws://localhost:5000/api/stream"),
			ReconnectDelaySecs: getEnvInt("EQT__CHART__RECONNECT_DELAY_SECS", 5),
		},
		Alerting: AlertingConfig{
			Enabled:           getEnvBool("EQT__ALERTING__ENABLED", false),
			SlackWebhookURL:   getEnv("EQT__ALERTING__SLACK_WEBHOOK_URL", ""),
			DiscordWebhookURL: getEnv("EQT__ALERTING__DISCORD_WEBHOOK_URL", ""),
			MoveThresholdPct:  getEnvFloat("EQT__ALERTING__MOVE_THRESHOLD_PCT", 5),
			CooldownSecs:      getEnvInt("EQT__ALERTING__COOLDOWN_SECS", 300),
		},
	}

	if _, err := os.Stat(tomlPath); err == nil {
		data, err := os.ReadFile(tomlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var file tomlFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		file.apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (f *tomlFile) apply(cfg *Config) {
	m := &cfg.Market
	setIf(&m.InitialPrice, f.Market.InitialPrice)
	setIf(&m.InitialBase, f.Market.InitialBase)
	setIf(&m.InitialQuote, f.Market.InitialQuote)
	setIf(&m.Volatility, f.Market.Volatility)
	setIf(&m.TrendBias, f.Market.TrendBias)
	setIf(&m.MeanReversion, f.Market.MeanReversion)
	setIf(&m.ReversionTarget, f.Market.ReversionTarget)
	setIf(&m.HistoryCapacity, f.Market.HistoryCapacity)
	setIf(&m.Prefill, f.Market.Prefill)
	setIf(&m.Seed, f.Market.Seed)
	setIf(&m.BaseSymbol, f.Market.BaseSymbol)
	setIf(&m.QuoteSymbol, f.Market.QuoteSymbol)

	setIf(&cfg.Simulator.TickIntervalSecs, f.Simulator.TickIntervalSecs)

	setIf(&cfg.API.BindAddress, f.API.BindAddress)
	if f.API.CORSOrigins != nil {
		cfg.API.CORSOrigins = f.API.CORSOrigins
	}
	setIf(&cfg.API.TradeRatePerSecond, f.API.TradeRatePerSecond)
	setIf(&cfg.API.StreamIntervalSecs, f.API.StreamIntervalSecs)

	setIf(&cfg.Logging.Level, f.Logging.Level)
	setIf(&cfg.Logging.File, f.Logging.File)

	setIf(&cfg.Chart.StreamURL, f.Chart.StreamURL)
	setIf(&cfg.Chart.ReconnectDelaySecs, f.Chart.ReconnectDelaySecs)

	a := &cfg.Alerting
	setIf(&a.Enabled, f.Alerting.Enabled)
	setIf(&a.SlackWebhookURL, f.Alerting.SlackWebhookURL)
	setIf(&a.DiscordWebhookURL, f.Alerting.DiscordWebhookURL)
	setIf(&a.MoveThresholdPct, f.Alerting.MoveThresholdPct)
	setIf(&a.CooldownSecs, f.Alerting.CooldownSecs)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func (c *Config) Validate() error {
	m := c.Market
	for name, v := range map[string]float64{
		"initial_price":    m.InitialPrice,
		"initial_base":     m.InitialBase,
		"initial_quote":    m.InitialQuote,
		"volatility":       m.Volatility,
		"trend_bias":       m.TrendBias,
		"mean_reversion":   m.MeanReversion,
		"reversion_target": m.ReversionTarget,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("market.%s must be finite, got %v", name, v)
		}
	}
	if c.Market.InitialPrice <= 0 {
		return fmt.Errorf("market.initial_price must be positive")
	}
	if c.Market.InitialBase < 0 || c.Market.InitialQuote < 0 {
		return fmt.Errorf("market initial balances must not be negative")
	}
	if c.Market.Volatility < 0 {
		return fmt.Errorf("market.volatility must not be negative")
	}
	if c.Market.ReversionTarget <= 0 {
		return fmt.Errorf("market.reversion_target must be positive")
	}
	if c.Market.HistoryCapacity <= 0 {
		return fmt.Errorf("market.history_capacity must be positive")
	}
	if c.Simulator.TickIntervalSecs <= 0 {
		return fmt.Errorf("simulator.tick_interval_secs must be positive")
	}
	if c.API.TradeRatePerSecond <= 0 {
		return fmt.Errorf("api.trade_rate_per_second must be positive")
	}
	if c.API.StreamIntervalSecs <= 0 {
		return fmt.Errorf("api.stream_interval_secs must be positive")
	}
	if !strings.HasPrefix(c.Chart.StreamURL, "ws://") && !strings.HasPrefix(c.Chart.StreamURL, "wss://") {
		return fmt.Errorf("invalid chart stream URL: %s", c.Chart.StreamURL)
	}
	if c.Alerting.MoveThresholdPct <= 0 {
		return fmt.Errorf("alerting.move_threshold_pct must be positive")
	}
	if c.Alerting.CooldownSecs < 0 {
		return fmt.Errorf("alerting.cooldown_secs must not be negative")
	}
	return nil
}

// State converts the market section into the engine's construction parameters.
func (m MarketConfig) State() state.MarketConfig {
	return state.MarketConfig{
		InitialPrice: m.InitialPrice,
		InitialBase:  m.InitialBase,
		InitialQuote: m.InitialQuote,
		Params: state.PriceParams{
			Volatility:      m.Volatility,
			TrendBias:       m.TrendBias,
			MeanReversion:   m.MeanReversion,
			ReversionTarget: m.ReversionTarget,
		},
		HistoryCapacity: m.HistoryCapacity,
		Prefill:         m.Prefill,
		Symbols:         state.Symbols{Base: m.BaseSymbol, Quote: m.QuoteSymbol},
	}
}

func (s SimulatorConfig) TickInterval() time.Duration {
	return time.Duration(s.TickIntervalSecs) * time.Second
}

func (a APIConfig) StreamInterval() time.Duration {
	return time.Duration(a.StreamIntervalSecs) * time.Second
}

func (c ChartConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelaySecs) * time.Second
}

func (a AlertingConfig) Cooldown() time.Duration {
	return time.Duration(a.CooldownSecs) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

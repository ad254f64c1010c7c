package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 700.0, cfg.Market.InitialPrice)
	assert.Equal(t, 18.0, cfg.Market.InitialBase)
	assert.Equal(t, 100, cfg.Market.HistoryCapacity)
	assert.True(t, cfg.Market.Prefill)
	assert.Equal(t, 5*time.Second, cfg.Simulator.TickInterval())
	assert.Equal(t, "0.0.0.0:5000", cfg.API.BindAddress)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Alerting.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Alerting.Cooldown())

	sc := cfg.Market.State()
	assert.Equal(t, 0.02, sc.Params.Volatility)
	assert.Equal(t, 700.0, sc.Params.ReversionTarget)
	assert.Equal(t, "EQT", sc.Symbols.Quote)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("EQT__MARKET__INITIAL_PRICE", "123.5")
	t.Setenv("EQT__SIMULATOR__TICK_INTERVAL_SECS", "1")
	t.Setenv("EQT__API__CORS_ORIGINS", "http://a,http://b")
	t.Setenv("EQT__MARKET__PREFILL", "false")
	t.Setenv("EQT__MARKET__HISTORY_CAPACITY", "not-a-number")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, 123.5, cfg.Market.InitialPrice)
	assert.Equal(t, time.Second, cfg.Simulator.TickInterval())
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.API.CORSOrigins)
	assert.False(t, cfg.Market.Prefill)
	assert.Equal(t, 100, cfg.Market.HistoryCapacity, "unparsable values fall back to the default")
}

func TestLoadFrom_TOMLOverridesEnv(t *testing.T) {
	t.Setenv("EQT__MARKET__INITIAL_PRICE", "123.5")
	path := writeTOML(t, `
[market]
initial_price = 42.0
seed = 99
quote_symbol = "TOK"

[api]
cors_origins = ["https://example.com"]
trade_rate_per_second = 2

[logging]
level = "debug"

[alerting]
enabled = true
slack_webhook_url = "https://hooks.slack.test/x"
move_threshold_pct = 2.5
`)

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, 42.0, cfg.Market.InitialPrice)
	assert.Equal(t, int64(99), cfg.Market.Seed)
	assert.Equal(t, "TOK", cfg.Market.QuoteSymbol)
	assert.Equal(t, "CELO", cfg.Market.BaseSymbol)
	assert.Equal(t, []string{"https://example.com"}, cfg.API.CORSOrigins)
	assert.Equal(t, 2, cfg.API.TradeRatePerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Alerting.Enabled)
	assert.Equal(t, "https://hooks.slack.test/x", cfg.Alerting.SlackWebhookURL)
	assert.Equal(t, 2.5, cfg.Alerting.MoveThresholdPct)
}

func TestLoadFrom_Invalid(t *testing.T) {
	t.Run("bad toml", func(t *testing.T) {
		_, err := LoadFrom(writeTOML(t, "[market\ninitial_price = "))
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("non-positive price", func(t *testing.T) {
		_, err := LoadFrom(writeTOML(t, "[market]\ninitial_price = -1.0\n"))
		assert.ErrorContains(t, err, "initial_price")
	})

	t.Run("zero tick interval", func(t *testing.T) {
		_, err := LoadFrom(writeTOML(t, "[simulator]\ntick_interval_secs = 0\n"))
		assert.ErrorContains(t, err, "tick_interval_secs")
	})

	t.Run("bad stream url", func(t *testing.T) {
		_, err := LoadFrom(writeTOML(t, "[chart]\nstream_url = \"http://localhost\"\n"))
		assert.ErrorContains(t, err, "stream URL")
	})

	t.Run("infinite trend bias", func(t *testing.T) {
		t.Setenv("EQT__MARKET__TREND_BIAS", "Inf")
		_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorContains(t, err, "market.trend_bias must be finite")
	})

	t.Run("nan volatility", func(t *testing.T) {
		t.Setenv("EQT__MARKET__VOLATILITY", "NaN")
		_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorContains(t, err, "market.volatility must be finite")
	})

	t.Run("infinite reversion target", func(t *testing.T) {
		t.Setenv("EQT__MARKET__REVERSION_TARGET", "+Inf")
		_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorContains(t, err, "market.reversion_target must be finite")
	})

	t.Run("nan initial price", func(t *testing.T) {
		t.Setenv("EQT__MARKET__INITIAL_PRICE", "NaN")
		_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.toml"))
		assert.ErrorContains(t, err, "market.initial_price must be finite")
	})

	t.Run("zero alert threshold", func(t *testing.T) {
		_, err := LoadFrom(writeTOML(t, "[alerting]\nmove_threshold_pct = 0.0\n"))
		assert.ErrorContains(t, err, "move_threshold_pct")
	})
}

func TestLoadFrom_ShippedDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join("..", "..", "config", "default.toml"))
	require.NoError(t, err)
	assert.Equal(t, 700.0, cfg.Market.InitialPrice)
	assert.Equal(t, "ws://localhost:5000/api/stream", cfg.Chart.StreamURL)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"PolicyScan/internal/analysis"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "book", cfg.Source.Kind)
	assert.Equal(t, "http://localhost:8080", cfg.Source.BaseURL)
	assert.Equal(t, 30, cfg.Source.TimeoutSecs)
	assert.Equal(t, "data/policies.yaml", cfg.Book.Path)
	assert.Equal(t, "0 0 8 * * 1", cfg.Schedule.ScanCron)
	assert.Equal(t, "0 0 9 * * *", cfg.Schedule.ExpiryCron)
	assert.Equal(t, "data/policyscan.db", cfg.Database.SQLitePath)
	assert.Equal(t, 8090, cfg.Server.Port)
	assert.InDelta(t, 10.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 20, cfg.Server.RateBurst)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrent)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, analysis.DefaultThresholds(), cfg.Analysis)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  kind: rest
  base_url: https://insurance.example.com
  token: secret
analysis:
  health_min_coverage: 250000
  upcoming_window_days: 45
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.Source.Kind)
	assert.Equal(t, "https://insurance.example.com", cfg.Source.BaseURL)
	assert.Equal(t, "secret", cfg.Source.Token)
	assert.InDelta(t, 250000, cfg.Analysis.HealthMinCoverage, 0.001)
	assert.Equal(t, 45, cfg.Analysis.UpcomingWindowDays)
	// Defaults still apply for unset values
	assert.InDelta(t, 500000, cfg.Analysis.LifeMinCoverage, 0.001)
	assert.Equal(t, 25, cfg.Analysis.CoverageWeight)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
source:
  kind: xlsx
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("POLICYSCAN_SOURCE_KIND", "rest")
	t.Setenv("POLICYSCAN_LOG_LEVEL", "warn")
	t.Setenv("POLICYSCAN_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rest", cfg.Source.Kind)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud", Format: "json"}))
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Source.Kind = "book"
	cfg.Source.BaseURL = "http://localhost:8080"
	cfg.Source.TimeoutSecs = 30
	cfg.Book.Path = "data/policies.yaml"
	cfg.Schedule.ScanCron = "0 0 8 * * 1"
	cfg.Schedule.ExpiryCron = "0 0 9 * * *"
	cfg.Server.Port = 8090
	cfg.Server.RateLimit = 10
	cfg.Server.RateBurst = 20
	cfg.Batch.MaxConcurrent = 4
	cfg.Analysis = analysis.DefaultThresholds()
	return cfg
}

func TestValidateScan(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("scan"))

	cfg.Source.Kind = "xlsx"
	err := cfg.Validate("scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.path is required for xlsx source")

	cfg.Source.Kind = "carrier-pigeon"
	err = cfg.Validate("scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.kind must be one of rest, book, xlsx")
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	cfg.Server.RateLimit = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "server.rate_limit must be > 0")
}

func TestValidateBot_MissingTelegram(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("bot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram.bot_token is required")
	assert.Contains(t, err.Error(), "telegram.chat_id is required")

	cfg.Telegram.BotToken = "123:abc"
	cfg.Telegram.ChatID = "42"
	assert.NoError(t, cfg.Validate("bot"))
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateIncludesThresholds(t *testing.T) {
	cfg := validDefaults()
	cfg.Analysis.UpcomingWindowDays = 0
	cfg.Batch.MaxConcurrent = 0

	err := cfg.Validate("scan")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upcoming_window_days must be >= 1")
	assert.Contains(t, err.Error(), "batch.max_concurrent must be between 1 and 64")
}

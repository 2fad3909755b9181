package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"PolicyScan/internal/analysis"
)

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig      `yaml:"telegram" mapstructure:"telegram"`
	Source   SourceConfig        `yaml:"source" mapstructure:"source"`
	Book     BookConfig          `yaml:"book" mapstructure:"book"`
	Schedule ScheduleConfig      `yaml:"schedule" mapstructure:"schedule"`
	Database DatabaseConfig      `yaml:"database" mapstructure:"database"`
	Server   ServerConfig        `yaml:"server" mapstructure:"server"`
	Analysis analysis.Thresholds `yaml:"analysis" mapstructure:"analysis"`
	Batch    BatchConfig         `yaml:"batch" mapstructure:"batch"`
	Log      LogConfig           `yaml:"log" mapstructure:"log"`
	Proxy    string              `yaml:"proxy" mapstructure:"proxy"`
}

// TelegramConfig holds bot credentials for scan reports and alerts.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" mapstructure:"bot_token"`
	ChatID   string `yaml:"chat_id" mapstructure:"chat_id"`
}

// SourceConfig selects where policies are read from.
type SourceConfig struct {
	Kind        string `yaml:"kind" mapstructure:"kind"` // rest, book or xlsx
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Token       string `yaml:"token" mapstructure:"token"`
	Path        string `yaml:"path" mapstructure:"path"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// BookConfig configures the local policy book.
type BookConfig struct {
	Path  string `yaml:"path" mapstructure:"path"`
	Owner string `yaml:"owner" mapstructure:"owner"`
}

// ScheduleConfig holds cron expressions (with seconds).
type ScheduleConfig struct {
	ScanCron   string `yaml:"scan_cron" mapstructure:"scan_cron"`
	ExpiryCron string `yaml:"expiry_cron" mapstructure:"expiry_cron"`
	RunOnStart bool   `yaml:"run_on_start" mapstructure:"run_on_start"`
}

// DatabaseConfig configures scan history storage.
type DatabaseConfig struct {
	SQLitePath string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// BatchConfig configures concurrent portfolio scoring.
type BatchConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")

	v.SetEnvPrefix("POLICYSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.kind", "book")
	v.SetDefault("source.base_url", "http://localhost:8080")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("book.path", "data/policies.yaml")
	v.SetDefault("schedule.scan_cron", "0 0 8 * * 1")
	v.SetDefault("schedule.expiry_cron", "0 0 9 * * *")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("database.sqlite_path", "data/policyscan.db")
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("batch.max_concurrent", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	th := analysis.DefaultThresholds()
	v.SetDefault("analysis.health_min_coverage", th.HealthMinCoverage)
	v.SetDefault("analysis.life_min_coverage", th.LifeMinCoverage)
	v.SetDefault("analysis.coverage_weight", th.CoverageWeight)
	v.SetDefault("analysis.presence_weight", th.PresenceWeight)
	v.SetDefault("analysis.expired_penalty", th.ExpiredPenalty)
	v.SetDefault("analysis.upcoming_window_days", th.UpcomingWindowDays)
	v.SetDefault("analysis.diversity_min_categories", th.DiversityMinCategories)
	v.SetDefault("analysis.diversity_bonus", th.DiversityBonus)
	v.SetDefault("analysis.premium_bonus", th.PremiumBonus)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by the given mode: scan, serve or bot.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "scan":
		errs = append(errs, c.validateSource()...)
	case "serve":
		errs = append(errs, c.validateSource()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Server.RateLimit <= 0 {
			errs = append(errs, "server.rate_limit must be > 0")
		}
		if c.Server.RateBurst < 1 {
			errs = append(errs, "server.rate_burst must be >= 1")
		}
	case "bot":
		errs = append(errs, c.validateSource()...)
		if c.Telegram.BotToken == "" {
			errs = append(errs, "telegram.bot_token is required")
		}
		if c.Telegram.ChatID == "" {
			errs = append(errs, "telegram.chat_id is required")
		}
		if c.Schedule.ScanCron == "" {
			errs = append(errs, "schedule.scan_cron is required")
		}
		if c.Schedule.ExpiryCron == "" {
			errs = append(errs, "schedule.expiry_cron is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.MaxConcurrent < 1 || c.Batch.MaxConcurrent > 64 {
		errs = append(errs, "batch.max_concurrent must be between 1 and 64")
	}
	if err := analysis.ValidateThresholds(c.Analysis); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed for %s: %s", mode, strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateSource() []string {
	var errs []string
	switch c.Source.Kind {
	case "rest":
		if c.Source.BaseURL == "" {
			errs = append(errs, "source.base_url is required for rest source")
		}
		if c.Source.TimeoutSecs <= 0 {
			errs = append(errs, "source.timeout_secs must be > 0")
		}
	case "book":
		if c.Book.Path == "" {
			errs = append(errs, "book.path is required for book source")
		}
	case "xlsx":
		if c.Source.Path == "" {
			errs = append(errs, "source.path is required for xlsx source")
		}
	default:
		errs = append(errs, fmt.Sprintf("source.kind must be one of rest, book, xlsx (got %q)", c.Source.Kind))
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// Package config loads the robot's settings from the environment (optionally
// seeded from a .env file) and its watchlist from YAML.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ibrobot/internal/indicator"
	"ibrobot/internal/portfolio"
	"ibrobot/internal/strategy"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Trading
	WatchlistPath   string
	Account         string // overrides the watchlist account when set
	DryRun          bool
	ExtendedHours   bool
	PollInterval    time.Duration
	Workers         int
	WarmupBars      int
	RSIBuy          float64
	RSISell         float64
	SkipProfitCheck bool
	SlippageBps     float64
	QuoteMaxAge     time.Duration

	// Risk
	MaxOpenPositions int
	MaxDailyLoss     float64

	// Infrastructure
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	SQLitePath       string
	MetricsAddr      string
	SnapshotInterval time.Duration
	SnapshotKey      string

	// GatewayFromRedis feeds the WebSocket hub from the Redis signal
	// channels instead of directly from the robot loop.
	GatewayFromRedis bool

	// Alerts
	WebhookURL     string
	TelegramToken  string
	TelegramChatID string

	LogLevel string
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Printf("[config] loaded %s", path)
	return nil
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	p := &parser{}
	cfg := &Config{
		WatchlistPath:   getEnv("ROBOT_WATCHLIST", "watchlist.yaml"),
		Account:         getEnv("IB_ACCOUNT", ""),
		DryRun:          p.bool("ROBOT_DRY_RUN", true),
		ExtendedHours:   p.bool("ROBOT_EXTENDED_HOURS", false),
		PollInterval:    p.seconds("ROBOT_POLL_INTERVAL_SEC", 60),
		Workers:         p.int("ROBOT_WORKERS", 1),
		WarmupBars:      p.int("ROBOT_WARMUP_BARS", 52),
		RSIBuy:          p.float("RSI_BUY_THRESHOLD", 30),
		RSISell:         p.float("RSI_SELL_THRESHOLD", 60),
		SkipProfitCheck: p.bool("ROBOT_SKIP_PROFIT_CHECK", false),
		SlippageBps:     p.float("PAPER_SLIPPAGE_BPS", 0),
		QuoteMaxAge:     p.seconds("QUOTE_MAX_AGE_SEC", 120),

		MaxOpenPositions: p.int("RISK_MAX_OPEN_POSITIONS", 10),
		MaxDailyLoss:     p.float("RISK_MAX_DAILY_LOSS", 0),

		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          p.int("REDIS_DB", 0),
		SQLitePath:       getEnv("SQLITE_PATH", "data/robot.db"),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),
		SnapshotInterval: p.seconds("SNAPSHOT_INTERVAL_SEC", 300),
		SnapshotKey:      getEnv("SNAPSHOT_KEY", "robot:state:snapshot"),
		GatewayFromRedis: p.bool("GATEWAY_FROM_REDIS", true),

		WebhookURL:     getEnv("SIGNAL_WEBHOOK_URL", ""),
		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("ROBOT_POLL_INTERVAL_SEC must be positive"))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("ROBOT_WORKERS must be at least 1, got %d", c.Workers))
	}
	if err := c.StrategyConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	ind := c.IndicatorConfig()
	if err := ind.Validate(); err != nil {
		errs = append(errs, err)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		errs = append(errs, fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together"))
	}
	return errors.Join(errs...)
}

// StrategyConfig returns the decision thresholds.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		RSIBuyThreshold:  c.RSIBuy,
		RSISellThreshold: c.RSISell,
		SkipProfitCheck:  c.SkipProfitCheck,
	}
}

// IndicatorConfig returns the indicator periods with the configured warm-up.
func (c *Config) IndicatorConfig() indicator.Config {
	ic := indicator.DefaultConfig()
	ic.MinHistory = c.WarmupBars
	return ic
}

// RiskLimits returns the risk manager limits.
func (c *Config) RiskLimits() portfolio.RiskLimits {
	l := portfolio.DefaultRiskLimits()
	l.MaxOpenPositions = c.MaxOpenPositions
	l.MaxDailyLoss = c.MaxDailyLoss
	return l
}

// parser collects conversion errors so Load reports them all at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, v))
		return fallback
	}
	return f
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return fallback
	}
	return b
}

func (p *parser) seconds(key string, fallback int) time.Duration {
	return time.Duration(p.int(key, fallback)) * time.Second
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

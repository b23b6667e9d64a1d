// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Shops         ShopsConfig         `yaml:"shops"`
	Governor      GovernorConfig      `yaml:"governor"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	Alerts        AlertsConfig        `yaml:"alerts"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings for the ops surface
// (health checks, metrics, admin trigger endpoint).
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// ShopsConfig locates the shop config directory, one YAML file per shop
// (selectors, anti-bot policy, direct-hit URL pattern).
type ShopsConfig struct {
	Dir string `yaml:"dir"`
}

// GovernorConfig defines the default per-shop anti-bot governor settings,
// overridable per shop via ShopConfig.AntiBot.
type GovernorConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency"`
	RequestDelay   time.Duration `yaml:"request_delay"`
	JitterFraction float64       `yaml:"jitter_fraction"` // uniform +/- fraction applied to RequestDelay
	RatePerSecond  float64       `yaml:"rate_per_second"`
	RateBurst      int           `yaml:"rate_burst"`
	ProxyEnabled   bool          `yaml:"proxy_enabled"`
	ProxyURL       string        `yaml:"proxy_url"`
}

// ScheduleConfig defines the cron base tick. Tier multipliers are not
// configurable here: a shop's FetchingTier decides how many base ticks it
// waits between cycles through the fixed values in domain.TierMultiplier.
type ScheduleConfig struct {
	BasePeriod    time.Duration `yaml:"base_period"`
	StaggerOffset time.Duration `yaml:"stagger_offset"`
	CycleDeadline time.Duration `yaml:"cycle_deadline"` // hard wall-clock cap per cycle
	LockTTL       time.Duration `yaml:"lock_ttl"`        // scheduler advisory-lock lease length
}

// NotificationsConfig defines notification channel targets.
type NotificationsConfig struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// DiscordConfig defines Discord webhook settings.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// TelegramConfig defines Telegram bot settings.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
}

// AlertsConfig defines notification hysteresis behavior.
type AlertsConfig struct {
	PriceDropOnly bool `yaml:"price_drop_only"` // parsed but not read by any component; restock triggers always apply
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the YAML content.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applyShopsDefaults(&cfg.Shops)
	applyGovernorDefaults(&cfg.Governor)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applyShopsDefaults(s *ShopsConfig) {
	if s.Dir == "" {
		s.Dir = "./shops"
	}
}

func applyGovernorDefaults(g *GovernorConfig) {
	if g.MaxConcurrency == 0 {
		g.MaxConcurrency = 2
	}
	if g.RequestDelay == 0 {
		g.RequestDelay = 3 * time.Second
	}
	if g.JitterFraction == 0 {
		g.JitterFraction = 0.3
	}
	if g.RatePerSecond == 0 {
		g.RatePerSecond = 1.0
	}
	if g.RateBurst == 0 {
		g.RateBurst = 2
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.BasePeriod == 0 {
		s.BasePeriod = 15 * time.Minute
	}
	if s.StaggerOffset == 0 {
		s.StaggerOffset = 2 * time.Second
	}
	if s.CycleDeadline == 0 {
		s.CycleDeadline = 10 * time.Minute
	}
	if s.LockTTL == 0 {
		s.LockTTL = 5 * time.Minute
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}
	if cfg.Shops.Dir == "" {
		errs = append(errs, fmt.Errorf("shops.dir is required"))
	}

	if cfg.Notifications.Discord.Enabled && cfg.Notifications.Discord.WebhookURL == "" {
		errs = append(errs, fmt.Errorf("notifications.discord.webhook_url is required when discord is enabled"))
	}
	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("notifications.telegram.bot_token is required when telegram is enabled"))
	}

	return errors.Join(errs...)
}

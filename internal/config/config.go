// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | noop
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
	Language string  `yaml:"language"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port        int           `yaml:"port"`
	AdminSecret string        `yaml:"admin_secret"` // HMAC secret for admin bearer tokens
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // conversation state lifetime
}

// PlanConfig describes one purchasable plan. Prices are keyed by currency, then by duration in days.
type PlanConfig struct {
	Devices int                    `yaml:"devices"`
	Prices  map[string]map[int]int `yaml:"prices"`
}

// ForceSubscriptionConfig gates the subscription menu behind membership in a channel.
// ChannelID wins over ChannelUsername; the username also builds the subscribe link.
type ForceSubscriptionConfig struct {
	Enabled         bool   `yaml:"enabled"`
	ChannelID       int64  `yaml:"channel_id"`
	ChannelUsername string `yaml:"channel_username"` // without the leading @
}

type ShopConfig struct {
	Currency          string                  `yaml:"currency"`
	Durations         []int                   `yaml:"durations"`
	Plans             []PlanConfig            `yaml:"plans"`
	PaymentMethods    []string                `yaml:"payment_methods"` // e.g. ["stars"]
	ForceSubscription ForceSubscriptionConfig `yaml:"force_subscription"`
}

// ThresholdConfig is one warning point before expiry.
type ThresholdConfig struct {
	Hours int    `yaml:"hours"`
	Label string `yaml:"label"`
}

type NotificationsConfig struct {
	Enabled              bool              `yaml:"enabled"`
	CheckIntervalMinutes int               `yaml:"check_interval_minutes"`
	Thresholds           []ThresholdConfig `yaml:"thresholds"`
}

// CheckInterval returns the scan period as a duration.
func (n NotificationsConfig) CheckInterval() time.Duration {
	return time.Duration(n.CheckIntervalMinutes) * time.Minute
}

type SchedulerConfig struct {
	LeaseKey string        `yaml:"lease_key"` // empty disables the cross-process lease
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

type Config struct {
	Bot           BotConfig           `yaml:"bot"`
	Log           LogConfig           `yaml:"log"`
	HTTP          HTTPConfig          `yaml:"http"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Shop          ShopConfig          `yaml:"shop"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultThresholds mirrors the 2 days / 1 day / 1 hour warnings.
func DefaultThresholds() []ThresholdConfig {
	return []ThresholdConfig{
		{Hours: 48, Label: "2 days"},
		{Hours: 24, Label: "1 day"},
		{Hours: 1, Label: "1 hour"},
	}
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(b)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Language == "" {
		cfg.Bot.Language = "en"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.TokenTTL <= 0 {
		cfg.HTTP.TokenTTL = 30 * time.Minute
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.Shop.Currency == "" {
		cfg.Shop.Currency = "XTR"
	}
	if len(cfg.Shop.PaymentMethods) == 0 {
		cfg.Shop.PaymentMethods = []string{"stars"}
	}
	if len(cfg.Shop.Durations) == 0 {
		cfg.Shop.Durations = []int{30, 90, 180, 365}
	}
	sort.Ints(cfg.Shop.Durations)
	cfg.Shop.ForceSubscription.ChannelUsername = strings.TrimPrefix(strings.TrimSpace(cfg.Shop.ForceSubscription.ChannelUsername), "@")

	if cfg.Notifications.CheckIntervalMinutes <= 0 {
		cfg.Notifications.CheckIntervalMinutes = 30
	}
	if len(cfg.Notifications.Thresholds) == 0 {
		cfg.Notifications.Thresholds = DefaultThresholds()
	}
	if cfg.Scheduler.LeaseTTL <= 0 {
		cfg.Scheduler.LeaseTTL = cfg.Notifications.CheckInterval()
	}
}

func validate(cfg *Config) error {
	switch cfg.Bot.Mode {
	case "polling":
		if cfg.Bot.Token == "" {
			return errors.New("bot.token is required")
		}
	case "noop":
	default:
		return fmt.Errorf("bot.mode: unsupported %q", cfg.Bot.Mode)
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	seen := map[int]bool{}
	for _, p := range cfg.Shop.Plans {
		if p.Devices <= 0 {
			return fmt.Errorf("shop.plans: devices must be positive, got %d", p.Devices)
		}
		if seen[p.Devices] {
			return fmt.Errorf("shop.plans: duplicate plan for %d devices", p.Devices)
		}
		seen[p.Devices] = true
	}
	if fs := cfg.Shop.ForceSubscription; fs.Enabled && fs.ChannelID == 0 && fs.ChannelUsername == "" {
		return errors.New("shop.force_subscription: channel_id or channel_username is required when enabled")
	}
	for _, t := range cfg.Notifications.Thresholds {
		if t.Hours <= 0 {
			return fmt.Errorf("notifications.thresholds: hours must be positive, got %d", t.Hours)
		}
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 15 * time.Minute
	}
	return d
}

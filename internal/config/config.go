// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"` // webhook body cap
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AuthConfig struct {
	JWTSecret string `yaml:"-"`
	Issuer    string `yaml:"issuer"`
}

type AdminConfig struct {
	APIKey string `yaml:"-"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"-"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // pricing cache TTL
}

type PaymentConfig struct {
	Provider      string        `yaml:"provider"` // razorpay | fake
	BaseURL       string        `yaml:"base_url"`
	MerchantName  string        `yaml:"merchant_name"`
	Timeout       time.Duration `yaml:"timeout"`
	KeyID         string        `yaml:"key_id"`
	KeySecret     string        `yaml:"-"`
	WebhookSecret string        `yaml:"-"`
}

type SchedulerConfig struct {
	ExpiryInterval       time.Duration `yaml:"expiry_interval"`
	PendingAuditInterval time.Duration `yaml:"pending_audit_interval"`
	PendingStaleAfter    time.Duration `yaml:"pending_stale_after"`
	PoolStatsInterval    time.Duration `yaml:"pool_stats_interval"`
}

type RateLimitConfig struct {
	VerifyPerMinute int `yaml:"verify_per_minute"`
}

type AlertsConfig struct {
	TelegramToken  string `yaml:"-"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	Workers        int    `yaml:"workers"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Payment   PaymentConfig   `yaml:"payment"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Alerts    AlertsConfig    `yaml:"alerts"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path, then overlays secrets from the
// environment (a .env file next to the binary is loaded first if present).
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// godotenv never overrides variables already set by the process manager.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	cfg.Runtime.Dev = dev

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Payment.KeyID, "PAYMENT_KEY_ID")
	setString(&cfg.Payment.KeySecret, "PAYMENT_KEY_SECRET")
	setString(&cfg.Payment.WebhookSecret, "PAYMENT_WEBHOOK_SECRET")
	setString(&cfg.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&cfg.Admin.APIKey, "ADMIN_API_KEY")
	setString(&cfg.Alerts.TelegramToken, "ALERTS_TELEGRAM_TOKEN")
	if v := os.Getenv("ALERTS_TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Alerts.TelegramChatID = id
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout <= 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 20 * time.Second
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Payment.Provider == "" {
		cfg.Payment.Provider = "razorpay"
	}
	if cfg.Payment.BaseURL == "" {
		cfg.Payment.BaseURL = "https://api.razorpay.com/v1"
	}
	if cfg.Payment.Timeout <= 0 {
		cfg.Payment.Timeout = 10 * time.Second
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Scheduler.PendingAuditInterval <= 0 {
		cfg.Scheduler.PendingAuditInterval = 15 * time.Minute
	}
	if cfg.Scheduler.PendingStaleAfter <= 0 {
		cfg.Scheduler.PendingStaleAfter = 24 * time.Hour
	}
	if cfg.Scheduler.PoolStatsInterval <= 0 {
		cfg.Scheduler.PoolStatsInterval = 30 * time.Second
	}
	if cfg.RateLimit.VerifyPerMinute <= 0 {
		cfg.RateLimit.VerifyPerMinute = 20
	}
	if cfg.Alerts.Workers <= 0 {
		cfg.Alerts.Workers = 2
	}
}

// Validate performs the minimal checks needed to start serving.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET is required")
	}
	switch c.Payment.Provider {
	case "razorpay":
		if c.Payment.KeyID == "" {
			return errors.New("payment.key_id is required")
		}
		if c.Payment.KeySecret == "" {
			return errors.New("PAYMENT_KEY_SECRET is required")
		}
		if c.Payment.WebhookSecret == "" {
			return errors.New("PAYMENT_WEBHOOK_SECRET is required")
		}
	case "fake":
		if !c.Runtime.Dev {
			return errors.New("payment.provider=fake is only allowed with -dev")
		}
	default:
		return fmt.Errorf("unknown payment.provider %q", c.Payment.Provider)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

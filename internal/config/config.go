package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// DefaultSessionTTL bounds how long an idle creation flow survives.
const DefaultSessionTTL = 30 * time.Minute

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port               string `yaml:"port"`
	DatabaseDriver     string `yaml:"databaseDriver"`
	DatabaseURL        string `yaml:"databaseURL"`
	RedisAddr          string `yaml:"redisAddr"`
	RedisPassword      string `yaml:"redisPassword"`
	SessionBackend     string `yaml:"sessionBackend"`
	SessionTTL         string `yaml:"sessionTTL"`
	OutboxStream       string `yaml:"outboxStream"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`
	LogLevel           string `yaml:"logLevel"`
	InviteSecret       string `yaml:"inviteSecret"`
	WebhookSecret      string `yaml:"webhookSecret"`
	BotUsername        string `yaml:"botUsername"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.DatabaseDriver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("PLANNER_SESSION_BACKEND"); v != "" {
		cfg.SessionBackend = v
	}
	if v := os.Getenv("PLANNER_SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("PLANNER_OUTBOX_STREAM"); v != "" {
		cfg.OutboxStream = v
	}
	if v := os.Getenv("PLANNER_RATE_LIMIT_PER_MINUTE"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse PLANNER_RATE_LIMIT_PER_MINUTE: %w", err)
		}
		cfg.RateLimitPerMinute = limit
	}
	if v := os.Getenv("PLANNER_INVITE_SECRET"); v != "" {
		cfg.InviteSecret = v
	}
	if v := os.Getenv("PLANNER_WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("PLANNER_BOT_USERNAME"); v != "" {
		cfg.BotUsername = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.InviteSecret == "" {
		return errors.New("config: inviteSecret is required (set in config.yaml or PLANNER_INVITE_SECRET)")
	}
	if cfg.BotUsername == "" {
		return errors.New("config: botUsername is required (set in config.yaml or PLANNER_BOT_USERNAME)")
	}
	if cfg.SessionBackend == "redis" && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required for the redis session backend")
	}
	if cfg.OutboxStream != "" && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when outboxStream is set")
	}
	if cfg.RateLimitPerMinute < 0 {
		return errors.New("config: rateLimitPerMinute must not be negative")
	}
	if cfg.RateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when rateLimitPerMinute is set")
	}
	return nil
}

// ParseSessionTTL parses the configured TTL, applying the default when empty.
func ParseSessionTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return DefaultSessionTTL, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse session ttl: %w", err)
	}
	if ttl <= 0 {
		return 0, errors.New("session ttl must be positive")
	}
	return ttl, nil
}

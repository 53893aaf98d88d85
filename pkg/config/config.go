package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Environments accepted in ENV.
const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

// DefaultConfigPath is read when present; otherwise configuration comes from the environment only.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for linkit-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (tokens, passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENV" env-default:"dev"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"`

	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Limits    LimitsConfig    `yaml:"limits"`
	Reminders RemindersConfig `yaml:"reminders"`
	Feed      FeedConfig      `yaml:"feed"`

	// AdminChatID receives operator alerts about fatal failures. Zero disables alerts.
	AdminChatID int64 `yaml:"admin_chat_id" env:"ADMIN_CHAT_ID" env-default:"0"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether bearer tokens are validated.
	// Set to false for local development; identity is then read from X-Actor-ID headers.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWTSecret signs and verifies HS256 tokens issued by the chat gateway.
	JWTSecret string `yaml:"-" env:"AUTH_JWT_SECRET"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"linkit"`
	Password       string `yaml:"-" env:"PGPASSWORD"`
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"linkit"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds the session store connection. An empty host selects the in-memory store.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// TelegramConfig holds Bot API delivery settings.
type TelegramConfig struct {
	BotToken      string  `yaml:"-" env:"BOT_TOKEN"`
	APIURL        string  `yaml:"api_url" env:"TELEGRAM_API_URL" env-default:"https://api.telegram.org"`
	RatePerSecond float64 `yaml:"rate_per_second" env:"TELEGRAM_RATE_PER_SECOND" env-default:"25"`
}

// LimitsConfig holds per-actor quotas.
type LimitsConfig struct {
	MaxRequestsPerDay int `yaml:"max_requests_per_day" env:"MAX_CONNECTION_REQUESTS_PER_DAY" env-default:"10"`
}

// RemindersConfig controls the follow-up reminder task.
type RemindersConfig struct {
	// AfterDaysStr accepts a single number or a comma-separated list ("2,7");
	// only the first value is used.
	AfterDaysStr  string `yaml:"after_days" env:"REMINDERS_AFTER_DAYS" env-default:"3"`
	IntervalHours int    `yaml:"interval_hours" env:"REMINDERS_INTERVAL_HOURS" env-default:"6"`

	// AfterDays is parsed from AfterDaysStr (not from config file).
	AfterDays int `yaml:"-"`
}

// FeedConfig holds feed building settings.
type FeedConfig struct {
	Size int `yaml:"size" env:"FEED_SIZE" env-default:"50"`
	// SessionTTLHours expires idle feed sessions. Zero keeps them until overwritten.
	SessionTTLHours int `yaml:"session_ttl_hours" env:"SESSION_TTL_HOURS" env-default:"0"`
}

// SessionTTL returns the feed session expiry, zero meaning none.
func (f FeedConfig) SessionTTL() time.Duration {
	return time.Duration(f.SessionTTLHours) * time.Hour
}

// Interval returns the reminder cadence and window width.
func (r RemindersConfig) Interval() time.Duration {
	return time.Duration(r.IntervalHours) * time.Hour
}

// Load reads configuration from path (when it exists) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version, path string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	days, err := parseFirstInt(c.Reminders.AfterDaysStr)
	if err != nil {
		return fmt.Errorf("REMINDERS_AFTER_DAYS: %w", err)
	}
	c.Reminders.AfterDays = days
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	return nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("env must be one of dev, stage, prod (got %q)", c.Env))
	}

	if c.Limits.MaxRequestsPerDay <= 0 {
		errs = append(errs, errors.New("max_requests_per_day must be positive"))
	}
	if c.Reminders.AfterDays <= 0 {
		errs = append(errs, errors.New("reminders after_days must be positive"))
	}
	if c.Reminders.IntervalHours <= 0 {
		errs = append(errs, errors.New("reminders interval_hours must be positive"))
	}
	if c.Feed.Size <= 0 {
		errs = append(errs, errors.New("feed size must be positive"))
	}
	if c.Feed.SessionTTLHours < 0 {
		errs = append(errs, errors.New("session_ttl_hours cannot be negative"))
	}
	if c.Telegram.RatePerSecond <= 0 {
		errs = append(errs, errors.New("telegram rate_per_second must be positive"))
	}
	if c.Env != EnvDev && c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required outside dev"))
	}
	if c.Auth.EnableVerification && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required when auth verification is enabled"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether logs should be machine-readable.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProd || c.Env == EnvStage
}

// parseFirstInt parses "3" or "2,7" and returns the first number.
func parseFirstInt(value string) (int, error) {
	first, _, _ := strings.Cut(value, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return 0, errors.New("empty value")
	}
	n, err := strconv.Atoi(first)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", first)
	}
	return n, nil
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, ResolveHostForDocker(c.Host), c.Port, c.Database, c.SSLMode,
	)
}

// Addr returns host:port for the Redis client.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", ResolveHostForDocker(c.Host), c.Port)
}

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// ResolveHostForDocker maps loopback hosts to host.docker.internal when running in a container,
// so a containerized engine can reach PostgreSQL and Redis on the host machine.
func ResolveHostForDocker(host string) string {
	inDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	if inDocker && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}

// Package config loads the application configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration shared by the server and the CLI tools.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	Kiosk     KioskConfig     `yaml:"kiosk"`
	Retention RetentionConfig `yaml:"retention"`
	Planning  PlanningConfig  `yaml:"planning"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
}

// ServerConfig governs the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// DatabaseConfig selects the SQL backend. Driver is "postgres" or "sqlite";
// an empty DSN with the sqlite driver opens an in-memory database.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AuthConfig governs token issuance and session persistence.
type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
	CookieName   string        `yaml:"cookie_name"`
	CookieSecure bool          `yaml:"cookie_secure" env:"COOKIE_SECURE"`
}

// RedisConfig is the optional session cache. Leave Addr empty to disable.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

// KioskConfig governs the self-service sign-in devices.
type KioskConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// RetentionConfig governs soft-delete purging.
type RetentionConfig struct {
	PurgeAfter    time.Duration `yaml:"purge_after"`
	CronSchedule  string        `yaml:"cron_schedule"`
	PurgeDisabled bool          `yaml:"purge_disabled"`
}

// PlanningConfig points at the external planning feed used to import
// workshop schedules. Leave URL empty to disable the sync endpoint.
type PlanningConfig struct {
	FeedURL string        `yaml:"feed_url" env:"PLANNING_FEED_URL"`
	Token   string        `yaml:"token" env:"PLANNING_FEED_TOKEN"`
	Timeout time.Duration `yaml:"timeout"`
}

// RateLimitConfig throttles unauthenticated endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AuditConfig governs the audit trail sink.
type AuditConfig struct {
	FilePath   string `yaml:"file_path" env:"AUDIT_FILE"`
	BufferSize int    `yaml:"buffer_size"`
}

// Load reads the YAML file at path (skipped when path is empty or the file
// does not exist), applies environment overrides, then fills defaults and
// validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims strings and fills defaults.
func (c *Config) Normalize() {
	c.Server.Addr = strings.TrimSpace(c.Server.Addr)
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	c.Database.Driver = strings.TrimSpace(strings.ToLower(c.Database.Driver))
	if c.Database.Driver == "" {
		if c.Database.DSN != "" {
			c.Database.Driver = "postgres"
		} else {
			c.Database.Driver = "sqlite"
		}
	}
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime <= 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}

	if c.Auth.SessionTTL <= 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	c.Auth.CookieName = strings.TrimSpace(c.Auth.CookieName)
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "auth_token"
	}

	if c.Kiosk.TokenTTL <= 0 {
		c.Kiosk.TokenTTL = 12 * time.Hour
	}

	if c.Retention.PurgeAfter <= 0 {
		c.Retention.PurgeAfter = 30 * 24 * time.Hour
	}
	c.Retention.CronSchedule = strings.TrimSpace(c.Retention.CronSchedule)
	if c.Retention.CronSchedule == "" {
		c.Retention.CronSchedule = "0 3 * * *"
	}

	if c.Planning.Timeout <= 0 {
		c.Planning.Timeout = 15 * time.Second
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}

	if c.Audit.BufferSize <= 0 {
		c.Audit.BufferSize = 256
	}
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("config: postgres driver requires a DSN")
	}
	return nil
}

package config

import (
	"fmt"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Token      TokenConfig      `mapstructure:"token"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	// Backend selects the record store: file, redis, or memory.
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type TokenConfig struct {
	Secret          string `mapstructure:"secret"`
	AccessTokenTTL  int    `mapstructure:"access_token_ttl"`  // seconds
	RefreshTokenTTL int    `mapstructure:"refresh_token_ttl"` // seconds
	BlacklistTTL    int    `mapstructure:"blacklist_ttl"`     // seconds
}

func (c *TokenConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessTokenTTL) * time.Second
}

func (c *TokenConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTL) * time.Second
}

// ActionLimit is the per-action attempt budget.
type ActionLimit struct {
	MaxAttempts   int `mapstructure:"max_attempts"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

func (l ActionLimit) Window() time.Duration {
	return time.Duration(l.WindowSeconds) * time.Second
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Actions maps an action name (login, register, ...) to its limit.
	Actions         map[string]ActionLimit `mapstructure:"actions"`
	RetentionHours  int                    `mapstructure:"retention_hours"`
	CleanupInterval int                    `mapstructure:"cleanup_interval"` // seconds
}

// LimitFor returns the limit for an action, falling back to the "default"
// entry when the action has no explicit budget.
func (c *RateLimitConfig) LimitFor(action string) (ActionLimit, bool) {
	if l, ok := c.Actions[action]; ok {
		return l, true
	}
	l, ok := c.Actions["default"]
	return l, ok
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type MonitoringConfig struct {
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	if c.Token.Secret == "" {
		return fmt.Errorf("token.secret is required")
	}
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("token.secret must be at least 32 bytes")
	}
	if c.Storage.Backend == "file" && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the file backend")
	}
	if c.Storage.Backend == "redis" && c.Storage.Redis.Addr == "" {
		return fmt.Errorf("storage.redis.addr is required for the redis backend")
	}
	for action, limit := range c.RateLimit.Actions {
		if limit.MaxAttempts <= 0 || limit.WindowSeconds <= 0 {
			return fmt.Errorf("rate_limit.actions.%s must have positive max_attempts and window_seconds", action)
		}
	}
	return nil
}

package config

import (
	"context"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/clusterintranet/authgate/pkg/errors"
	"github.com/clusterintranet/authgate/pkg/logger"
)

// LoadConfig loads the configuration from file and environment variables.
// Environment variables use the AUTHGATE_ prefix with dots replaced by
// underscores (e.g. AUTHGATE_TOKEN_SECRET).
func LoadConfig(log logger.Logger) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/authgate/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.ErrServerError("failed to read config file").WithError(err)
		}
	}

	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrServerError("failed to unmarshal config").WithError(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ErrInvalidRequest("invalid configuration").WithError(err)
	}

	// Log config file changes; a restart is still required to apply them to
	// already-wired components.
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info(context.Background(), "config file changed",
			logger.String("file", e.Name),
			logger.String("op", e.Op.String()),
		)
	})
	v.WatchConfig()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 60)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "./data/records")
	v.SetDefault("storage.redis.addr", "")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "")

	// An empty default registers the key so AutomaticEnv can fill it in.
	v.SetDefault("token.secret", "")
	v.SetDefault("token.access_token_ttl", 900)      // 15 minutes
	v.SetDefault("token.refresh_token_ttl", 604800)  // 7 days
	v.SetDefault("token.blacklist_ttl", 604800)      // 7 days

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.retention_hours", 24)
	v.SetDefault("rate_limit.cleanup_interval", 3600)
	v.SetDefault("rate_limit.actions", map[string]interface{}{
		"login":    map[string]interface{}{"max_attempts": 5, "window_seconds": 300},
		"register": map[string]interface{}{"max_attempts": 3, "window_seconds": 3600},
		"refresh":  map[string]interface{}{"max_attempts": 10, "window_seconds": 60},
		"default":  map[string]interface{}{"max_attempts": 60, "window_seconds": 60},
	})

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.db_path", "./data/authgate.db")

	v.SetDefault("log.level", "info")
	v.SetDefault("monitoring.pprof_enabled", false)
}

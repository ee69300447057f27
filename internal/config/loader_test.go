package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterintranet/authgate/pkg/logger"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTHGATE_TOKEN_SECRET", "0123456789abcdef0123456789abcdef")
	t.Chdir(t.TempDir()) // no config file present

	cfg, err := LoadConfig(logger.NewNoopLogger())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 900, cfg.Token.AccessTokenTTL)
	assert.Equal(t, 604800, cfg.Token.RefreshTokenTTL)
	assert.True(t, cfg.RateLimit.Enabled)

	login, ok := cfg.RateLimit.LimitFor("login")
	require.True(t, ok)
	assert.Equal(t, 5, login.MaxAttempts)
	assert.Equal(t, 300, login.WindowSeconds)

	// Unknown actions fall back to the default budget.
	def, ok := cfg.RateLimit.LimitFor("something-else")
	require.True(t, ok)
	assert.Equal(t, 60, def.MaxAttempts)
}

func TestLoadConfig_RejectsMissingSecret(t *testing.T) {
	t.Setenv("AUTHGATE_TOKEN_SECRET", "")
	t.Chdir(t.TempDir())

	_, err := LoadConfig(logger.NewNoopLogger())
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Storage: StorageConfig{Backend: "memory"},
			Token:   TokenConfig{Secret: "0123456789abcdef0123456789abcdef"},
		}
	}

	t.Run("should reject short secrets", func(t *testing.T) {
		cfg := base()
		cfg.Token.Secret = "short"
		assert.Error(t, cfg.Validate())
	})

	t.Run("should require a path for the file backend", func(t *testing.T) {
		cfg := base()
		cfg.Storage.Backend = "file"
		assert.Error(t, cfg.Validate())
	})

	t.Run("should reject non-positive action limits", func(t *testing.T) {
		cfg := base()
		cfg.RateLimit.Actions = map[string]ActionLimit{
			"login": {MaxAttempts: 0, WindowSeconds: 300},
		}
		assert.Error(t, cfg.Validate())
	})
}

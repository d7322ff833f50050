package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "zhipu", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 20, cfg.Agent.MaxConversationHistory)
	assert.Equal(t, 5, cfg.Agent.MaxToolIterations)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 200, cfg.RSS.MaxArticles)
	assert.Equal(t, 10, cfg.RSS.MaxWorkers)
	assert.False(t, cfg.Retention.Enabled)
	assert.Equal(t, 90, cfg.Retention.ConversationRetentionDays)
	assert.Equal(t, time.Hour, cfg.Retention.CleanupInterval)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Contains(t, cfg.Upload.AllowedExts, ".pdf")
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openrouter")
	t.Setenv("LLM_REQUEST_TIMEOUT", "90s")
	t.Setenv("RSS_FETCH_TIMEOUT", "15") // bare seconds
	t.Setenv("MAX_TOOL_ITERATIONS", "8")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("ENVIRONMENT", "production")

	cfg := Load()

	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, 90*time.Second, cfg.LLM.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.RSS.FetchTimeout)
	assert.Equal(t, 8, cfg.Agent.MaxToolIterations)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("LLM_MAX_RETRIES", "lots")
	t.Setenv("LLM_REQUEST_TIMEOUT", "soon")
	t.Setenv("CACHE_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 60*time.Second, cfg.LLM.RequestTimeout)
	assert.True(t, cfg.Cache.Enabled)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := Load()
		cfg.LLM.ZhipuAPIKey = "sk-test"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, base().Validate())
	})

	t.Run("missing zhipu key", func(t *testing.T) {
		cfg := base()
		cfg.LLM.ZhipuAPIKey = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingCredential)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "ZHIPU_API_KEY", verr.Field)
	})

	t.Run("gateway provider needs openrouter key", func(t *testing.T) {
		cfg := base()
		cfg.LLM.Provider = "deepseek/deepseek-chat"
		err := cfg.Validate()
		require.Error(t, err)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "OPENROUTER_API_KEY", verr.Field)

		cfg.LLM.OpenRouterKey = "sk-or-test"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bounds", func(t *testing.T) {
		cfg := base()
		cfg.Agent.MaxToolIterations = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)

		cfg = base()
		cfg.RSS.MaxArticles = 0
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
	})

	t.Run("retention checked only when enabled", func(t *testing.T) {
		cfg := base()
		cfg.Retention.ConversationRetentionDays = 0
		assert.NoError(t, cfg.Validate())

		cfg.Retention.Enabled = true
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)

		cfg = base()
		cfg.Retention.Enabled = true
		cfg.Retention.CleanupInterval = time.Second
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
	})
}

package config_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinywideclouds/go-push-scheduler/pushscheduler/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpdateConfigWithEnvOverrides_Defaults(t *testing.T) {
	cfg := &config.Config{}

	final, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, ":8080", final.ListenAddr)
	assert.Equal(t, "PWA Demo", final.DefaultTitle)
	assert.Equal(t, config.StrategyLocal, final.Strategy)
	assert.Equal(t, config.QueueBackendFile, final.QueueBackend)
	assert.Equal(t, "data/scheduled-notifications.json", final.QueuePath)
}

func TestUpdateConfigWithEnvOverrides_Applied(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PROJECT_ID", "env-project")
	t.Setenv("SCHEDULER_STRATEGY", "qstash")
	t.Setenv("QSTASH_TOKEN", "qs-token")
	t.Setenv("QSTASH_CURRENT_SIGNING_KEY", "sig_current")
	t.Setenv("CALLBACK_BASE_URL", "https://push.example.com")
	t.Setenv("VAPID_PUBLIC_KEY", "pub-key")
	t.Setenv("VAPID_PRIVATE_KEY", "priv-key")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.com, https://b.com,")

	cfg := &config.Config{ListenAddr: ":8080"}

	final, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())

	require.NoError(t, err)
	assert.Equal(t, ":9090", final.ListenAddr)
	assert.Equal(t, "env-project", final.ProjectID)
	assert.Equal(t, config.StrategyQStash, final.Strategy)
	assert.Equal(t, "qs-token", final.QStash.Token)
	assert.Equal(t, "sig_current", final.QStash.CurrentSigningKey)
	assert.Equal(t, "https://push.example.com", final.QStash.CallbackBaseURL)
	assert.Equal(t, "pub-key", final.Vapid.PublicKey)
	assert.Equal(t, "priv-key", final.Vapid.PrivateKey)
	assert.Equal(t, "s3cret", final.CronSecret)
	assert.True(t, final.Redis.Enabled)
	assert.Equal(t, "localhost:6379", final.Redis.Addr)
	assert.Equal(t, []string{"https://a.com", "https://b.com"}, final.CorsConfig.AllowedOrigins)
}

func TestUpdateConfigWithEnvOverrides_ValidationFailures(t *testing.T) {
	t.Run("unknown strategy", func(t *testing.T) {
		cfg := &config.Config{Strategy: "carrier-pigeon"}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown scheduler strategy")
	})

	t.Run("qstash strategy without token", func(t *testing.T) {
		cfg := &config.Config{Strategy: config.StrategyQStash}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "qstash token")
	})

	t.Run("qstash strategy without callback url", func(t *testing.T) {
		cfg := &config.Config{
			Strategy: config.StrategyQStash,
			QStash:   config.QStashConfig{Token: "qs-token"},
		}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "callback base url")
	})

	t.Run("firestore backend without project id", func(t *testing.T) {
		cfg := &config.Config{QueueBackend: config.QueueBackendFirestore}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "project_id")
	})

	t.Run("unknown queue backend", func(t *testing.T) {
		cfg := &config.Config{QueueBackend: "tape"}
		_, err := config.UpdateConfigWithEnvOverrides(cfg, testLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown queue backend")
	})
}

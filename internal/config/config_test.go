package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"tutor-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "test")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Storage.Remote)
	assert.Equal(t, config.LocalDriverSQLite, cfg.Storage.Local.Driver)
	assert.EqualValues(t, 5<<20, cfg.Storage.Local.QuotaBytes)
	assert.Equal(t, config.EventsDriverNone, cfg.Events.Driver)
	assert.Equal(t, "UAH", cfg.App.Currency)
	assert.Equal(t, 15, cfg.Auth.AccessTTLMinutes)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "test")
	t.Setenv("USE_REMOTE_STORAGE", "true")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "tutor")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("EVENTS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.True(t, cfg.Storage.Remote)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "tutor", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, "jwt-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, config.EventsDriverKafka, cfg.Events.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.Kafka.Brokers)
	assert.Equal(t, "9000", cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "configs", "config.staging.yaml"), []byte(`
server:
  port: "8181"
storage:
  local:
    driver: memory
app:
  currency: eur
`), 0o644))

	t.Chdir(dir)
	t.Setenv("ENV", "staging")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, config.LocalDriverMemory, cfg.Storage.Local.Driver)
	assert.Equal(t, "eur", cfg.App.Currency)
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Server:  config.ServerConfig{Port: "8080"},
			Storage: config.StorageConfig{Local: config.LocalConfig{Driver: config.LocalDriverMemory}},
			Events:  config.EventsConfig{Driver: config.EventsDriverNone},
			App:     config.AppConfig{Currency: "USD"},
		}
	}

	t.Run("valid local", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("remote needs database and secret", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.Remote = true

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.host")
		assert.Contains(t, err.Error(), "auth.jwt_secret")
	})

	t.Run("unknown drivers and currency", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.Local.Driver = "redis"
		cfg.Events.Driver = "sqs"
		cfg.App.Currency = "GBP"

		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown storage.local.driver "redis"`)
		assert.Contains(t, err.Error(), `unknown events.driver "sqs"`)
		assert.Contains(t, err.Error(), "app.currency")
	})

	t.Run("sqlite needs a path", func(t *testing.T) {
		cfg := valid()
		cfg.Storage.Local.Driver = config.LocalDriverSQLite

		assert.ErrorContains(t, cfg.Validate(), "storage.local.path")
	})
}

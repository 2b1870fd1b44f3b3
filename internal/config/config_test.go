package config

import (
	"os"
	"path/filepath"
	"testing"

	"tms/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TMS_REDIS_PASSWORD", "secret")

	path := writeConfig(t, `
app:
  name: tms-test
storage:
  backend: redis
  failover: true
redis:
  address: "localhost:6379"
  password: "${TMS_REDIS_PASSWORD}"
auth:
  users:
    - id: u9
      username: tester
      full_name: Test User
      role: archivist
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tms-test", cfg.App.Name)
	assert.Equal(t, StorageRedis, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Failover)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, "tms:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "123456", cfg.Auth.SharedPassword)
	require.Len(t, cfg.Auth.Users, 1)
	assert.Equal(t, models.RoleArchivist, cfg.Auth.Users[0].Role)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env", []byte("TMS_TEST_DB_PATH=from-env.db\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TMS_TEST_DB_PATH") })

	path := writeConfig(t, `
storage:
  backend: sqlite
database:
  path: "${TMS_TEST_DB_PATH}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		_, err := Load(writeConfig(t, "storage: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		_, err := Load(writeConfig(t, "storage:\n  backend: floppy\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation failed")
	})
}

func TestValidateConfig(t *testing.T) {
	valid := func() Config {
		c := Config{}
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{
			name:    "redis without address",
			mutate:  func(c *Config) { c.Storage.Backend = StorageRedis },
			wantErr: true,
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Storage.Backend = StorageSQLite },
			wantErr: true,
		},
		{
			name: "backup on memory storage",
			mutate: func(c *Config) {
				c.Backup.Enabled = true
			},
			wantErr: true,
		},
		{
			name: "duplicate username",
			mutate: func(c *Config) {
				c.Auth.Users = []models.User{{ID: "1", Username: "aziz"}, {ID: "2", Username: "AZIZ"}}
			},
			wantErr: true,
		},
		{
			name: "empty api key",
			mutate: func(c *Config) {
				c.API.Auth.Enabled = true
				c.API.Auth.APIKeys = []APIClientKey{{Name: "blank"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptionalIntegrations(t *testing.T) {
	assert.False(t, GoogleConfig{}.Enabled())
	assert.True(t, GoogleConfig{GoogleCredentialsFile: "c.json", LedgerSpreadSheetID: "id"}.Enabled())
	assert.False(t, TelegramConfig{BotToken: "t"}.Enabled())
	assert.True(t, TelegramConfig{BotToken: "t", NotifyChats: []int64{1}}.Enabled())
}

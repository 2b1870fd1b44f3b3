package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"tms/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Auth       AuthConfig       `yaml:"auth"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

// StorageConfig selects where ledger snapshots live.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Failover keeps a memory copy and serves from it while the backend is down.
	Failover bool `yaml:"failover"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address   string `yaml:"address"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size"`
	KeyPrefix string `yaml:"key_prefix"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// APIAuthConfig guards the HTTP API with static client keys.
type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// AuthConfig describes the operator login table.
type AuthConfig struct {
	SharedPassword string        `yaml:"shared_password"`
	Users          []models.User `yaml:"users"`
}

type LedgerConfig struct {
	// SeedFile optionally replaces the built-in dataset used for empty storage.
	SeedFile string `yaml:"seed_file"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	LedgerSpreadSheetID   string `yaml:"ledger_spreadsheet_id"`
}

func (g GoogleConfig) Enabled() bool {
	return g.GoogleCredentialsFile != "" && g.LedgerSpreadSheetID != ""
}

type TelegramConfig struct {
	BotToken    string  `yaml:"bot_token"`
	NotifyChats []int64 `yaml:"notify_chats"`
	Debug       bool    `yaml:"debug"`
}

func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && len(t.NotifyChats) > 0
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.Address == "" {
			return errors.New("redis address is required for redis storage")
		}
	case StorageSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Auth.SharedPassword == "" {
		return errors.New("auth shared password is required")
	}
	if err := ValidateUsers(c.Auth.Users); err != nil {
		return err
	}

	if c.Backup.Enabled && c.Storage.Backend != StorageSQLite {
		return errors.New("backups require sqlite storage")
	}

	if c.API.Auth.Enabled {
		for i, k := range c.API.Auth.APIKeys {
			if strings.TrimSpace(k.Key) == "" {
				return fmt.Errorf("api key #%d is empty", i+1)
			}
		}
	}
	return nil
}

func ValidateUsers(users []models.User) error {
	seen := make(map[string]bool)
	for _, u := range users {
		name := strings.ToLower(u.Username)
		if name == "" {
			return fmt.Errorf("user %q has empty username", u.ID)
		}
		if seen[name] {
			return fmt.Errorf("duplicate username found: %s", u.Username)
		}
		seen[name] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tms"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageMemory
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "tms:"
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Backup.StoragePath == "" {
		c.Backup.StoragePath = "backups"
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Auth.SharedPassword == "" {
		c.Auth.SharedPassword = "123456"
	}
}

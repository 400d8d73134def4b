package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultLogLevel      = "info"
	defaultEnv           = "local"
	defaultConfigDir     = ".tejanitos"
	defaultAppPrefix     = "tejanitos"
	defaultDataFile      = "cache.db"
	defaultLogFile       = "client.log"
	defaultInboxDir      = "inbox"
	defaultPoolDays      = 30
)

type Config struct {
	Env           string `mapstructure:"app_env" validate:"oneof=local dev prod"`
	ServerAddress string `mapstructure:"server_address" validate:"required_if=UseRemote true"`
	LogLevel      string `mapstructure:"log_level"`
	LogFile       string `mapstructure:"log_file"`
	ConfigDir     string `mapstructure:"config_dir" validate:"required"`
	DataPath      string `mapstructure:"data_path" validate:"required"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	APIToken      string `mapstructure:"api_token"`
	// UseRemote выключает удаленное хранилище целиком: клиент работает только с кешем
	UseRemote      bool   `mapstructure:"use_remote"`
	SyncInterval   int    `mapstructure:"sync_interval_seconds" validate:"gte=0"`
	HealthInterval int    `mapstructure:"health_interval_seconds" validate:"gte=0"`
	RosterPath     string `mapstructure:"roster_path"`
	InboxDir       string `mapstructure:"inbox_dir"`
	DefaultTurno   string `mapstructure:"default_turno"`
	// PoolDays срок хранения выбывших записей для inactive purge --expired
	PoolDays       int    `mapstructure:"pool_days" validate:"gte=0"`
	AppPrefix      string `mapstructure:"app_prefix" validate:"required"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env (текущая или родительская директория) и переменные окружения.
func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	viper.AutomaticEnv()

	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("CONFIG_DIR", defaultConfigDir)
	viper.SetDefault("SYNC_INTERVAL_SECONDS", 30)
	viper.SetDefault("HEALTH_INTERVAL_SECONDS", 10)
	viper.SetDefault("ENABLE_TLS", false)
	viper.SetDefault("USE_REMOTE", true)
	viper.SetDefault("POOL_DAYS", defaultPoolDays)
	viper.SetDefault("APP_PREFIX", defaultAppPrefix)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == defaultConfigDir {
		configDir = filepath.Join(homeDir, configDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg := &Config{
		Env:            viper.GetString("APP_ENV"),
		ServerAddress:  viper.GetString("SERVER_ADDRESS"),
		LogLevel:       viper.GetString("LOG_LEVEL"),
		LogFile:        inDir(configDir, viper.GetString("LOG_FILE"), defaultLogFile),
		ConfigDir:      configDir,
		DataPath:       inDir(configDir, viper.GetString("DATA_PATH"), defaultDataFile),
		EnableTLS:      viper.GetBool("ENABLE_TLS"),
		APIToken:       viper.GetString("API_TOKEN"),
		UseRemote:      viper.GetBool("USE_REMOTE"),
		SyncInterval:   viper.GetInt("SYNC_INTERVAL_SECONDS"),
		HealthInterval: viper.GetInt("HEALTH_INTERVAL_SECONDS"),
		RosterPath:     viper.GetString("ROSTER_PATH"),
		InboxDir:       inDir(configDir, viper.GetString("INBOX_DIR"), defaultInboxDir),
		DefaultTurno:   viper.GetString("DEFAULT_TURNO"),
		PoolDays:       viper.GetInt("POOL_DAYS"),
		AppPrefix:      viper.GetString("APP_PREFIX"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func inDir(dir, value, def string) string {
	if value == "" {
		value = def
	}
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(dir, value)
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid client config: %w", err)
	}
	return nil
}

// BaseURL адрес сервера со схемой.
func (c *Config) BaseURL() string {
	scheme := "http://"
	if c.EnableTLS {
		scheme = "https://"
	}
	return scheme + c.ServerAddress
}

func (c *Config) SyncEvery() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

func (c *Config) HealthEvery() time.Duration {
	return time.Duration(c.HealthInterval) * time.Second
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}

package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath = ".env"

	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	defaultRunAddress = "localhost:8080"
	defaultMigrations = "migrations"
)

type Config struct {
	Env    string `validate:"oneof=local dev prod"`
	DB     db
	Server server
	Logger logger
}

type db struct {
	// пустой DATABASE_URI включает хранилище в памяти
	DatabaseURI string `env:"DATABASE_URI"`
	Migrations  string `env:"MIGRATIONS_PATH" validate:"required_with=DatabaseURI"`
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS" validate:"required"`
	// bcrypt-хэш токена API; пустое значение отключает проверку
	APITokenHash string `env:"API_TOKEN_HASH"`
}

type logger struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// MustLoad читает .env (если есть) и переменные окружения.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config error: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", EnvLocal)
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("MIGRATIONS_PATH", defaultMigrations)
	viper.SetDefault("LOG_LEVEL", "info")

	cfg := &Config{
		Env: viper.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: viper.GetString("DATABASE_URI"),
			Migrations:  viper.GetString("MIGRATIONS_PATH"),
		},
		Server: server{
			RunAddress:   viper.GetString("RUN_ADDRESS"),
			APITokenHash: viper.GetString("API_TOKEN_HASH"),
		},
		Logger: logger{LogLevel: viper.GetString("LOG_LEVEL")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}
	return nil
}

// InMemory true, когда база не настроена.
func (c *Config) InMemory() bool {
	return c.DB.DatabaseURI == ""
}

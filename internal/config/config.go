package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Outbox   OutboxConfig
}

type ServerConfig struct {
	Port           int     `mapstructure:"port" envconfig:"SERVER_PORT" default:"8080"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" envconfig:"SERVER_TIMEOUT_SECONDS" default:"30"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" envconfig:"SERVER_RATE_LIMIT_RPS" default:"100"`
	RateBurst      int     `mapstructure:"rate_burst" envconfig:"SERVER_RATE_BURST" default:"200"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" envconfig:"DB_HOST" default:"localhost"`
	Port     int    `mapstructure:"port" envconfig:"DB_PORT" default:"5432"`
	User     string `mapstructure:"user" envconfig:"DB_USER" default:"postgres"`
	Password string `mapstructure:"password" envconfig:"DB_PASSWORD"`
	Name     string `mapstructure:"name" envconfig:"DB_NAME" default:"booking"`
	SSLMode  string `mapstructure:"sslmode" envconfig:"DB_SSLMODE" default:"disable"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url" envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	PoolSize     int    `mapstructure:"pool_size" envconfig:"REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int    `mapstructure:"min_idle_conns" envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`
}

type OutboxConfig struct {
	BatchSize           int           `mapstructure:"batch_size" envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval        time.Duration `mapstructure:"poll_interval" envconfig:"OUTBOX_POLL_INTERVAL" default:"5s"`
	RetryAttempts       int           `mapstructure:"retry_attempts" envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay          time.Duration `mapstructure:"retry_delay" envconfig:"OUTBOX_RETRY_DELAY" default:"1s"`
	ProcessedRetention  time.Duration `mapstructure:"processed_retention" envconfig:"OUTBOX_PROCESSED_RETENTION" default:"168h"`
}

// LoadConfig reads config.yaml, with environment variables taking
// precedence. When no file is present it falls back to env-only loading.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); notFound {
			return LoadFromEnv()
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadFromEnv populates the configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	return &config, nil
}

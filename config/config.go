package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`

	// Server
	Port            int           `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	// Remote source
	NCFAToken   string        `mapstructure:"NCFA_TOKEN"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
	FetchWindow int           `mapstructure:"FETCH_WINDOW"`
	StopDate    string        `mapstructure:"SYNC_STOP_DATE"`

	// Storage
	CachePath   string `mapstructure:"CACHE_PATH"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Backup
	BackupBucket string `mapstructure:"BACKUP_BUCKET"`
	AWSRegion    string `mapstructure:"AWS_REGION"`

	// Statistics
	MinCountrySample int `mapstructure:"MIN_COUNTRY_SAMPLE"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables take precedence
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("SHUTDOWN_TIMEOUT", time.Second*30)
	viper.SetDefault("HTTP_TIMEOUT", time.Second*15)
	viper.SetDefault("FETCH_WINDOW", 50)
	viper.SetDefault("SYNC_STOP_DATE", "2023-01-01")
	viper.SetDefault("CACHE_PATH", "games_cache.json")
	viper.SetDefault("MIN_COUNTRY_SAMPLE", 5)
	viper.SetDefault("LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK if we're using env vars
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate required fields
	if config.FetchWindow <= 0 {
		return nil, fmt.Errorf("FETCH_WINDOW must be positive")
	}
	if _, err := config.ParsedStopDate(); err != nil {
		return nil, fmt.Errorf("SYNC_STOP_DATE must be YYYY-MM-DD: %w", err)
	}
	if config.BackupBucket != "" && config.AWSRegion == "" {
		return nil, fmt.Errorf("AWS_REGION is required when BACKUP_BUCKET is set")
	}

	return config, nil
}

// ParsedStopDate returns the pagination guardrail as a time.
func (c *Config) ParsedStopDate() (time.Time, error) {
	return time.Parse("2006-01-02", c.StopDate)
}

// RequireNCFAToken enforces the session credential. Only commands that reach
// the remote source need it; reading an existing cache does not.
func (c *Config) RequireNCFAToken() error {
	if c.NCFAToken == "" {
		return fmt.Errorf("NCFA_TOKEN is required")
	}
	return nil
}

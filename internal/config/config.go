package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	PostgresURL     string `mapstructure:"POSTGRES_URL"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	ServerPort      string `mapstructure:"SERVER_PORT"`
	BaseURL         string `mapstructure:"BASE_URL"`
	UserAgent       string `mapstructure:"USER_AGENT"`
	AcceptLanguage  string `mapstructure:"ACCEPT_LANGUAGE"`
	MaxPages        int    `mapstructure:"MAX_PAGES"`
	MaxRetries      int    `mapstructure:"MAX_RETRIES"`
	FetchTimeout    int    `mapstructure:"FETCH_TIMEOUT"`      // seconds
	RetryBackoff    int    `mapstructure:"RETRY_BACKOFF_MS"`   // initial wait
	RetryBackoffMax int    `mapstructure:"RETRY_BACKOFF_MAX_MS"`
	CacheTTL        int    `mapstructure:"CACHE_TTL_MINUTES"`  // result freshness window; 0 disables
}

// Load reads configuration from file or environment variables.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// Attempt to read the .env file, but don't fail if it's not present.
	// This allows configuration purely through environment variables in production.
	_ = viper.ReadInConfig()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BASE_URL", "https://www.amazon.com")
	viper.SetDefault("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36")
	viper.SetDefault("ACCEPT_LANGUAGE", "en-US,en;q=0.9")
	viper.SetDefault("MAX_PAGES", 5)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("FETCH_TIMEOUT", 10)
	viper.SetDefault("RETRY_BACKOFF_MS", 500)
	viper.SetDefault("RETRY_BACKOFF_MAX_MS", 5000)
	viper.SetDefault("CACHE_TTL_MINUTES", 30)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%dms) cannot exceed retry backoff max (%dms)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL cannot be negative")
	}
	return nil
}

// FetchTimeoutDuration returns the fetch timeout as a time.Duration.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// RetryBackoffDuration returns the initial retry wait as a time.Duration.
func (c *Config) RetryBackoffDuration() time.Duration {
	return time.Duration(c.RetryBackoff) * time.Millisecond
}

// RetryBackoffMaxDuration returns the retry wait ceiling as a time.Duration.
func (c *Config) RetryBackoffMaxDuration() time.Duration {
	return time.Duration(c.RetryBackoffMax) * time.Millisecond
}

// CacheTTLDuration returns the result freshness window as a time.Duration.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Minute
}

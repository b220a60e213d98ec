package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Provider struct {
		BaseURL        string `yaml:"base_url"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"provider"`
	Cache struct {
		QuoteTTLSeconds   int `yaml:"quote_ttl_seconds"`
		HistoryTTLSeconds int `yaml:"history_ttl_seconds"`
		SearchTTLSeconds  int `yaml:"search_ttl_seconds"`
		MaxEntries        int `yaml:"max_entries"`
	} `yaml:"cache"`
	Fetch struct {
		MaxConcurrent int `yaml:"max_concurrent"`
	} `yaml:"fetch"`
	Stream struct {
		IntervalSeconds int      `yaml:"interval_seconds"`
		Watchlist       []string `yaml:"watchlist"`
	} `yaml:"stream"`
	News struct {
		Topics      []string `yaml:"topics"`
		RefreshCron string   `yaml:"refresh_cron"`
	} `yaml:"news"`
	Jobs struct {
		WarmupCron string `yaml:"warmup_cron"`
	} `yaml:"jobs"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		cfg.Mongo.URI = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		cfg.Mongo.Database = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("QUOTE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.QuoteTTLSeconds = n
		}
	}

	// Defaults
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Mongo.Database == "" {
		cfg.Mongo.Database = "portfolio-tracker"
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Provider.TimeoutSeconds == 0 {
		cfg.Provider.TimeoutSeconds = 15
	}
	if cfg.Cache.QuoteTTLSeconds == 0 {
		cfg.Cache.QuoteTTLSeconds = 300 // 5 minutes, quotes go stale fast
	}
	if cfg.Cache.HistoryTTLSeconds == 0 {
		cfg.Cache.HistoryTTLSeconds = 1800 // 30 minutes, daily bars move slowly
	}
	if cfg.Cache.SearchTTLSeconds == 0 {
		cfg.Cache.SearchTTLSeconds = 86400 // 1 day, symbol listings rarely change
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 512
	}
	if cfg.Fetch.MaxConcurrent == 0 {
		cfg.Fetch.MaxConcurrent = 5
	}
	if cfg.Stream.IntervalSeconds == 0 {
		cfg.Stream.IntervalSeconds = 15
	}
	if len(cfg.Stream.Watchlist) == 0 {
		cfg.Stream.Watchlist = []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"}
	}
	if len(cfg.News.Topics) == 0 {
		cfg.News.Topics = []string{"stock market", "federal reserve", "earnings", "technology stocks"}
	}
	if cfg.News.RefreshCron == "" {
		cfg.News.RefreshCron = "0 7 * * *"
	}
	if cfg.Jobs.WarmupCron == "" {
		cfg.Jobs.WarmupCron = "30 6 * * 1-5"
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required (set MONGODB_URI)")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)")
	}
	if c.Provider.TimeoutSeconds <= 0 {
		return fmt.Errorf("provider.timeout_seconds must be positive")
	}
	if c.Fetch.MaxConcurrent <= 0 {
		return fmt.Errorf("fetch.max_concurrent must be positive")
	}
	if c.Stream.IntervalSeconds <= 0 {
		return fmt.Errorf("stream.interval_seconds must be positive")
	}
	return nil
}

// ProviderTimeout returns the outbound HTTP timeout for the quote provider.
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// QuoteTTL returns how long a cached live quote stays fresh.
func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.Cache.QuoteTTLSeconds) * time.Second
}

// HistoryTTL returns how long a cached price history stays fresh.
func (c *Config) HistoryTTL() time.Duration {
	return time.Duration(c.Cache.HistoryTTLSeconds) * time.Second
}

// SearchTTL returns how long cached search results stay fresh.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.Cache.SearchTTLSeconds) * time.Second
}

// StreamInterval returns the delay between live quote broadcasts.
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.Stream.IntervalSeconds) * time.Second
}

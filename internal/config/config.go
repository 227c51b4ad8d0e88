package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Etsy      EtsyConfig      `yaml:"etsy" mapstructure:"etsy"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scan      ScanConfig      `yaml:"scan" mapstructure:"scan"`
	Signals   SignalsConfig   `yaml:"signals" mapstructure:"signals"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EtsyConfig holds marketplace API settings.
type EtsyConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	AccessToken string  `yaml:"access_token" mapstructure:"access_token"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// AnthropicConfig holds Anthropic API settings for brief generation.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	Provider  string `yaml:"provider" mapstructure:"provider"` // "anthropic" or "mock"
}

// ScanConfig configures scan orchestration behavior.
type ScanConfig struct {
	SampleSize        int `yaml:"sample_size" mapstructure:"sample_size"`
	MaxReviewListings int `yaml:"max_review_listings" mapstructure:"max_review_listings"`
	ReviewsPerListing int `yaml:"reviews_per_listing" mapstructure:"reviews_per_listing"`
	CacheTTLHours     int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// SignalsConfig configures signal computation.
type SignalsConfig struct {
	BucketWidth float64 `yaml:"bucket_width" mapstructure:"bucket_width"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MARKETSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "market-scan.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("etsy.base_url", "https://openapi.etsy.com/v3")
	v.SetDefault("etsy.rate_per_sec", 5)
	v.SetDefault("etsy.max_retries", 3)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("anthropic.provider", "mock")
	v.SetDefault("scan.sample_size", 50)
	v.SetDefault("scan.max_review_listings", 10)
	v.SetDefault("scan.reviews_per_listing", 10)
	v.SetDefault("scan.cache_ttl_hours", 24)
	v.SetDefault("signals.bucket_width", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

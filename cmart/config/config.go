package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	internal "github.com/hexlane/convomart/cmart"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Database DatabaseConfig `mapstructure:"database"`
}

// BotConfig stores shop-facing settings.
type BotConfig struct {
	ShopName string `mapstructure:"shop_name"`
	// ReplyLanguage forces every reply into one language. Empty means match
	// the language of the customer's last message.
	ReplyLanguage string `mapstructure:"reply_language"`
}

// LLMConfig stores generator settings.
type LLMConfig struct {
	Provider     string  `mapstructure:"provider"` // "openai"
	Model        string  `mapstructure:"model"`
	APIKey       string  `mapstructure:"api_key"` // env: LLM_API_KEY
	MaxNewTokens int     `mapstructure:"max_new_tokens"`
	Temperature  float32 `mapstructure:"temperature"`
	TopP         float32 `mapstructure:"top_p"`
}

// EngineConfig stores generation-engine settings.
type EngineConfig struct {
	CacheEnabled        bool          `mapstructure:"cache_enabled"`
	CacheCapacity       int           `mapstructure:"cache_capacity"`
	CacheTTLSeconds     int           `mapstructure:"cache_ttl_seconds"`
	RateLimitEnabled    bool          `mapstructure:"rate_limit_enabled"`
	RateLimitCapacity   int           `mapstructure:"rate_limit_capacity"`
	RateLimitRefillRate time.Duration `mapstructure:"rate_limit_refill_rate"`
	EnableTracing       bool          `mapstructure:"enable_tracing"`
}

// DatabaseConfig stores embedded database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetDefault("bot.shop_name", "Convomart")
	viper.SetDefault("bot.reply_language", "")

	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	// Registering the key lets AutomaticEnv pick up LLM_API_KEY.
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.max_new_tokens", 512)
	viper.SetDefault("llm.temperature", 0.6)
	viper.SetDefault("llm.top_p", 0.9)

	viper.SetDefault("engine.cache_enabled", true)
	viper.SetDefault("engine.cache_capacity", 1000)
	viper.SetDefault("engine.cache_ttl_seconds", 300)
	viper.SetDefault("engine.rate_limit_enabled", true)
	viper.SetDefault("engine.rate_limit_capacity", 10)
	viper.SetDefault("engine.rate_limit_refill_rate", "1s")
	viper.SetDefault("engine.enable_tracing", true)

	viper.SetDefault("database.path", internal.DefaultDatabasePath)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults and env vars apply.
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) SetupTest() {
	// Viper keeps global state between loads.
	viper.Reset()
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := LoadConfig(filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Require().Error(err, "an explicit path that does not exist should fail")

	viper.Reset()
	cfg, err = LoadConfig("")
	s.Require().NoError(err)

	s.Equal("Convomart", cfg.Bot.ShopName)
	s.Equal("", cfg.Bot.ReplyLanguage)
	s.Equal("openai", cfg.LLM.Provider)
	s.Equal("gpt-4o-mini", cfg.LLM.Model)
	s.Equal(512, cfg.LLM.MaxNewTokens)
	s.InDelta(0.6, cfg.LLM.Temperature, 0.001)
	s.InDelta(0.9, cfg.LLM.TopP, 0.001)
	s.True(cfg.Engine.CacheEnabled)
	s.Equal(1000, cfg.Engine.CacheCapacity)
	s.Equal(300, cfg.Engine.CacheTTLSeconds)
	s.True(cfg.Engine.RateLimitEnabled)
	s.Equal(10, cfg.Engine.RateLimitCapacity)
	s.Equal(time.Second, cfg.Engine.RateLimitRefillRate)
	s.True(cfg.Engine.EnableTracing)
	s.NotEmpty(cfg.Database.Path)
}

func (s *ConfigTestSuite) TestLoadFromFile() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
bot:
  shop_name: "Luna Ceramics"
  reply_language: "Spanish"
llm:
  model: "gpt-4o"
  max_new_tokens: 256
engine:
  cache_enabled: false
  rate_limit_refill_rate: "500ms"
database:
  path: "./test.db"
`
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	s.Require().NoError(err)

	s.Equal("Luna Ceramics", cfg.Bot.ShopName)
	s.Equal("Spanish", cfg.Bot.ReplyLanguage)
	s.Equal("gpt-4o", cfg.LLM.Model)
	s.Equal(256, cfg.LLM.MaxNewTokens)
	s.False(cfg.Engine.CacheEnabled)
	s.Equal(500*time.Millisecond, cfg.Engine.RateLimitRefillRate)
	s.Equal("./test.db", cfg.Database.Path)

	// Unset keys keep their defaults.
	s.Equal("openai", cfg.LLM.Provider)
	s.Equal(10, cfg.Engine.RateLimitCapacity)
}

func (s *ConfigTestSuite) TestEnvOverride() {
	s.T().Setenv("LLM_API_KEY", "sk-test-123")
	s.T().Setenv("BOT_SHOP_NAME", "Env Shop")

	cfg, err := LoadConfig("")
	s.Require().NoError(err)

	s.Equal("sk-test-123", cfg.LLM.APIKey)
	s.Equal("Env Shop", cfg.Bot.ShopName)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

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
	Search     SearchConfig     `yaml:"search" mapstructure:"search"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	DeepSearch DeepSearchConfig `yaml:"deep_search" mapstructure:"deep_search"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Ranking    RankingConfig    `yaml:"ranking" mapstructure:"ranking"`
	Neo4j      Neo4jConfig      `yaml:"neo4j" mapstructure:"neo4j"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SearchConfig holds search provider settings.
type SearchConfig struct {
	Key        string  `yaml:"key" mapstructure:"key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	MaxResults int     `yaml:"max_results" mapstructure:"max_results"`
	RateQPS    float64 `yaml:"rate_qps" mapstructure:"rate_qps"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DeepSearchConfig configures the corporate-structure lookup.
type DeepSearchConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// EnrichConfig configures the orchestrator and qualification rule.
type EnrichConfig struct {
	MaxConcurrentEntities int      `yaml:"max_concurrent_entities" mapstructure:"max_concurrent_entities"`
	PrioritySectors       []string `yaml:"priority_sectors" mapstructure:"priority_sectors"`
	RevenueThreshold      float64  `yaml:"revenue_threshold" mapstructure:"revenue_threshold"`
}

// RankingConfig configures the ranking source.
type RankingConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Neo4jConfig holds graph database connection settings.
type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
}

// PricingConfig holds per-provider pricing rates.
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
	Search    SearchPricing           `yaml:"search" mapstructure:"search"`
}

// ModelPricing holds per-model token pricing (USD per million tokens).
type ModelPricing struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	CacheWriteMul float64 `yaml:"cache_write_mul" mapstructure:"cache_write_mul"`
	CacheReadMul  float64 `yaml:"cache_read_mul" mapstructure:"cache_read_mul"`
}

// SearchPricing holds search provider pricing.
type SearchPricing struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
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
	v.SetEnvPrefix("VALOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("search.base_url", "https://s.jina.ai")
	v.SetDefault("search.max_results", 5)
	v.SetDefault("search.rate_qps", 2.0)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("deep_search.base_url", "https://cnpj.biz")
	v.SetDefault("deep_search.timeout_secs", 2)
	v.SetDefault("enrich.max_concurrent_entities", 5)
	v.SetDefault("enrich.priority_sectors", []string{"Holding", "Petróleo", "Finanças"})
	v.SetDefault("enrich.revenue_threshold", 5000.0)
	v.SetDefault("ranking.timeout_secs", 30)
	v.SetDefault("neo4j.database", "")
	v.SetDefault("pricing.search.per_query", 0.005)

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

// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Crawler    CrawlerConfig    `yaml:"crawler" mapstructure:"crawler"`
	Schedule   ScheduleConfig   `yaml:"schedule" mapstructure:"schedule"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	MailVerify MailVerifyConfig `yaml:"mailverify" mapstructure:"mailverify"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Pinecone   PineconeConfig   `yaml:"pinecone" mapstructure:"pinecone"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// CrawlerConfig configures listing discovery and article fetching.
type CrawlerConfig struct {
	ListingURL         string   `yaml:"listing_url" mapstructure:"listing_url"`
	PageBudget         int      `yaml:"page_budget" mapstructure:"page_budget"`
	ListingTimeoutSecs int      `yaml:"listing_timeout_secs" mapstructure:"listing_timeout_secs"`
	ArticleTimeoutSecs int      `yaml:"article_timeout_secs" mapstructure:"article_timeout_secs"`
	FetchDelayMillis   int      `yaml:"fetch_delay_millis" mapstructure:"fetch_delay_millis"`
	MaxConcurrent      int      `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	ExcludePaths       []string `yaml:"exclude_paths" mapstructure:"exclude_paths"`
	UserAgent          string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// ScheduleConfig configures the run gate. Hours are local time; a window
// of 0..24 disables the active-hours gate.
type ScheduleConfig struct {
	MinIntervalMins int `yaml:"min_interval_mins" mapstructure:"min_interval_mins"`
	ActiveHourStart int `yaml:"active_hour_start" mapstructure:"active_hour_start"`
	ActiveHourEnd   int `yaml:"active_hour_end" mapstructure:"active_hour_end"`
}

// AnthropicConfig holds the extraction-model settings. Models are tried
// in order; an unavailable model falls through to the next.
type AnthropicConfig struct {
	Key    string   `yaml:"key" mapstructure:"key"`
	Models []string `yaml:"models" mapstructure:"models"`
}

// MailVerifyConfig holds mailbox-verification service settings.
type MailVerifyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OpenAIConfig holds embedding settings.
type OpenAIConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// PineconeConfig holds vector index settings.
type PineconeConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	IndexHost string `yaml:"index_host" mapstructure:"index_host"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// EnrichConfig configures the enrichment batch driver.
type EnrichConfig struct {
	BatchSize         int `yaml:"batch_size" mapstructure:"batch_size"`
	RecordDelayMillis int `yaml:"record_delay_millis" mapstructure:"record_delay_millis"`
}

// ServerConfig configures the HTTP trigger surface.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the
// environment (SEEDSCOUT_ prefix).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SEEDSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "seedscout.db")
	v.SetDefault("crawler.listing_url", "https://techcrunch.com/category/venture/")
	v.SetDefault("crawler.page_budget", 5)
	v.SetDefault("crawler.listing_timeout_secs", 45)
	v.SetDefault("crawler.article_timeout_secs", 25)
	v.SetDefault("crawler.fetch_delay_millis", 2000)
	v.SetDefault("crawler.max_concurrent", 3)
	v.SetDefault("crawler.exclude_paths", []string{"/category/*", "/tag/*", "/author/*", "/page/*", "/events/*", "/podcasts/*"})
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (compatible; SeedscoutBot/1.0)")
	v.SetDefault("schedule.min_interval_mins", 60)
	v.SetDefault("schedule.active_hour_start", 0)
	v.SetDefault("schedule.active_hour_end", 24)
	v.SetDefault("anthropic.models", []string{"claude-sonnet-4-5-20250929", "claude-haiku-4-5-20251001"})
	v.SetDefault("mailverify.base_url", "https://api.mailverify.io/v1")
	v.SetDefault("openai.model", "text-embedding-3-small")
	v.SetDefault("pinecone.namespace", "startups")
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.record_delay_millis", 1500)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Dump renders the effective configuration as YAML with credentials
// redacted, for `seedscout config`.
func (c Config) Dump() (string, error) {
	redacted := c
	if redacted.Anthropic.Key != "" {
		redacted.Anthropic.Key = "***"
	}
	if redacted.MailVerify.Key != "" {
		redacted.MailVerify.Key = "***"
	}
	if redacted.OpenAI.Key != "" {
		redacted.OpenAI.Key = "***"
	}
	if redacted.Pinecone.Key != "" {
		redacted.Pinecone.Key = "***"
	}
	out, err := yaml.Marshal(redacted)
	if err != nil {
		return "", eris.Wrap(err, "config: marshal yaml")
	}
	return string(out), nil
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

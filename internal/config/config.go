package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Market data (quote, profile, ratios, symbol news)
	MarketDataAPIKey  string `envconfig:"MARKETDATA_API_KEY"`
	MarketDataBaseURL string `envconfig:"MARKETDATA_BASE_URL"`

	// Independent news providers
	GNewsAPIKey     string `envconfig:"GNEWS_API_KEY"`
	NewsDataAPIKey  string `envconfig:"NEWSDATA_API_KEY"`
	MarketauxAPIKey string `envconfig:"MARKETAUX_API_KEY"`

	// Direct exchange data for market-suffixed symbols
	ExchangeBaseURL string `envconfig:"EXCHANGE_BASE_URL"`

	// Web augmentation
	SearchAPIKey   string        `envconfig:"SEARCH_API_KEY"`
	ScraperAPIKey  string        `envconfig:"SCRAPER_API_KEY"`
	DeepFetchLimit int           `envconfig:"DEEP_FETCH_LIMIT" default:"3"`
	FetchTimeout   time.Duration `envconfig:"FETCH_TIMEOUT" default:"8s"`

	ResolverTimeout time.Duration `envconfig:"RESOLVER_TIMEOUT" default:"4s"`

	// Hybrid retrieval tuning. The semantic/lexical balance is deliberately
	// configurable rather than hard-coded.
	TopK           int     `envconfig:"TOP_K" default:"10"`
	SemanticWeight float64 `envconfig:"SEMANTIC_WEIGHT" default:"1.0"`
	LexicalWeight  float64 `envconfig:"LEXICAL_WEIGHT" default:"0.85"`

	PipelineWorkers int `envconfig:"PIPELINE_WORKERS" default:"4"`

	// Evidence archive (optional)
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"factfin-evidence"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("FACTFIN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasMarketData() bool {
	return c.MarketDataAPIKey != ""
}

func (c *Config) HasWebSearch() bool {
	return c.SearchAPIKey != ""
}

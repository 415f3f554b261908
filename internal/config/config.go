package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"grimdex/internal/catalog"
	natsfeed "grimdex/internal/feed/nats"
	"grimdex/internal/logging"
	"grimdex/internal/searchindex"
	"grimdex/internal/syncer"
)

// CatalogConfig points at the MongoDB deployment backing the catalog.
type CatalogConfig struct {
	MongoURI string `yaml:"mongo_uri"`
	Database string `yaml:"database"`
}

func (c *CatalogConfig) ApplyDefaults() {
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://localhost:27017"
	}
	if c.Database == "" {
		c.Database = "grimdex"
	}
}

// AssetsConfig identifies the CMS asset project used to build image URLs.
type AssetsConfig struct {
	ProjectID string `yaml:"project_id"`
	Dataset   string `yaml:"dataset"`
	BaseURL   string `yaml:"base_url"`
}

func (c *AssetsConfig) ApplyDefaults() {
	if c.Dataset == "" {
		c.Dataset = "production"
	}
}

// SearchConfig carries the hosted search engine credentials.
type SearchConfig struct {
	AppID  string `yaml:"app_id"`
	APIKey string `yaml:"api_key"`
}

// WebhookConfig configures the HTTP listener for catalog webhooks.
type WebhookConfig struct {
	Addr   string `yaml:"addr"`
	Secret string `yaml:"secret"`
}

func (c *WebhookConfig) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Config holds the application configuration.
type Config struct {
	Logging logging.Config `yaml:"logging"`

	// Sources and sinks
	Catalog CatalogConfig `yaml:"catalog"`
	Assets  AssetsConfig  `yaml:"assets"`
	Search  SearchConfig  `yaml:"search"`

	// Pipeline
	Sync    syncer.Config   `yaml:"sync"`
	Feed    natsfeed.Config `yaml:"feed"`
	Webhook WebhookConfig   `yaml:"webhook"`

	// Per-kind index settings pushed by Configure.
	Settings map[catalog.Kind]searchindex.Settings `yaml:"settings"`
}

// LoadConfig loads configuration from files and environment variables.
// Order: defaults -> config.yml -> config.local.yml -> env overrides -> validate.
func LoadConfig() *Config {
	cfg := &Config{}

	loadFile("config/config.yml", cfg)
	loadFile("config/config.local.yml", cfg)

	cfg.Logging.ApplyDefaults()
	cfg.Catalog.ApplyDefaults()
	cfg.Assets.ApplyDefaults()
	cfg.Webhook.ApplyDefaults()
	cfg.Sync.ApplyDefaults()
	cfg.Feed.ApplyDefaults()

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	overrideString(&c.Catalog.MongoURI, "GRIMDEX_MONGO_URI")
	overrideString(&c.Catalog.Database, "GRIMDEX_MONGO_DATABASE")
	overrideString(&c.Search.AppID, "GRIMDEX_ALGOLIA_APP_ID")
	overrideString(&c.Search.APIKey, "GRIMDEX_ALGOLIA_API_KEY")
	overrideString(&c.Webhook.Secret, "GRIMDEX_WEBHOOK_SECRET")
	overrideString(&c.Feed.URL, "GRIMDEX_NATS_URL")
	overrideString(&c.Sync.IndexPrefix, "GRIMDEX_INDEX_PREFIX")
}

// Validate checks that the pieces every run needs are present. Service
// specific fields (webhook secret, NATS URL) are validated by the
// services that use them.
func (c *Config) Validate() error {
	if c.Catalog.MongoURI == "" {
		return fmt.Errorf("catalog.mongo_uri is required")
	}
	if c.Catalog.Database == "" {
		return fmt.Errorf("catalog.database is required")
	}
	if c.Search.AppID == "" {
		return fmt.Errorf("search.app_id is required")
	}
	if c.Search.APIKey == "" {
		return fmt.Errorf("search.api_key is required")
	}
	if c.Assets.ProjectID == "" {
		return fmt.Errorf("assets.project_id is required")
	}
	for kind := range c.Settings {
		if !kind.IsValid() {
			return fmt.Errorf("settings: unknown kind %q", kind)
		}
	}
	return nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

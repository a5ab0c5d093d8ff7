package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" json:"server" jsonschema:"description=Server configuration"`
	Database   DatabaseConfig   `yaml:"database" json:"database" jsonschema:"description=Database configuration"`
	Schedule   ScheduleConfig   `yaml:"schedule" json:"schedule" jsonschema:"description=Feed refresh scheduler configuration"`
	Fetch      FetchConfig      `yaml:"fetch" json:"fetch" jsonschema:"description=Feed fetching configuration"`
	Curation   CurationConfig   `yaml:"curation" json:"curation" jsonschema:"description=Article query configuration"`
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Full-text extraction configuration"`
	LLM        LLMConfig        `yaml:"llm" json:"llm" jsonschema:"description=LLM configuration for article summaries"`
}

// ServerConfig holds http server settings
type ServerConfig struct {
	Listen   string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server read and write timeout"`
	BaseURL  string        `yaml:"base_url" json:"base_url" jsonschema:"default=http://localhost:8080,description=Base URL used in generated RSS"`
	RSSLimit int           `yaml:"rss_limit" json:"rss_limit" jsonschema:"default=50,minimum=1,description=Maximum number of items in generated RSS"`
}

// DatabaseConfig holds record store settings
type DatabaseConfig struct {
	DSN             string `yaml:"dsn" json:"dsn" jsonschema:"default=file:feedflow.db?cache=shared&mode=rwc,description=Database connection string"`
	MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns" jsonschema:"default=10,description=Maximum number of open connections"`
	MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns" jsonschema:"default=5,description=Maximum number of idle connections"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" json:"conn_max_lifetime" jsonschema:"default=3600,description=Connection maximum lifetime in seconds"`
	NoSeed          bool   `yaml:"no_seed" json:"no_seed" jsonschema:"default=false,description=Start with empty collections instead of the bundled sample data"`
}

// ScheduleConfig holds feed refresh settings
type ScheduleConfig struct {
	Enabled        bool `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Refresh active feeds periodically"`
	UpdateInterval int  `yaml:"update_interval" json:"update_interval" jsonschema:"default=30,minimum=1,description=Feed update interval in minutes"`
	MaxWorkers     int  `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,minimum=1,description=Maximum concurrent feed fetches"`
}

// FetchConfig holds feed fetching settings
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Feed fetch timeout"`
	UserAgent string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=FeedFlow/1.0,description=User agent for feed requests"`
	MaxItems  int           `yaml:"max_items" json:"max_items" jsonschema:"default=0,minimum=0,description=Maximum entries ingested per fetch, 0 for all"`
}

// CurationConfig holds query engine settings
type CurationConfig struct {
	Locale string `yaml:"locale" json:"locale" jsonschema:"default=en,description=Collation locale for title sorting"`
}

// ExtractionConfig holds content extraction settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Enable full-text extraction of ingested articles"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per article"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=FeedFlow/1.0,description=User agent for HTTP requests"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=100,description=Minimum text length to consider valid"`
}

// LLMConfig holds settings of the OpenAI-compatible summarizer
type LLMConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Summarize ingested articles"`
	Endpoint     string        `yaml:"endpoint" json:"endpoint" jsonschema:"description=OpenAI-compatible API endpoint"`
	APIKey       string        `yaml:"api_key" json:"api_key" jsonschema:"description=API key (can use environment variable)"`
	Model        string        `yaml:"model" json:"model" jsonschema:"description=Model name (e.g. gpt-4o-mini or llama3)"`
	Temperature  float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.3,description=Temperature for response generation"`
	MaxTokens    int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=500,description=Maximum tokens in response"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Request timeout"`
	SystemPrompt string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for the LLM (optional)"`
	UseJSONMode  bool          `yaml:"use_json_mode" json:"use_json_mode" jsonschema:"default=false,description=Use JSON response format (not all models support this)"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// schema check is supplementary, warn only
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		log.Printf("[WARN] schema validation failed: %v", err)
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, used when no config file is given
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	// server
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.RSSLimit == 0 {
		c.Server.RSSLimit = 50
	}

	// database
	if c.Database.DSN == "" {
		c.Database.DSN = "file:feedflow.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 3600
	}

	// schedule
	if c.Schedule.UpdateInterval == 0 {
		c.Schedule.UpdateInterval = 30
	}
	if c.Schedule.MaxWorkers == 0 {
		c.Schedule.MaxWorkers = 5
	}

	// fetch
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "FeedFlow/1.0"
	}

	// curation
	if c.Curation.Locale == "" {
		c.Curation.Locale = "en"
	}

	// extraction
	if c.Extraction.Timeout == 0 {
		c.Extraction.Timeout = 30 * time.Second
	}
	if c.Extraction.UserAgent == "" {
		c.Extraction.UserAgent = "FeedFlow/1.0"
	}
	if c.Extraction.MinTextLength == 0 {
		c.Extraction.MinTextLength = 100
	}

	// llm
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.3
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if cfg.Server.RSSLimit < 1 {
		return fmt.Errorf("server.rss_limit must be at least 1")
	}

	if cfg.Schedule.UpdateInterval < 1 {
		return fmt.Errorf("schedule.update_interval must be at least 1 minute")
	}
	if cfg.Schedule.MaxWorkers < 1 {
		return fmt.Errorf("schedule.max_workers must be at least 1")
	}

	if cfg.Fetch.MaxItems < 0 {
		return fmt.Errorf("fetch.max_items must be non-negative")
	}

	if cfg.Extraction.Enabled {
		if cfg.Extraction.Timeout < time.Second {
			return fmt.Errorf("extraction timeout must be at least 1 second")
		}
		if cfg.Extraction.MinTextLength < 0 {
			return fmt.Errorf("extraction min_text_length must be non-negative")
		}
	}

	if cfg.LLM.Enabled {
		if cfg.LLM.Endpoint == "" {
			return fmt.Errorf("llm.endpoint is required")
		}
		if cfg.LLM.Model == "" {
			return fmt.Errorf("llm.model is required")
		}
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}

	return nil
}

// UpdateInterval returns the schedule interval as a duration
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Schedule.UpdateInterval) * time.Minute
}

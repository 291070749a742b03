package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Epiflow EpiflowConfig `yaml:"epiflow"`
	Logging LoggingConfig `yaml:"logging"`
	Source  SourceConfig  `yaml:"source"`
	Cache   CacheConfig   `yaml:"cache"`
}

type EpiflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type SourceConfig struct {
	UserAgent     string          `yaml:"user_agent"`
	Timeout       time.Duration   `yaml:"timeout"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	PopulationURL string          `yaml:"population_url"`
	HistoryURL    string          `yaml:"history_url"`
	FeedURL       string          `yaml:"feed_url"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type CacheConfig struct {
	// Dir is the cache directory. Empty means the user cache directory
	// for this application.
	Dir        string        `yaml:"dir"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

// Default returns the built-in configuration, pointing at the Dresden
// open-data portal and its ArcGIS feature service.
func Default() *Config {
	return &Config{
		Epiflow: EpiflowConfig{
			Name:    "epiflow",
			Version: "0.3.0",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Source: SourceConfig{
			Timeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 2,
				BurstSize:         3,
			},
			PopulationURL: "https://opendata.dresden.de/duva2ckan/files/de-sn-dresden-einwohner___md_34e_2020_-_3006_od_bevoelkerung_ab_stadtteil_hauptwohner_geschlecht_deutsche__auslaender/content",
			HistoryURL:    "https://opendata.dresden.de/duva2ckan/files/de-sn-dresden-corona_-_covid-19_-_fallzahlen_md1_dresden_2020/content",
			FeedURL:       "https://services.arcgis.com/ORpvigFPJUhb8RDF/arcgis/rest/services/corona_DD_7_Sicht/FeatureServer/0/query",
		},
		Cache: CacheConfig{
			StaleAfter: time.Hour,
		},
	}
}

// Load builds the effective configuration: the defaults, overlaid with
// the YAML file at path (when given), then environment overrides, then
// validation. An empty path means defaults only.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv("EPIFLOW_CACHE_DIR"); v != "" {
		config.Cache.Dir = strings.TrimSpace(v)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// UserAgent returns the User-Agent header value for upstream requests:
// the configured override, or name/version.
func (c *Config) UserAgent() string {
	if c.Source.UserAgent != "" {
		return c.Source.UserAgent
	}
	return fmt.Sprintf("%s/%s", c.Epiflow.Name, c.Epiflow.Version)
}

func validateConfig(cfg *Config) error {
	if cfg.Epiflow.Name == "" {
		return fmt.Errorf("epiflow.name is required")
	}

	if cfg.Epiflow.Version == "" {
		return fmt.Errorf("epiflow.version is required")
	}

	if cfg.Source.Timeout <= 0 {
		return fmt.Errorf("source.timeout must be greater than 0")
	}

	if cfg.Source.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("source.rate_limit.requests_per_second must be greater than 0")
	}
	if cfg.Source.RateLimit.BurstSize <= 0 {
		return fmt.Errorf("source.rate_limit.burst_size must be greater than 0")
	}

	if cfg.Source.PopulationURL == "" {
		return fmt.Errorf("source.population_url is required")
	}
	if cfg.Source.HistoryURL == "" {
		return fmt.Errorf("source.history_url is required")
	}
	if cfg.Source.FeedURL == "" {
		return fmt.Errorf("source.feed_url is required")
	}

	if cfg.Cache.StaleAfter <= 0 {
		return fmt.Errorf("cache.stale_after must be greater than 0")
	}

	return nil
}

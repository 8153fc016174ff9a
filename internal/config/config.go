package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

const (
	configPathEnv     = "CHAKRAWATCH_CONFIG"
	databasePathEnv   = "CHAKRAWATCH_DB_PATH"
	maxArticlesEnv    = "CHAKRAWATCH_MAX_ARTICLES"
	requestTimeoutEnv = "CHAKRAWATCH_REQUEST_TIMEOUT"
	logLevelEnv       = "CHAKRAWATCH_LOG_LEVEL"
)

// Fetch kinds understood by the scanner registry.
const (
	KindFeed = "feed"
	KindPage = "page"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ScraperConfig bounds the ingestion pipeline.
type ScraperConfig struct {
	Workers              int           `yaml:"workers"`
	MaxArticlesPerSource int           `yaml:"maxArticlesPerSource"`
	RequestTimeout       Duration      `yaml:"requestTimeout"`
	SummaryMaxLen        int           `yaml:"summaryMaxLen"`
}

// SchedulerConfig defines how often scrape runs are triggered.
type SchedulerConfig struct {
	Enabled  *bool    `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// IsEnabled treats an absent flag as enabled.
func (s SchedulerConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig describes a single external source and its fetch strategy.
type SourceConfig struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Kind     string            `yaml:"kind"`
	URL      string            `yaml:"url"`
	MaxItems int               `yaml:"maxItems"`
	Timeout  Duration          `yaml:"timeout"`
	Enabled  *bool             `yaml:"enabled"`
	Options  map[string]string `yaml:"options"`
}

// IsEnabled treats an absent flag as enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.applySourceDefaults()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(maxArticlesEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Scraper.MaxArticlesPerSource = n
		}
	}

	if v := os.Getenv(requestTimeoutEnv); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Scraper.RequestTimeout = Duration(d)
		}
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

// applySourceDefaults fills per-source caps and timeouts from the global
// scraper settings so adapters never see a zero bound.
func (c *Config) applySourceDefaults() {
	for i := range c.Sources {
		if c.Sources[i].MaxItems <= 0 {
			c.Sources[i].MaxItems = c.Scraper.MaxArticlesPerSource
		}
		if c.Sources[i].Timeout <= 0 {
			c.Sources[i].Timeout = c.Scraper.RequestTimeout
		}
		if c.Sources[i].Kind == "" {
			c.Sources[i].Kind = KindFeed
		}
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scraper.Workers > 0 {
		base.Scraper.Workers = override.Scraper.Workers
	}
	if override.Scraper.MaxArticlesPerSource > 0 {
		base.Scraper.MaxArticlesPerSource = override.Scraper.MaxArticlesPerSource
	}
	if override.Scraper.RequestTimeout > 0 {
		base.Scraper.RequestTimeout = override.Scraper.RequestTimeout
	}
	if override.Scraper.SummaryMaxLen > 0 {
		base.Scraper.SummaryMaxLen = override.Scraper.SummaryMaxLen
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Enabled != nil {
		base.Scheduler.Enabled = override.Scheduler.Enabled
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/chakrawatch.db"},
		Scraper: ScraperConfig{
			Workers:              4,
			MaxArticlesPerSource: 20,
			RequestTimeout:       Duration(30 * time.Second),
			SummaryMaxLen:        500,
		},
		Scheduler: SchedulerConfig{Interval: Duration(time.Hour)},
		Logging:   LoggingConfig{Level: "info"},
		Sources: []SourceConfig{
			{
				ID:   "security_affairs",
				Name: "Security Affairs",
				Kind: KindFeed,
				URL:  "https://securityaffairs.com/feed",
			},
			{
				ID:   "bleeping_computer",
				Name: "BleepingComputer",
				Kind: KindFeed,
				URL:  "https://www.bleepingcomputer.com/feed/",
			},
			{
				ID:   "hacker_news_rss",
				Name: "The Hacker News",
				Kind: KindFeed,
				URL:  "https://feeds.feedburner.com/TheHackersNews",
			},
			{
				ID:   "cyware",
				Name: "Cyware",
				Kind: KindFeed,
				URL:  "https://cyware.com/allnews.rss",
			},
		},
	}
}

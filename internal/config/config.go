// Package config loads the YAML service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration decodes YAML values like "30s" or "15m".
type Duration time.Duration

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

// Std returns the native duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// TelegramConfig controls the notification bot.
type TelegramConfig struct {
	// Enabled turns the bot and broadcasts on. The pipeline runs without
	// it, publishing feeds only.
	Enabled bool `yaml:"enabled"`
	// Token is the Bot API token.
	Token string `yaml:"token"`
	// AdminChatID receives operational reports. Zero disables them.
	AdminChatID int64 `yaml:"admin_chat_id"`
	// FutureOnly suppresses notifications whose changes touch only
	// events that already started.
	FutureOnly bool `yaml:"future_only"`
}

// StorageConfig selects the subscriber persistence backend.
type StorageConfig struct {
	// DatabasePath is the sqlite file. Empty selects the JSON file store.
	DatabasePath string `yaml:"database_path"`
	// PersistDir holds subscribers.json for the file store.
	PersistDir string `yaml:"persist_dir"`
}

// Config is the top-level service configuration.
type Config struct {
	// Groups are the timetable group names to sync, e.g. "104".
	Groups []string `yaml:"groups"`

	// Timezone is the IANA zone the timetable is interpreted in.
	Timezone string `yaml:"timezone"`

	// ScrapeURL is the scraper sidecar endpoint returning raw rows.
	ScrapeURL string `yaml:"scrape_url"`

	// ScrapeTimeout bounds a single fetch.
	ScrapeTimeout Duration `yaml:"scrape_timeout"`

	// SyncInterval is the pause between sync cycles per group.
	SyncInterval Duration `yaml:"sync_interval"`

	// DataRoot is where snapshots and published feeds live.
	DataRoot string `yaml:"data_root"`

	// Listen is the HTTP listen address for the feed server.
	Listen string `yaml:"listen"`

	// BasePath prefixes the feed routes, e.g. "/timetable".
	BasePath string `yaml:"base_path"`

	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
}

// Load reads and validates the configuration at path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Timezone == "" {
		c.Timezone = "Europe/Moscow"
	}
	if c.ScrapeTimeout <= 0 {
		c.ScrapeTimeout = Duration(30 * time.Second)
	}
	if c.SyncInterval <= 0 {
		c.SyncInterval = Duration(15 * time.Minute)
	}
	if c.DataRoot == "" {
		c.DataRoot = "./data"
	}
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.BasePath == "" {
		c.BasePath = "/timetable"
	}
	if c.Storage.PersistDir == "" {
		c.Storage.PersistDir = c.DataRoot
	}
}

// Validate checks the fields a running service cannot do without.
func (c *Config) Validate() error {
	if len(c.Groups) == 0 {
		return errors.New("config: at least one group is required")
	}
	if c.ScrapeURL == "" {
		return errors.New("config: scrape_url is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	if c.BasePath == "" || c.BasePath[0] != '/' {
		return fmt.Errorf("config: base_path must start with a slash, got %q", c.BasePath)
	}
	if c.Telegram.Enabled && c.Telegram.Token == "" {
		return errors.New("config: telegram.token is required when telegram.enabled")
	}
	return nil
}

// Location resolves the configured timezone. Validate has already
// checked it parses.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

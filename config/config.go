// Package config holds the YAML configuration of the action calendar
// service: load with first-run defaults, normalize, and atomic save.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/warp/action-calendar/schedule"
	"github.com/warp/action-calendar/schedule/blob"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// StorageConfig selects the blob store behind the action store.
type StorageConfig struct {
	// Driver is one of memory, file, sqlite.
	Driver string `yaml:"driver" json:"driver"`
	// Path is the directory (file) or database file (sqlite).
	Path string `yaml:"path" json:"path"`
	// Key is the blob key the store is persisted under.
	Key string `yaml:"key" json:"key"`
}

// RetentionConfig describes the retention rule and what writes do with
// records it refuses.
type RetentionConfig struct {
	// Categories are kept, case-insensitively. Empty keeps every category.
	Categories []string `yaml:"categories" json:"categories"`
	KeepLegacy bool     `yaml:"keep_legacy" json:"keep_legacy"`
	// Mode is "reject" (refuse the write) or "drop" (accept, then drop on save).
	Mode string `yaml:"mode" json:"mode"`
}

type UpcomingConfig struct {
	Limit                int  `yaml:"limit" json:"limit"`
	DaysAhead            int  `yaml:"days_ahead" json:"days_ahead"`
	TruncateBeforeFilter bool `yaml:"truncate_before_filter" json:"truncate_before_filter"`
}

type CompactionConfig struct {
	// Schedule is a 5-field cron expression. Empty disables scheduled compaction.
	Schedule string `yaml:"schedule" json:"schedule"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // json or console
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
}

type ExportConfig struct {
	Name         string `yaml:"name" json:"name"`
	EventMinutes int    `yaml:"event_minutes" json:"event_minutes"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone date keys and times of day are read in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Retention  RetentionConfig  `yaml:"retention" json:"retention"`
	Upcoming   UpcomingConfig   `yaml:"upcoming" json:"upcoming"`
	Compaction CompactionConfig `yaml:"compaction" json:"compaction"`
	Log        LogConfig        `yaml:"log" json:"log"`
	CORS       CORSConfig       `yaml:"cors" json:"cors"`
	Export     ExportConfig     `yaml:"export" json:"export"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:    "127.0.0.1:8080",
		Timezone:  "Local",
		WeekStart: "sunday",
		Storage: StorageConfig{
			Driver: DriverSQLite,
			Path:   "./data/actions.db",
			Key:    schedule.DefaultBlobKey,
		},
		Retention: RetentionConfig{
			Categories: []string{},
			Mode:       string(schedule.RetentionReject),
		},
		Upcoming: UpcomingConfig{
			Limit:     schedule.DefaultUpcomingLimit,
			DaysAhead: schedule.DefaultUpcomingDaysAhead,
		},
		Compaction: CompactionConfig{Schedule: "0 3 * * *"},
		Log:        LogConfig{Level: "info", Format: "json"},
		CORS:       CORSConfig{AllowedOrigins: []string{"*"}},
		Export:     ExportConfig{Name: "Scheduled actions", EventMinutes: 30},
	}
}

// Normalize fills in missing/zero values with defaults so partially-filled
// configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	if c.WeekStart != "monday" {
		c.WeekStart = "sunday"
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	if c.Storage.Path == "" && c.Storage.Driver != DriverMemory {
		if c.Storage.Driver == DriverFile {
			c.Storage.Path = "./data"
		} else {
			c.Storage.Path = def.Storage.Path
		}
	}
	if c.Storage.Key == "" {
		c.Storage.Key = def.Storage.Key
	}

	if c.Retention.Categories == nil {
		c.Retention.Categories = []string{}
	}
	if c.Retention.Mode == "" {
		c.Retention.Mode = def.Retention.Mode
	}

	if c.Upcoming.Limit <= 0 {
		c.Upcoming.Limit = def.Upcoming.Limit
	}
	if c.Upcoming.DaysAhead <= 0 {
		c.Upcoming.DaysAhead = def.Upcoming.DaysAhead
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.CORS.AllowedOrigins == nil {
		c.CORS.AllowedOrigins = def.CORS.AllowedOrigins
	}
	if c.Export.Name == "" {
		c.Export.Name = def.Export.Name
	}
	if c.Export.EventMinutes <= 0 {
		c.Export.EventMinutes = def.Export.EventMinutes
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case DriverMemory, DriverFile, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q: expected memory, file or sqlite", c.Storage.Driver))
	}
	if _, err := schedule.ParseRetentionMode(c.Retention.Mode); err != nil {
		errs = append(errs, fmt.Errorf("retention.mode: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Weekday resolves WeekStart.
func (c *Config) Weekday() time.Weekday {
	if strings.EqualFold(c.WeekStart, "monday") {
		return time.Monday
	}
	return time.Sunday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: write a default config (0600) and return it.
//   - If the file exists: unmarshal, normalize, validate.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Save normalizes cfg and writes it atomically to path with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return blob.WriteFileAtomic(path, data, 0o600)
}

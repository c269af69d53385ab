// Package config loads ~/.salesdeck/config.toml and applies SALESDECK_*
// environment overrides on top of it.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	dark "github.com/thiagokokada/dark-mode-go"

	"github.com/Marcin0203/1und1-recruitment-task/internal/logging"
	"github.com/Marcin0203/1und1-recruitment-task/internal/source"
)

const (
	// FileName is the config file inside the data directory.
	FileName = "config.toml"

	// DirName is the data directory below $HOME.
	DirName = ".salesdeck"

	// DatabaseFileName is the default sqlite directory store.
	DatabaseFileName = "salesmen.db"

	defaultDebounceMS = 1000
)

// Config is the user configuration.
type Config struct {
	// Theme sets the color scheme: "dark" (default), "light", or "system"
	Theme string `toml:"theme"`

	Search SearchSettings `toml:"search"`
	Source SourceSettings `toml:"source"`
	Logs   LogSettings    `toml:"logs"`

	// Color forces a terminal color profile (truecolor, 256, 16, none).
	// Environment only.
	Color string `toml:"-"`
}

// SearchSettings tunes the incremental search.
type SearchSettings struct {
	// DebounceMS is how long input must be quiet before filtering (default: 1000)
	DebounceMS int `toml:"debounce_ms"`
}

// SourceSettings selects where the salesman directory comes from.
type SourceSettings struct {
	// Kind is "builtin" (default), "file" or "sqlite"
	Kind string `toml:"kind"`

	// Path is the directory file or database. For sqlite it defaults to
	// salesmen.db in the data directory.
	Path string `toml:"path"`

	// PollIntervalMS is the sqlite change poll interval (default: 2000)
	PollIntervalMS int `toml:"poll_interval_ms"`

	// ReloadPerSecond caps file re-reads (default: 2)
	ReloadPerSecond float64 `toml:"reload_per_second"`
}

// LogSettings defines debug log configuration
type LogSettings struct {
	// Enabled turns on debug.log. SALESDECK_DEBUG=1 enables it too.
	Enabled bool `toml:"enabled"`

	// Level sets the minimum log level: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `toml:"level"`

	// Format sets the log format: "json" (default) or "text"
	Format string `toml:"format"`

	// MaxSizeMB is the max size in MB for debug.log before rotation
	// Default: 10
	MaxSizeMB int `toml:"max_size_mb"`

	// MaxBackups is the number of rotated debug.log files to keep
	// Default: 5
	MaxBackups int `toml:"max_backups"`

	// MaxAgeDays is the number of days to keep rotated debug logs
	// Default: 10
	MaxAgeDays int `toml:"max_age_days"`

	// Compress enables gzip compression for rotated debug logs
	Compress bool `toml:"compress"`

	// RingBufferMB is the in-memory ring buffer size in MB for crash dumps
	// Default: 1
	RingBufferMB int `toml:"ring_buffer_mb"`

	// AggregateIntervalSecs is the event aggregation flush interval in seconds
	// Default: 30
	AggregateIntervalSecs int `toml:"aggregate_interval_secs"`
}

// envOverrides are read after the file and win over it.
type envOverrides struct {
	Home       string `env:"SALESDECK_HOME"`
	Theme      string `env:"SALESDECK_THEME"`
	DebounceMS int    `env:"SALESDECK_DEBOUNCE_MS"`
	Source     string `env:"SALESDECK_SOURCE"`
	SourcePath string `env:"SALESDECK_SOURCE_PATH"`
	LogLevel   string `env:"SALESDECK_LOG_LEVEL"`
	Debug      bool   `env:"SALESDECK_DEBUG"`
	Color      string `env:"SALESDECK_COLOR"`
}

func parseEnv() (envOverrides, error) {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return o, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

func (o envOverrides) apply(c *Config) {
	if o.Theme != "" {
		c.Theme = o.Theme
	}
	if o.DebounceMS > 0 {
		c.Search.DebounceMS = o.DebounceMS
	}
	if o.Source != "" {
		c.Source.Kind = o.Source
	}
	if o.SourcePath != "" {
		c.Source.Path = o.SourcePath
	}
	if o.LogLevel != "" {
		c.Logs.Level = o.LogLevel
	}
	if o.Debug {
		c.Logs.Enabled = true
	}
	c.Color = o.Color
}

// Dir returns the data directory: $SALESDECK_HOME or ~/.salesdeck.
func Dir() (string, error) {
	// A malformed unrelated variable must not hide SALESDECK_HOME.
	if o, _ := parseEnv(); o.Home != "" {
		return o.Home, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

var (
	cache   *Config
	cacheMu sync.RWMutex
)

// Load reads the config once and caches it. A missing file yields the
// defaults. On a parse error the defaults (with env overrides) are cached
// and the error is returned so the caller can show it.
func Load() (*Config, error) {
	cacheMu.RLock()
	if cache != nil {
		defer cacheMu.RUnlock()
		return cache, nil
	}
	cacheMu.RUnlock()

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if cache != nil {
		return cache, nil
	}

	cfg, err := load()
	cache = cfg
	return cache, err
}

func load() (*Config, error) {
	overrides, envErr := parseEnv()

	cfg := &Config{}
	var fileErr error
	if path, err := Path(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				cfg = &Config{}
				fileErr = fmt.Errorf("config.toml parse error: %w", err)
			}
		}
	}

	overrides.apply(cfg)

	if fileErr != nil {
		return cfg, fileErr
	}
	return cfg, envErr
}

// Reload drops the cache and loads again.
func Reload() (*Config, error) {
	ClearCache()
	return Load()
}

// ClearCache forgets the cached config. The next Load reads from disk.
func ClearCache() {
	cacheMu.Lock()
	cache = nil
	cacheMu.Unlock()
}

// Save writes cfg to config.toml atomically (temp file, fsync, rename) and
// clears the cache.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# salesdeck configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	// Rename still protects the old file if fsync fails.
	_ = syncFile(tmpPath)

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize config save: %w", err)
	}

	ClearCache()
	return nil
}

func syncFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// GetTheme returns the configured theme, defaulting to "dark".
func (c *Config) GetTheme() string {
	switch c.Theme {
	case "dark", "light", "system":
		return c.Theme
	default:
		return "dark"
	}
}

// isDarkMode is swapped in tests.
var isDarkMode = dark.IsDarkMode

// ResolveTheme resolves the theme to "dark" or "light". "system" asks the
// OS and falls back to "dark" when detection fails.
func (c *Config) ResolveTheme() string {
	theme := c.GetTheme()
	if theme != "system" {
		return theme
	}
	isDark, err := isDarkMode()
	if err != nil || isDark {
		return "dark"
	}
	return "light"
}

// QuietPeriod returns the search debounce with its default applied.
func (c *Config) QuietPeriod() time.Duration {
	ms := c.Search.DebounceMS
	if ms <= 0 {
		ms = defaultDebounceMS
	}
	return time.Duration(ms) * time.Millisecond
}

// SourceOptions maps the [source] section onto source.Options. dataDir
// supplies the default sqlite database location.
func (c *Config) SourceOptions(dataDir string) source.Options {
	opts := source.Options{
		Kind:            source.Kind(c.Source.Kind),
		Path:            c.Source.Path,
		PollInterval:    time.Duration(c.Source.PollIntervalMS) * time.Millisecond,
		ReloadPerSecond: c.Source.ReloadPerSecond,
	}
	if opts.Kind == source.KindSQLite && opts.Path == "" {
		opts.Path = filepath.Join(dataDir, DatabaseFileName)
	}
	return opts
}

// LoggingConfig maps the [logs] section onto logging.Config.
func (c *Config) LoggingConfig(dataDir string) logging.Config {
	ringMB := c.Logs.RingBufferMB
	if ringMB <= 0 {
		ringMB = 1
	}
	return logging.Config{
		LogDir:                dataDir,
		Level:                 c.Logs.Level,
		Format:                c.Logs.Format,
		MaxSizeMB:             c.Logs.MaxSizeMB,
		MaxBackups:            c.Logs.MaxBackups,
		MaxAgeDays:            c.Logs.MaxAgeDays,
		Compress:              c.Logs.Compress,
		RingBufferSize:        ringMB * 1024 * 1024,
		AggregateIntervalSecs: c.Logs.AggregateIntervalSecs,
		Enabled:               c.Logs.Enabled,
	}
}

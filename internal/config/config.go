// Package config loads skriptls settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultParseURL   = "http://localhost:8020/parse"
	DefaultCatalogURL = "https://skripthub.net/api/v1/addonsyntaxlist/"
	DefaultDebounce   = 200 * time.Millisecond
)

// Environment variables overriding the file.
const (
	EnvParseURL   = "SKRIPTLS_PARSE_URL"
	EnvCatalogURL = "SKRIPTLS_CATALOG_URL"
	EnvLogLevel   = "SKRIPTLS_LOG_LEVEL"
	EnvLogFile    = "SKRIPTLS_LOG_FILE"
)

// Duration is a time.Duration written as a Go duration string ("200ms").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the full configuration.
type Config struct {
	Parse   ParseConfig   `toml:"parse"`
	Catalog CatalogConfig `toml:"catalog"`
	Log     LogConfig     `toml:"log"`
}

// ParseConfig configures the parse service.
type ParseConfig struct {
	URL      string   `toml:"url"`
	Debounce Duration `toml:"debounce"`
	Timeout  Duration `toml:"timeout"` // zero disables the timeout
}

// CatalogConfig configures the syntax catalog.
type CatalogConfig struct {
	URL      string `toml:"url"`
	Disabled bool   `toml:"disabled"`
	CacheDir string `toml:"cache_dir"`
}

// LogConfig configures logging. An empty File logs to stderr.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Parse: ParseConfig{
			URL:      DefaultParseURL,
			Debounce: Duration{DefaultDebounce},
		},
		Catalog: CatalogConfig{
			URL: DefaultCatalogURL,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/skriptls/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "skriptls", "config.toml"), nil
}

// Load returns the defaults overlaid with the file at path and then the
// environment. An empty path skips the file; a missing file is an error
// only when required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			if required || !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides settings from environment variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvParseURL); ok && v != "" {
		c.Parse.URL = v
	}
	if v, ok := lookup(EnvCatalogURL); ok && v != "" {
		c.Catalog.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		c.Log.File = v
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := ValidateURL(c.Parse.URL); err != nil {
		return fmt.Errorf("parse.url: %w", err)
	}
	if !c.Catalog.Disabled {
		if err := ValidateURL(c.Catalog.URL); err != nil {
			return fmt.Errorf("catalog.url: %w", err)
		}
	}
	if c.Parse.Debounce.Duration < 0 {
		return errors.New("parse.debounce: must not be negative")
	}
	if c.Parse.Timeout.Duration < 0 {
		return errors.New("parse.timeout: must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q is not an http(s) URL", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	return nil
}

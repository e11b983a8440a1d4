// Package config handles loading and resolving appmeta configuration.
// Resolution order (later wins):
//  1. built-in defaults
//  2. config.json in the current working directory
//  3. environment variables (APPMETA_COUNTRY, APPMETA_LANG, APPMETA_PROXY, APPMETA_DB_PATH)
//  4. CLI flags, applied by the cmd package after Load
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/derickschaefer/appmeta/internal/appstore"
)

const (
	DefaultConfigFile  = "config.json"
	DefaultFormat      = "table"
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
	DefaultRate        = 0 // unthrottled, one attempt per request
	DefaultCountry     = appstore.DefaultCountry
	DefaultAddr        = ":8080"
	EnvCountry         = "APPMETA_COUNTRY"
	EnvLang            = "APPMETA_LANG"
	EnvProxy           = "APPMETA_PROXY"
	EnvDBPath          = "APPMETA_DB_PATH"
)

// File is the on-disk representation of config.json.
type File struct {
	DefaultFormat string `json:"default_format"`
	Timeout       string `json:"timeout"`
	Concurrency   int    `json:"concurrency"`
	Rate          int    `json:"rate"`
	Country       string `json:"country"`
	Lang          string `json:"lang,omitempty"`
	Proxy         string `json:"proxy,omitempty"`
	UserAgent     string `json:"user_agent,omitempty"`
	LookupURL     string `json:"lookup_url,omitempty"`
	WebURL        string `json:"web_url,omitempty"`
	APIURL        string `json:"api_url,omitempty"`
	DBPath        string `json:"db_path,omitempty"`
	Addr          string `json:"addr,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	Format      string
	Timeout     time.Duration
	Concurrency int
	Rate        int // max requests per second for throttled calls; 0 = off
	Country     string
	Lang        string
	Proxy       string
	UserAgent   string
	LookupURL   string
	WebURL      string
	APIURL      string
	DBPath      string
	Addr        string
	ConfigPath  string // path of the config.json that was loaded (empty if none found)

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Load resolves configuration from defaults, config.json and environment.
func Load() (*Config, error) {
	cfg := &Config{
		Format:      DefaultFormat,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Rate:        DefaultRate,
		Country:     DefaultCountry,
		LookupURL:   appstore.DefaultLookupURL,
		WebURL:      appstore.DefaultWebURL,
		APIURL:      appstore.DefaultAPIURL,
		Addr:        DefaultAddr,
	}

	// Layer 1: config.json. A missing file is fine; a broken one is not.
	f, path, err := loadFile()
	switch {
	case err == nil:
		applyFile(cfg, f, path)
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	// Layer 2: environment
	if v := os.Getenv(EnvCountry); v != "" {
		cfg.Country = v
	}
	if v := os.Getenv(EnvLang); v != "" {
		cfg.Lang = v
	}
	if v := os.Getenv(EnvProxy); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}

	// Set default DB path if still unset
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.DBPath = filepath.Join(home, ".appmeta", "appmeta.db")
		}
	}

	cfg.Country = strings.ToLower(cfg.Country)
	return cfg, nil
}

// Validate returns an error if a resolved value is unusable.
func (c *Config) Validate() error {
	if len(c.Country) != 2 {
		return fmt.Errorf("invalid country %q: expected a two-letter store code such as us or gb", c.Country)
	}
	if c.Rate < 0 {
		return fmt.Errorf("invalid rate %d: must be zero (off) or positive", c.Rate)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("invalid concurrency %d: must be at least 1", c.Concurrency)
	}
	return nil
}

// ClientOptions converts the config into appstore client options.
func (c *Config) ClientOptions() appstore.Options {
	return appstore.Options{
		LookupURL: c.LookupURL,
		WebURL:    c.WebURL,
		APIURL:    c.APIURL,
		Timeout:   c.Timeout,
		Proxy:     c.Proxy,
		UserAgent: c.UserAgent,
		Debug:     c.Debug,
	}
}

// loadFile attempts to read config.json from the current working directory.
// The returned error wraps os.ErrNotExist when there is no file.
func loadFile() (*File, string, error) {
	path, err := filepath.Abs(DefaultConfigFile)
	if err != nil {
		return nil, "", err
	}
	f, err := ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

// ReadFile parses a config file at path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config.json not found at %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("reading config.json: %w", err)
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config.json: %w", err)
	}
	return &f, nil
}

// applyFile copies values from a parsed File into cfg,
// skipping any fields that are zero/empty.
func applyFile(cfg *Config, f *File, path string) {
	cfg.ConfigPath = path
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		if d, err := time.ParseDuration(f.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.Country != "" {
		cfg.Country = f.Country
	}
	if f.Lang != "" {
		cfg.Lang = f.Lang
	}
	if f.Proxy != "" {
		cfg.Proxy = f.Proxy
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.LookupURL != "" {
		cfg.LookupURL = f.LookupURL
	}
	if f.WebURL != "" {
		cfg.WebURL = f.WebURL
	}
	if f.APIURL != "" {
		cfg.APIURL = f.APIURL
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.Addr != "" {
		cfg.Addr = f.Addr
	}
}

// Template returns a File populated with sensible defaults, suitable for
// writing an initial config.json via `appmeta config init`.
func Template() File {
	return File{
		DefaultFormat: DefaultFormat,
		Timeout:       "30s",
		Concurrency:   DefaultConcurrency,
		Rate:          DefaultRate,
		Country:       DefaultCountry,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

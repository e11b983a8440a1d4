package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/derickschaefer/appmeta/internal/appstore"
	"github.com/derickschaefer/appmeta/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// chdir changes the working directory to dir for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// writeConfig writes a config.json into dir and changes the working directory
// to dir so config.Load() finds it.
func writeConfig(t *testing.T, dir string, f config.File) {
	t.Helper()
	if err := config.WriteFile(filepath.Join(dir, "config.json"), f); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

// clearEnv unsets every APPMETA_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvCountry, "")
	t.Setenv(config.EnvLang, "")
	t.Setenv(config.EnvProxy, "")
	t.Setenv(config.EnvDBPath, "")
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != config.DefaultFormat {
		t.Errorf("Format: expected %q, got %q", config.DefaultFormat, cfg.Format)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout: expected %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
	if cfg.Rate != 0 {
		t.Errorf("Rate: throttling should be off by default, got %d", cfg.Rate)
	}
	if cfg.Country != "us" {
		t.Errorf("Country: expected us, got %q", cfg.Country)
	}
	if cfg.LookupURL != appstore.DefaultLookupURL || cfg.WebURL != appstore.DefaultWebURL || cfg.APIURL != appstore.DefaultAPIURL {
		t.Errorf("endpoint defaults: %q %q %q", cfg.LookupURL, cfg.WebURL, cfg.APIURL)
	}
	if cfg.DBPath == "" {
		t.Error("DBPath should have a default (home dir based) value")
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty without config.json, got %q", cfg.ConfigPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// ─── Config file loading ──────────────────────────────────────────────────────

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	writeConfig(t, dir, config.File{
		DefaultFormat: "json",
		Timeout:       "60s",
		Concurrency:   2,
		Rate:          3,
		Country:       "GB",
		Lang:          "en-gb",
		WebURL:        "https://web.example.com",
		DBPath:        "/tmp/test.db",
	})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("Format: expected json, got %q", cfg.Format)
	}
	if cfg.Timeout.String() != "1m0s" {
		t.Errorf("Timeout: expected 1m0s, got %q", cfg.Timeout.String())
	}
	if cfg.Concurrency != 2 || cfg.Rate != 3 {
		t.Errorf("Concurrency/Rate: got %d/%d", cfg.Concurrency, cfg.Rate)
	}
	if cfg.Country != "gb" {
		t.Errorf("Country should be lower-cased, got %q", cfg.Country)
	}
	if cfg.Lang != "en-gb" || cfg.WebURL != "https://web.example.com" || cfg.DBPath != "/tmp/test.db" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !strings.HasSuffix(cfg.ConfigPath, "config.json") {
		t.Errorf("ConfigPath: got %q", cfg.ConfigPath)
	}
}

func TestLoadInvalidTimeoutIgnored(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{Timeout: "soon"})

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("invalid timeout should keep default, got %v", cfg.Timeout)
	}
}

func TestLoadBrokenFileFails(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Error("expected error for malformed config.json")
	}
}

// ─── Environment ──────────────────────────────────────────────────────────────

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeConfig(t, t.TempDir(), config.File{Country: "gb", Proxy: "http://file:8080"})
	t.Setenv(config.EnvCountry, "DE")
	t.Setenv(config.EnvProxy, "http://env:8080")
	t.Setenv(config.EnvDBPath, "/tmp/env.db")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Country != "de" {
		t.Errorf("Country: expected de from env, got %q", cfg.Country)
	}
	if cfg.Proxy != "http://env:8080" {
		t.Errorf("Proxy: expected env value, got %q", cfg.Proxy)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath: expected env value, got %q", cfg.DBPath)
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidateRejectsBadValues(t *testing.T) {
	base := config.Config{Country: "us", Concurrency: 1}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	bad := base
	bad.Country = "usa"
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "country") {
		t.Errorf("expected country error, got %v", err)
	}

	bad = base
	bad.Rate = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative rate")
	}

	bad = base
	bad.Concurrency = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero concurrency")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := config.Config{APIURL: "https://api", Proxy: "http://p:1", Debug: true}
	opts := cfg.ClientOptions()
	if opts.APIURL != "https://api" || opts.Proxy != "http://p:1" || !opts.Debug {
		t.Errorf("ClientOptions: %+v", opts)
	}
}

// ─── WriteFile / Template ─────────────────────────────────────────────────────

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	want := config.File{DefaultFormat: "md", Timeout: "5s", Concurrency: 3, Rate: 2, Country: "fr"}
	if err := config.WriteFile(path, want); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := config.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if *got != want {
		t.Errorf("round trip: got %+v, want %+v", *got, want)
	}
}

func TestWriteFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := config.WriteFile(path, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestTemplateDefaults(t *testing.T) {
	tmpl := config.Template()
	if tmpl.Country != "us" || tmpl.DefaultFormat != "table" || tmpl.Timeout != "30s" {
		t.Errorf("template: %+v", tmpl)
	}
	b, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(b), "proxy") {
		t.Errorf("empty optional keys should be omitted: %s", b)
	}
}

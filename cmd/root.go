// Package cmd implements the appmeta CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/appmeta/internal/app"
	"github.com/derickschaefer/appmeta/internal/config"
	"github.com/derickschaefer/appmeta/internal/render"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	Format      string
	Out         string
	Timeout     string
	Concurrency int
	Rate        int
	Country     string
	Lang        string
	Proxy       string
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `appmeta` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "appmeta",
	Short: "appmeta — Apple App Store metadata CLI",
	Long: `appmeta retrieves app metadata and privacy labels from the Apple App Store.

Records come from the public lookup endpoint or, for full details, from the
catalog API using the bearer token embedded in each app's web page.

Quick start:
  appmeta app get 553834731                     # full details by store ID
  appmeta app get com.midasplayer.apps.candycrushsaga
  appmeta app privacy 553834731 --country gb    # privacy label
  appmeta app lookup 553834731 284882215        # lightweight lookup records`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, newLogger(cfg.Debug))
}

// loadConfig runs config.Load and applies CLI flag overrides on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlags(cfg)
	if !render.Valid(cfg.Format) && cfg.Format != "" {
		return nil, fmt.Errorf("unknown format %q (valid: %s)", cfg.Format, strings.Join(render.Formats, "|"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies explicitly-set global flags into cfg.
func applyFlags(cfg *config.Config) {
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		if d, err := time.ParseDuration(globalFlags.Timeout); err == nil {
			cfg.Timeout = d
		}
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.Country != "" {
		cfg.Country = strings.ToLower(globalFlags.Country)
	}
	if globalFlags.Lang != "" {
		cfg.Lang = globalFlags.Lang
	}
	if globalFlags.Proxy != "" {
		cfg.Proxy = globalFlags.Proxy
	}
}

// newLogger returns a stderr text logger at Debug level when debug is on,
// otherwise the default logger.
func newLogger(debug bool) *slog.Logger {
	if !debug {
		return slog.Default()
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
	return logger
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel apps for batch operations (default: 4)")
	pf.IntVar(&globalFlags.Rate, "rate", 0,
		"max lookup/catalog requests per second (default: unthrottled)")
	pf.StringVar(&globalFlags.Country, "country", "",
		"two-letter store country code (default: us)")
	pf.StringVar(&globalFlags.Lang, "lang", "",
		"language for lookup results (e.g. en-us)")
	pf.StringVar(&globalFlags.Proxy, "proxy", "",
		"HTTP proxy URL for all outbound requests")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses (token redacted)")
}

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/appmeta/internal/config"
	"github.com/derickschaefer/appmeta/internal/model"
	"github.com/derickschaefer/appmeta/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage appmeta configuration",
	Long:  `Read and write appmeta configuration stored in config.json.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Edit it to change the default country, rate limit or output format.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		src := "(not found)"
		if cfg.ConfigPath != "" {
			src = cfg.ConfigPath
		}
		rate := "unthrottled"
		if cfg.Rate > 0 {
			rate = fmt.Sprintf("%d req/s", cfg.Rate)
		}
		orUnset := func(s string) string {
			if s == "" {
				return "(not set)"
			}
			return s
		}

		tbl := &model.Table{
			Headers: []string{"KEY", "VALUE"},
			Rows: [][]string{
				{"default_format", cfg.Format},
				{"timeout", cfg.Timeout.String()},
				{"concurrency", strconv.Itoa(cfg.Concurrency)},
				{"rate", rate},
				{"country", cfg.Country},
				{"lang", orUnset(cfg.Lang)},
				{"proxy", orUnset(cfg.Proxy)},
				{"user_agent", orUnset(cfg.UserAgent)},
				{"lookup_url", cfg.LookupURL},
				{"web_url", cfg.WebURL},
				{"api_url", cfg.APIURL},
				{"db_path", cfg.DBPath},
				{"addr", cfg.Addr},
				{"config_file", src},
			},
		}

		format := resolveFormat(cfg.Format)
		if format == render.FormatTable {
			printKVTable(cmd.OutOrStdout(), tbl.Rows)
			return nil
		}
		result := &model.Result{
			Kind:        model.KindTable,
			GeneratedAt: time.Now(),
			Command:     "config get",
			Data:        tbl,
			Stats:       model.ResultStats{Items: len(tbl.Rows)},
		}
		return render.Render(cmd.OutOrStdout(), result, format)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Example: `  appmeta config set country gb
  appmeta config set rate 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])

		// Load existing file or start from template
		path := config.DefaultConfigFile
		f := config.Template()
		existing, err := config.ReadFile(path)
		switch {
		case err == nil:
			f = *existing
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		if err := setConfigKey(&f, key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

// configKeys lists the keys accepted by `config set`.
var configKeys = []string{
	"default_format", "timeout", "concurrency", "rate", "country", "lang", "proxy",
	"user_agent", "lookup_url", "web_url", "api_url", "db_path", "addr",
}

// setConfigKey validates val and assigns it to the field named key.
func setConfigKey(f *config.File, key, val string) error {
	switch key {
	case "default_format", "format":
		if !render.Valid(val) {
			return fmt.Errorf("unknown format %q (valid: %s)", val, strings.Join(render.Formats, "|"))
		}
		f.DefaultFormat = val
	case "timeout":
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("timeout must be a duration such as 30s: %w", err)
		}
		f.Timeout = val
	case "concurrency":
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fmt.Errorf("concurrency must be a positive integer")
		}
		f.Concurrency = n
	case "rate":
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return fmt.Errorf("rate must be a non-negative integer (0 = unthrottled)")
		}
		f.Rate = n
	case "country":
		if len(val) != 2 {
			return fmt.Errorf("country must be a two-letter store code")
		}
		f.Country = strings.ToLower(val)
	case "lang":
		f.Lang = val
	case "proxy":
		f.Proxy = val
	case "user_agent":
		f.UserAgent = val
	case "lookup_url":
		f.LookupURL = val
	case "web_url":
		f.WebURL = val
	case "api_url":
		f.APIURL = val
	case "db_path":
		f.DBPath = val
	case "addr":
		f.Addr = val
	default:
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s", key, strings.Join(configKeys, ", "))
	}
	return nil
}

// printKVTable renders a two-column key/value table using aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/appmeta/internal/model"
	"github.com/derickschaefer/appmeta/internal/render"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage locally accumulated data",
	Long: `Commands for inspecting what has been accumulated in the local bbolt database.

Use 'appmeta app get <ID...> --store' to accumulate app records.
The local store is an intentional data store, not a transparent cache: fetch
commands never read from it and data persists until you explicitly clear it.`,
}

// ─── store list ───────────────────────────────────────────────────────────────

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List apps accumulated in the local database",
	Example: `  appmeta store list
  appmeta store list --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		apps, err := deps.Store.ListApps()
		if err != nil {
			return fmt.Errorf("reading store: %w", err)
		}

		if len(apps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No apps in local database.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: appmeta app get <ID...> --store")
			return nil
		}

		privacyKeys, err := deps.Store.ListKeys("privacy", "")
		if err != nil {
			return fmt.Errorf("reading privacy keys: %w", err)
		}
		hasPrivacy := make(map[string]bool, len(privacyKeys))
		for _, k := range privacyKeys {
			hasPrivacy[k] = true
		}

		tbl := &model.Table{Headers: []string{"KEY", "TITLE", "DEVELOPER", "VERSION", "SOURCE", "FETCHED AT", "PRIVACY"}}
		for _, a := range apps {
			title := model.Str(a.App.Title)
			if len(title) > 40 {
				title = title[:37] + "..."
			}
			privacy := ""
			if hasPrivacy[a.Key] {
				privacy = "yes"
			}
			tbl.Rows = append(tbl.Rows, []string{
				a.Key,
				title,
				model.Str(a.App.Developer),
				render.Summarize(&a.App).Version,
				a.Source,
				a.FetchedAt.Format("2006-01-02 15:04"),
				privacy,
			})
		}

		format := resolveFormat(deps.Config.Format)
		if format == render.FormatTable {
			printSimpleTable(cmd.OutOrStdout(), tbl.Headers, func(add func(...string)) {
				for _, row := range tbl.Rows {
					add(row...)
				}
			})
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d apps  •  %d privacy labels  •  %s\n",
				len(apps), len(privacyKeys), deps.Store.Path())
			return nil
		}

		// Non-table formats: use the standard result envelope
		return emit(cmd.OutOrStdout(), deps, newResult(model.KindTable, "store list", tbl, len(tbl.Rows), time.Now()))
	},
}

// ─── store show ───────────────────────────────────────────────────────────────

var storeShowPrivacy bool

var storeShowCmd = &cobra.Command{
	Use:   "show <ID>",
	Short: "Show a stored app record",
	Long: `Print a stored app record for the configured --country.
Pass --privacy to show the stored privacy label instead.`,
	Example: `  appmeta store show 553834731
  appmeta store show 553834731 --country gb --format json
  appmeta store show 553834731 --privacy`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := strings.TrimSpace(args[0])

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		country := deps.Config.Country
		if storeShowPrivacy {
			stored, ok, err := deps.Store.GetPrivacy(country, id)
			if err != nil {
				return fmt.Errorf("reading privacy label: %w", err)
			}
			if !ok {
				return fmt.Errorf("no stored privacy label for %s:%s\n\n  Use: appmeta app privacy %s --store", country, id, id)
			}
			result := newResult(model.KindPrivacy, "store show "+id, &stored.Record, 1, time.Now())
			result.GeneratedAt = stored.FetchedAt
			return emit(cmd.OutOrStdout(), deps, result)
		}

		stored, ok, err := deps.Store.GetApp(country, id)
		if err != nil {
			return fmt.Errorf("reading app: %w", err)
		}
		if !ok {
			return fmt.Errorf("no stored app for %s:%s\n\n  Use: appmeta app get %s --store", country, id, id)
		}
		result := newResult(model.KindApp, "store show "+id, &stored.App, 1, time.Now())
		result.GeneratedAt = stored.FetchedAt
		result.Stats.Stored = true
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeListCmd)
	storeCmd.AddCommand(storeShowCmd)

	storeShowCmd.Flags().BoolVar(&storeShowPrivacy, "privacy", false, "show the stored privacy label")
}

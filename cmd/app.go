package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/appmeta/internal/app"
	"github.com/derickschaefer/appmeta/internal/appstore"
	"github.com/derickschaefer/appmeta/internal/model"
)

var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Fetch App Store app metadata",
	Long: `Commands for retrieving app metadata and privacy labels.

An app is identified either by its numeric store ID (e.g. 553834731) or by its
bundle ID (e.g. com.midasplayer.apps.candycrushsaga).`,
}

// ─── app get ──────────────────────────────────────────────────────────────────

var appGetStore bool

var appGetCmd = &cobra.Command{
	Use:   "get <ID|BUNDLE_ID...>",
	Short: "Get full catalog details for one or more apps",
	Long: `Fetch the full catalog record for each app: description, genres, ratings,
screenshots, file sizes and per-platform version history.

Bundle IDs are resolved to store IDs through the lookup endpoint first.
Several apps are fetched in parallel (see --concurrency); failures for
individual apps are reported as warnings.`,
	Example: `  appmeta app get 553834731
  appmeta app get com.midasplayer.apps.candycrushsaga --country gb
  appmeta app get 553834731 284882215 --format jsonl --store`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		ids := normaliseIDs(args)
		recs, warnings := batchGetDetails(cmd.Context(), deps, ids)
		if len(recs) == 0 {
			return fmt.Errorf("no apps retrieved:\n  %s", joinWarnings(warnings))
		}

		var result *model.Result
		if len(ids) == 1 {
			result = newResult(model.KindApp, "app get", &recs[0], 1, start)
		} else {
			result = newResult(model.KindApps, "app get", recs, len(recs), start)
		}
		result.Warnings = warnings

		if appGetStore {
			if err := storeApps(deps, "catalog", recs); err != nil {
				return err
			}
			result.Stats.Stored = true
		}
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// ─── app privacy ──────────────────────────────────────────────────────────────

var appPrivacyStore bool

var appPrivacyCmd = &cobra.Command{
	Use:   "privacy <ID|BUNDLE_ID>",
	Short: "Get the privacy label for an app",
	Long: `Fetch the app's privacy details ("App Privacy" section) as published by
the catalog API. The payload is returned as-is.

The catalog call requires a numeric store ID; a bundle ID is resolved through
the lookup endpoint before the privacy request is made.`,
	Example: `  appmeta app privacy 553834731
  appmeta app privacy 553834731 --country de --store`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		id := normaliseIDs(args)[0]
		if !isStoreID(id) {
			resolved, err := deps.Client.ResolveID(cmd.Context(), id, lookupOptions(deps, ""))
			if err != nil {
				return err
			}
			id = resolved
		}

		raw, err := deps.Client.Privacy(cmd.Context(), appstore.PrivacyOptions{
			ID:      id,
			Country: deps.Config.Country,
		})
		if err != nil {
			return err
		}
		rec := &model.PrivacyRecord{ID: id, Country: deps.Config.Country, Details: raw}
		result := newResult(model.KindPrivacy, "app privacy", rec, 1, start)
		if raw == nil {
			result.Warnings = append(result.Warnings, "app has no privacy details")
		}

		if appPrivacyStore {
			if err := deps.RequireStore(); err != nil {
				return err
			}
			if err := deps.Store.PutPrivacy(*rec); err != nil {
				return fmt.Errorf("storing privacy label: %w", err)
			}
			result.Stats.Stored = true
		}
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// ─── app lookup ───────────────────────────────────────────────────────────────

var (
	appLookupBy    string
	appLookupStore bool
)

var appLookupCmd = &cobra.Command{
	Use:   "lookup <ID...>",
	Short: "Get lookup records for one or more apps in a single request",
	Long: `Query the public lookup endpoint. All ids go out in one request and
non-app results are dropped. Lookup records are lighter than catalog details
but include ratings and review counts.`,
	Example: `  appmeta app lookup 553834731 284882215
  appmeta app lookup com.midasplayer.apps.candycrushsaga --by bundleId`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if appLookupBy != "id" && appLookupBy != "bundleId" {
			return fmt.Errorf("invalid --by %q: expected id or bundleId", appLookupBy)
		}
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		recs, err := deps.Client.Lookup(cmd.Context(), normaliseIDs(args), lookupOptions(deps, appLookupBy))
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("lookup: %w", appstore.ErrNotFound)
		}
		result := newResult(model.KindApps, "app lookup", recs, len(recs), start)

		if appLookupStore {
			if err := storeApps(deps, "lookup", recs); err != nil {
				return err
			}
			result.Stats.Stored = true
		}
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// ─── app resolve ──────────────────────────────────────────────────────────────

var appResolveCmd = &cobra.Command{
	Use:     "resolve <BUNDLE_ID>",
	Short:   "Resolve a bundle ID to its numeric store ID",
	Example: `  appmeta app resolve com.midasplayer.apps.candycrushsaga`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		defer deps.Close()

		start := time.Now()
		bundleID := normaliseIDs(args)[0]
		id, err := deps.Client.ResolveID(cmd.Context(), bundleID, lookupOptions(deps, ""))
		if err != nil {
			return err
		}
		result := newResult(model.KindAppID, "app resolve", &model.ResolvedID{BundleID: bundleID, ID: id}, 1, start)
		return emit(cmd.OutOrStdout(), deps, result)
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(appCmd)
	appCmd.AddCommand(appGetCmd)
	appCmd.AddCommand(appPrivacyCmd)
	appCmd.AddCommand(appLookupCmd)
	appCmd.AddCommand(appResolveCmd)

	appGetCmd.Flags().BoolVar(&appGetStore, "store", false, "save records to the local database")
	appPrivacyCmd.Flags().BoolVar(&appPrivacyStore, "store", false, "save the privacy label to the local database")
	appLookupCmd.Flags().StringVar(&appLookupBy, "by", "id", "id field for the lookup: id|bundleId")
	appLookupCmd.Flags().BoolVar(&appLookupStore, "store", false, "save records to the local database")
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func lookupOptions(deps *app.Deps, idField string) appstore.LookupOptions {
	return appstore.LookupOptions{
		IDField:   idField,
		Country:   deps.Config.Country,
		Lang:      deps.Config.Lang,
		RateLimit: deps.Config.Rate,
	}
}

// storeApps writes recs to the apps bucket under the configured country.
func storeApps(deps *app.Deps, source string, recs []model.AppRecord) error {
	if err := deps.RequireStore(); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := deps.Store.PutApp(deps.Config.Country, source, rec); err != nil {
			return fmt.Errorf("storing %s: %w", rec.ID, err)
		}
	}
	return nil
}

func joinWarnings(warnings []string) string {
	return strings.Join(warnings, "\n  ")
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/appmeta/internal/app"
	"github.com/derickschaefer/appmeta/internal/appstore"
	"github.com/derickschaefer/appmeta/internal/model"
	"github.com/derickschaefer/appmeta/internal/render"
)

// normaliseIDs trims ids and removes blanks and duplicates while preserving
// order. Case is kept: bundle IDs are case-sensitive.
func normaliseIDs(ids []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// isStoreID reports whether s is a numeric App Store ID rather than a bundle ID.
func isStoreID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// detailsOptions builds DetailsOptions for id, routing numeric ids to ID and
// everything else to AppID.
func detailsOptions(deps *app.Deps, id string) appstore.DetailsOptions {
	opts := appstore.DetailsOptions{
		Country:   deps.Config.Country,
		Lang:      deps.Config.Lang,
		RateLimit: deps.Config.Rate,
	}
	if isStoreID(id) {
		opts.ID = id
	} else {
		opts.AppID = id
	}
	return opts
}

// batchGetDetails fetches full records for multiple ids concurrently.
// It respects deps.Config.Concurrency and collects errors as warnings.
// Records are returned in input order.
func batchGetDetails(ctx context.Context, deps *app.Deps, ids []string) ([]model.AppRecord, []string) {
	type result struct {
		rec *model.AppRecord
		err error
	}

	concurrency := deps.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	sem := make(chan struct{}, concurrency)
	results := make([]result, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rec, err := deps.Client.Details(ctx, detailsOptions(deps, id))
			results[i] = result{rec: rec, err: err}
		}()
	}
	wg.Wait()

	var recs []model.AppRecord
	var warnings []string
	for i, r := range results {
		if r.err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", ids[i], r.err))
		} else if r.rec != nil {
			recs = append(recs, *r.rec)
		}
	}
	return recs, warnings
}

// emit renders result to --out or w and prints the footer unless quiet.
func emit(w io.Writer, deps *app.Deps, result *model.Result) error {
	if deps.Config.Quiet {
		return nil
	}
	if err := render.RenderTo(w, globalFlags.Out, result, resolveFormat(deps.Config.Format)); err != nil {
		return err
	}
	render.PrintFooter(os.Stderr, result, deps.Config.Verbose)
	return nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// newResult wraps data in a Result envelope stamped with the elapsed time.
func newResult(kind, command string, data interface{}, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			Items:      items,
			DurationMs: time.Since(start).Milliseconds(),
		},
	}
}

// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/derickschaefer/appmeta/internal/model"
	"github.com/olekukonko/tablewriter"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// Valid reports whether format is a known output format.
func Valid(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to w by default; if path is non-empty, writes to file.
func RenderTo(w io.Writer, path string, result *model.Result, format string) error {
	if path == "" {
		return Render(w, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := Render(f, result, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one payload per line: one app record per line for
// KindApps, the bare payload otherwise.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case []model.AppRecord:
		for _, rec := range data {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	case *model.Table:
		for _, row := range data.Rows {
			obj := make(map[string]string, len(data.Headers))
			for i, h := range data.Headers {
				if i < len(row) {
					obj[strings.ToLower(h)] = row[i]
				}
			}
			if err := enc.Encode(obj); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	switch result.Kind {
	case model.KindApp:
		rec, ok := result.Data.(*model.AppRecord)
		if !ok {
			return fmt.Errorf("unexpected data type for app")
		}
		return renderAppTable(w, rec)
	case model.KindApps:
		recs, ok := result.Data.([]model.AppRecord)
		if !ok {
			return fmt.Errorf("unexpected data type for apps")
		}
		return renderAppSliceTable(w, recs)
	case model.KindAppID:
		r, ok := result.Data.(*model.ResolvedID)
		if !ok {
			return fmt.Errorf("unexpected data type for app_id")
		}
		fmt.Fprintf(w, "%s\t%s\n", r.BundleID, r.ID)
		return nil
	case model.KindTable:
		t, ok := result.Data.(*model.Table)
		if !ok {
			return fmt.Errorf("unexpected data type for table")
		}
		return renderGenericTable(w, t)
	default:
		// Privacy labels and anything else are nested documents: JSON
		return renderJSON(w, result)
	}
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	return tw
}

func renderAppTable(w io.Writer, rec *model.AppRecord) error {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	tw.SetColWidth(80)
	tw.SetAutoWrapText(true)

	s := Summarize(rec)
	rows := [][]string{
		{"ID", rec.ID},
		{"App ID", s.AppID},
		{"Title", model.Str(rec.Title)},
		{"Developer", model.Str(rec.Developer)},
		{"Version", s.Version},
		{"Price", s.Price},
		{"Genre", model.Str(rec.PrimaryGenre)},
		{"Content Rating", model.Str(rec.ContentRating)},
		{"Rating", formatScore(rec.Score, rec.Reviews)},
		{"Size", model.Str(rec.Size)},
		{"Released", model.Str(rec.Released)},
		{"Updated", s.Updated},
		{"URL", model.Str(rec.URL)},
	}
	if len(rec.Platforms) > 0 {
		rows = append(rows, []string{"Platforms", strings.Join(platformKeys(rec), ", ")})
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		tw.Append(r)
	}
	tw.Render()
	return nil
}

func renderAppSliceTable(w io.Writer, recs []model.AppRecord) error {
	tw := newTable(w, []string{"ID", "TITLE", "DEVELOPER", "VERSION", "PRICE"})
	tw.SetAutoWrapText(false)
	tw.SetColWidth(40)

	for i := range recs {
		s := Summarize(&recs[i])
		tw.Append([]string{
			recs[i].ID,
			truncate(model.Str(recs[i].Title), 50),
			truncate(model.Str(recs[i].Developer), 30),
			s.Version,
			s.Price,
		})
	}
	tw.Render()
	return nil
}

func renderGenericTable(w io.Writer, t *model.Table) error {
	tw := newTable(w, t.Headers)
	tw.SetAutoWrapText(false)
	tw.AppendBulk(t.Rows)
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

var appColumns = []string{"id", "app_id", "title", "developer", "version", "price", "primary_genre", "score", "reviews", "updated", "url"}

func appRow(rec *model.AppRecord) []string {
	s := Summarize(rec)
	score, reviews := "", ""
	if rec.Score != nil {
		score = strconv.FormatFloat(*rec.Score, 'f', -1, 64)
	}
	if rec.Reviews != nil {
		reviews = strconv.FormatInt(*rec.Reviews, 10)
	}
	return []string{
		rec.ID, s.AppID, model.Str(rec.Title), model.Str(rec.Developer),
		s.Version, s.Price, model.Str(rec.PrimaryGenre), score, reviews,
		s.Updated, model.Str(rec.URL),
	}
}

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	switch data := result.Data.(type) {
	case []model.AppRecord:
		_ = cw.Write(appColumns)
		for i := range data {
			_ = cw.Write(appRow(&data[i]))
		}
	case *model.AppRecord:
		_ = cw.Write(appColumns)
		_ = cw.Write(appRow(data))
	case *model.ResolvedID:
		_ = cw.Write([]string{"bundle_id", "id"})
		_ = cw.Write([]string{data.BundleID, data.ID})
	case *model.Table:
		header := make([]string, len(data.Headers))
		for i, h := range data.Headers {
			header[i] = strings.ToLower(h)
		}
		_ = cw.Write(header)
		for _, row := range data.Rows {
			_ = cw.Write(row)
		}
	default:
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	switch data := result.Data.(type) {
	case []model.AppRecord:
		fmt.Fprintf(w, "| ID | TITLE | DEVELOPER | VERSION | PRICE |\n|----|----|----|----|----|\n")
		for i := range data {
			s := Summarize(&data[i])
			fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
				data[i].ID, mdEscape(model.Str(data[i].Title)), mdEscape(model.Str(data[i].Developer)),
				s.Version, s.Price)
		}
		return nil
	case *model.AppRecord:
		s := Summarize(data)
		fmt.Fprintf(w, "## %s\n\n", mdEscape(model.Str(data.Title)))
		fmt.Fprintf(w, "| FIELD | VALUE |\n|-------|-------|\n")
		fmt.Fprintf(w, "| ID | %s |\n", data.ID)
		fmt.Fprintf(w, "| App ID | %s |\n", s.AppID)
		fmt.Fprintf(w, "| Developer | %s |\n", mdEscape(model.Str(data.Developer)))
		fmt.Fprintf(w, "| Version | %s |\n", s.Version)
		fmt.Fprintf(w, "| Price | %s |\n", s.Price)
		fmt.Fprintf(w, "| URL | %s |\n", model.Str(data.URL))
		return nil
	case *model.Table:
		fmt.Fprintf(w, "| %s |\n", strings.Join(data.Headers, " | "))
		fmt.Fprintf(w, "|%s\n", strings.Repeat("----|", len(data.Headers)))
		for _, row := range data.Rows {
			esc := make([]string, len(row))
			for i, c := range row {
				esc[i] = mdEscape(c)
			}
			fmt.Fprintf(w, "| %s |\n", strings.Join(esc, " | "))
		}
		return nil
	default:
		return renderJSON(w, result)
	}
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		dest := "not stored"
		if result.Stats.Stored {
			dest = "stored"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			dest,
		)
	}
}

// ─── Summary ─────────────────────────────────────────────────────────────────

// Summary holds the display strings for fields that live at the top level of
// a lookup record but per platform in a catalog record.
type Summary struct {
	AppID   string
	Version string
	Price   string
	Updated string
}

// Summarize picks display values from rec. Top-level values win; otherwise the
// first platform in key order supplies them.
func Summarize(rec *model.AppRecord) Summary {
	s := Summary{
		AppID:   model.Str(rec.AppID),
		Version: model.Str(rec.Version),
		Updated: model.Str(rec.Updated),
	}
	if rec.Price != nil {
		s.Price = formatPrice(*rec.Price, model.Str(rec.Currency))
	}
	keys := platformKeys(rec)
	if len(keys) == 0 {
		return s
	}
	p := rec.Platforms[keys[0]]
	if s.AppID == "" {
		s.AppID = model.Str(p.AppID)
	}
	if s.Version == "" {
		s.Version = model.Str(p.Version)
	}
	if s.Updated == "" {
		s.Updated = model.Str(p.Updated)
	}
	if s.Price == "" {
		s.Price = formatPrice(p.Price, model.Str(p.Currency))
	}
	return s
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func platformKeys(rec *model.AppRecord) []string {
	keys := make([]string, 0, len(rec.Platforms))
	for k := range rec.Platforms {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatPrice renders 0 as "Free" and anything else with two decimals.
func formatPrice(v float64, currency string) string {
	if v == 0 {
		return "Free"
	}
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if currency != "" {
		s += " " + currency
	}
	return s
}

func formatScore(score *float64, reviews *int64) string {
	if score == nil {
		return ""
	}
	s := strconv.FormatFloat(*score, 'f', 2, 64)
	if reviews != nil {
		s += fmt.Sprintf(" (%d reviews)", *reviews)
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

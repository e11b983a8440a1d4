package appstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/derickschaefer/appmeta/internal/model"
)

// LookupOptions holds optional parameters for Lookup and ResolveID.
type LookupOptions struct {
	IDField        string // id (default) | bundleId
	Country        string // default "us"
	Lang           string
	RequestOptions RequestOptions
	RateLimit      int
}

// Lookup fetches legacy records for one or more ids from the lookup endpoint.
// Non-app results are dropped. Records come back in the endpoint's order.
func (c *Client) Lookup(ctx context.Context, ids []string, opts LookupOptions) ([]model.AppRecord, error) {
	results, err := c.lookup(ctx, ids, opts)
	if err != nil {
		return nil, err
	}
	apps := make([]model.AppRecord, len(results))
	for i, r := range results {
		apps[i] = NormalizeLegacy(r)
	}
	return apps, nil
}

// ResolveID returns the numeric store ID for a bundle ID.
func (c *Client) ResolveID(ctx context.Context, bundleID string, opts LookupOptions) (string, error) {
	if bundleID == "" {
		return "", missing("appId")
	}
	opts.IDField = "bundleId"
	results, err := c.lookup(ctx, []string{bundleID}, opts)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", bundleID, err)
	}
	if len(results) == 0 || results[0].TrackID == nil || *results[0].TrackID == "" {
		return "", fmt.Errorf("resolving %s: %w", bundleID, ErrNotFound)
	}
	return string(*results[0].TrackID), nil
}

// lookup performs the lookup request and returns the software results.
func (c *Client) lookup(ctx context.Context, ids []string, opts LookupOptions) ([]RawSearchResult, error) {
	if len(ids) == 0 {
		return nil, missing("ids")
	}
	idField := opts.IDField
	if idField == "" {
		idField = "id"
	}
	country := normalizeCountry(opts.Country)

	// Parameter order is fixed: idField, country, entity, lang.
	var q strings.Builder
	q.WriteString(url.QueryEscape(idField) + "=" + escapeIDs(ids))
	q.WriteString("&country=" + url.QueryEscape(country))
	q.WriteString("&entity=software")
	if opts.Lang != "" {
		q.WriteString("&lang=" + url.QueryEscape(opts.Lang))
	}
	reqURL := c.lookupURL + "?" + q.String()

	body, err := c.Do(ctx, RequestSpec{URL: reqURL, RateLimit: opts.RateLimit}, opts.RequestOptions)
	if err != nil {
		return nil, err
	}

	var raw lookupResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &ParseError{URL: reqURL, Err: err}
	}

	out := make([]RawSearchResult, 0, len(raw.Results))
	for _, r := range raw.Results {
		if r.isSoftware() {
			out = append(out, r)
		}
	}
	return out, nil
}

// escapeIDs joins ids with a literal comma, escaping each id on its own.
func escapeIDs(ids []string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = url.QueryEscape(strings.TrimSpace(id))
	}
	return strings.Join(parts, ",")
}

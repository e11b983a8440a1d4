package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Param is one catalog API query parameter. Params are appended to the URL
// in slice order.
type Param struct {
	Key   string
	Value string
}

// FetchCatalogEntry scrapes a bearer token from the app's web page and uses it
// to fetch the app from the catalog API. id must be the numeric store ID.
//
// The catalog API signals a missing app with an empty body rather than a 404,
// so an empty body (or an empty data array) returns ErrNotFound.
func (c *Client) FetchCatalogEntry(ctx context.Context, id, country string, params []Param, opts RequestOptions, rateLimit int) (*RawCatalogEntry, error) {
	if id == "" {
		return nil, missing("id")
	}
	country = normalizeCountry(country)

	pageURL := fmt.Sprintf("%s/%s/app/id%s", c.webURL, country, url.PathEscape(id))
	page, err := c.Do(ctx, RequestSpec{URL: pageURL}, opts)
	if err != nil {
		return nil, fmt.Errorf("app page %s: %w", id, err)
	}

	token, err := ExtractToken(page)
	if err != nil {
		return nil, fmt.Errorf("app page %s: %w", id, err)
	}
	if c.debug {
		if exp, ok := TokenExpiry(token); ok {
			c.logger.Debug("catalog token", "token", redactToken(token), "expires", exp.Format(time.RFC3339))
		}
	}

	apiURL := fmt.Sprintf("%s/v1/catalog/%s/apps/%s?%s", c.apiURL, country, url.PathEscape(id), encodeOrdered(params))

	body, err := c.Do(ctx, RequestSpec{
		URL: apiURL,
		Headers: map[string]string{
			"Origin":        catalogOrigin,
			"Authorization": "Bearer " + token,
		},
		RateLimit: rateLimit,
	}, opts)
	if err != nil {
		if exp, ok := rejectedTokenExpiry(err, token); ok {
			return nil, fmt.Errorf("catalog %s (token expires %s): %w", id, exp.Format(time.RFC3339), err)
		}
		return nil, fmt.Errorf("catalog %s: %w", id, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("[]")) {
		return nil, fmt.Errorf("catalog %s: %w", id, ErrNotFound)
	}

	var raw catalogResponse
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", id, &ParseError{URL: apiURL, Err: err})
	}
	if len(raw.Data) == 0 {
		return nil, fmt.Errorf("catalog %s: %w", id, ErrNotFound)
	}
	return &raw.Data[0], nil
}

// encodeOrdered builds a query string starting with platform=web followed by
// params in order. url.Values would sort the keys.
func encodeOrdered(params []Param) string {
	var b strings.Builder
	b.WriteString("platform=web")
	for _, p := range params {
		b.WriteByte('&')
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// rejectedTokenExpiry returns the scraped token's expiry when err is the
// catalog API refusing it with 401 or 403.
func rejectedTokenExpiry(err error, token string) (time.Time, bool) {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return time.Time{}, false
	}
	if statusErr.StatusCode != http.StatusUnauthorized && statusErr.StatusCode != http.StatusForbidden {
		return time.Time{}, false
	}
	return TokenExpiry(token)
}

func normalizeCountry(country string) string {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return DefaultCountry
	}
	return country
}

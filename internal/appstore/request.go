package appstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// RequestSpec describes one outbound request. RateLimit is the maximum number
// of requests per second for the shared limiter; 0 leaves the call unthrottled.
type RequestSpec struct {
	URL       string
	Headers   map[string]string
	Method    string // default GET
	RateLimit int
}

// RequestOptions is the caller's pass-through configuration for a single
// call. Method overrides the spec's method; Headers are applied after the
// spec's headers and win on conflict.
type RequestOptions struct {
	Method  string
	Headers map[string]string
}

// Do issues spec as a single HTTP request and returns the raw body.
// Transport failures return *NetworkError; status >= 400 returns
// *HTTPStatusError. The body is not parsed.
func (c *Client) Do(ctx context.Context, spec RequestSpec, opts RequestOptions) ([]byte, error) {
	method := http.MethodGet
	if spec.Method != "" {
		method = strings.ToUpper(spec.Method)
	}
	if opts.Method != "" {
		method = strings.ToUpper(opts.Method)
	}

	if spec.RateLimit > 0 {
		c.limiter.Configure(spec.RateLimit)
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, spec.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	if c.debug {
		c.logger.Debug("appstore request",
			"method", method,
			"url", spec.URL,
			"headers", redactHeaders(req.Header),
			"rate_limit", spec.RateLimit,
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if c.debug {
			c.logger.Debug("appstore request error", "url", spec.URL, "err", err)
		}
		return nil, &NetworkError{URL: spec.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := readAllLimit(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, &NetworkError{URL: spec.URL, Err: fmt.Errorf("reading body: %w", err)}
	}

	if c.debug {
		c.logger.Debug("appstore response", "url", spec.URL, "status", resp.StatusCode, "bytes", len(body))
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPStatusError{
			URL:        spec.URL,
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}
	return body, nil
}

// noRetry is the retryablehttp CheckRetry policy: one attempt, always.
func noRetry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

func readAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, errors.New("payload too large")
	}
	return b, nil
}

// redactHeaders returns a copy of h safe for logging.
func redactHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		v := h.Get(k)
		if strings.EqualFold(k, "Authorization") {
			v = "Bearer " + redactToken(strings.TrimPrefix(v, "Bearer "))
		}
		out[k] = v
	}
	return out
}

// redactToken keeps the first and last four characters of a token.
func redactToken(tok string) string {
	if len(tok) <= 8 {
		return "****"
	}
	return tok[:4] + "****" + tok[len(tok)-4:]
}

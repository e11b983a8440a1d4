// Package appstore implements the HTTP client for the App Store: the public
// iTunes lookup endpoint and the token-gated catalog API behind the App Store
// web front end. Every request makes exactly one attempt; throttled requests
// share the client's Limiter.
package appstore

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultLookupURL = "https://itunes.apple.com/lookup"
	DefaultWebURL    = "https://apps.apple.com"
	DefaultAPIURL    = "https://amp-api.apps.apple.com"
	DefaultCountry   = "us"

	// catalogOrigin is sent as the Origin header on catalog API calls.
	catalogOrigin = "https://apps.apple.com"

	maxBodyBytes = 8 << 20
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	LookupURL string
	WebURL    string
	APIURL    string
	Timeout   time.Duration
	Proxy     string // optional http(s) proxy URL for every request
	UserAgent string
	Debug     bool
	Logger    *slog.Logger
}

// Client is the App Store HTTP client.
type Client struct {
	lookupURL string
	webURL    string
	apiURL    string
	userAgent string
	http      *retryablehttp.Client
	limiter   *Limiter
	logger    *slog.Logger
	debug     bool
}

// NewClient creates a Client from opts. It fails only when opts.Proxy is set
// and cannot be parsed.
func NewClient(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parsing proxy %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: transport, Timeout: opts.Timeout}
	rc.RetryMax = 0
	rc.CheckRetry = noRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil
	if opts.Debug {
		rc.Logger = logger
	}

	return &Client{
		lookupURL: orDefault(opts.LookupURL, DefaultLookupURL),
		webURL:    strings.TrimRight(orDefault(opts.WebURL, DefaultWebURL), "/"),
		apiURL:    strings.TrimRight(orDefault(opts.APIURL, DefaultAPIURL), "/"),
		userAgent: opts.UserAgent,
		http:      rc,
		limiter:   NewLimiter(),
		logger:    logger,
		debug:     opts.Debug,
	}, nil
}

// Limiter returns the limiter shared by this client's throttled requests.
func (c *Client) Limiter() *Limiter {
	return c.limiter
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Package server exposes the appstore client over a small read-only HTTP API.
//
//	GET /health
//	GET /apps/{id}           numeric store ID or bundle ID
//	GET /apps/{id}/privacy   numeric store ID only
//	GET /lookup?ids=1,2&by=id|bundleId
//
// Query parameters country and lang apply to every app route.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	"github.com/derickschaefer/appmeta/internal/appstore"
	"github.com/derickschaefer/appmeta/internal/model"
)

// AppService is the subset of *appstore.Client the server calls.
type AppService interface {
	Details(ctx context.Context, opts appstore.DetailsOptions) (*model.AppRecord, error)
	Privacy(ctx context.Context, opts appstore.PrivacyOptions) (json.RawMessage, error)
	Lookup(ctx context.Context, ids []string, opts appstore.LookupOptions) ([]model.AppRecord, error)
}

// Deps configures the router.
type Deps struct {
	Apps           AppService
	Country        string // default when the request has no country
	Lang           string
	RateLimit      int // outbound requests per second; 0 = off
	RequestsPerMin int // inbound per-IP limit; 0 = 100
	Logger         *slog.Logger
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// NewRouter builds the chi router.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	perMin := d.RequestsPerMin
	if perMin <= 0 {
		perMin = 100
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(perMin, 1*time.Minute)) // protect upstream
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]bool{"ok": true})
	})

	h := &handlers{d: d}
	r.Route("/apps/{id}", func(r chi.Router) {
		r.Get("/", h.app)
		r.Get("/privacy", h.privacy)
	})
	r.Get("/lookup", h.lookup)
	return r
}

type handlers struct {
	d Deps
}

func (h *handlers) country(req *http.Request) string {
	if c := req.URL.Query().Get("country"); c != "" {
		return strings.ToLower(c)
	}
	return h.d.Country
}

func (h *handlers) lang(req *http.Request) string {
	if l := req.URL.Query().Get("lang"); l != "" {
		return l
	}
	return h.d.Lang
}

func (h *handlers) app(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	opts := appstore.DetailsOptions{
		Country:   h.country(req),
		Lang:      h.lang(req),
		RateLimit: h.d.RateLimit,
	}
	if isNumeric(id) {
		opts.ID = id
	} else {
		opts.AppID = id
	}
	rec, err := h.d.Apps.Details(req.Context(), opts)
	if err != nil {
		h.fail(w, req, err)
		return
	}
	render.JSON(w, req, rec)
}

func (h *handlers) privacy(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	country := h.country(req)
	if !isNumeric(id) {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, errorBody{Error: "invalid_id", Detail: "privacy requires a numeric store id"})
		return
	}
	raw, err := h.d.Apps.Privacy(req.Context(), appstore.PrivacyOptions{ID: id, Country: country})
	if err != nil {
		h.fail(w, req, err)
		return
	}
	if country == "" {
		country = appstore.DefaultCountry
	}
	render.JSON(w, req, model.PrivacyRecord{ID: id, Country: country, Details: raw})
}

func (h *handlers) lookup(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	var ids []string
	for _, id := range strings.Split(q.Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	by := q.Get("by")
	if by != "" && by != "id" && by != "bundleId" {
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, errorBody{Error: "invalid_by", Detail: "by must be id or bundleId"})
		return
	}
	recs, err := h.d.Apps.Lookup(req.Context(), ids, appstore.LookupOptions{
		IDField:   by,
		Country:   h.country(req),
		Lang:      h.lang(req),
		RateLimit: h.d.RateLimit,
	})
	if err != nil {
		h.fail(w, req, err)
		return
	}
	if recs == nil {
		recs = []model.AppRecord{}
	}
	render.JSON(w, req, recs)
}

// fail maps an appstore error to a status code and writes the error body.
func (h *handlers) fail(w http.ResponseWriter, req *http.Request, err error) {
	status, code := StatusFor(err)
	if status >= 500 {
		h.d.Logger.Warn("upstream request failed", "path", req.URL.Path, "error", err)
	}
	render.Status(req, status)
	render.JSON(w, req, errorBody{Error: code, Detail: err.Error()})
}

// StatusFor returns the HTTP status and error code reported for err.
func StatusFor(err error) (int, string) {
	var statusErr *appstore.HTTPStatusError
	var netErr *appstore.NetworkError
	var parseErr *appstore.ParseError
	switch {
	case errors.Is(err, appstore.ErrMissingParameter):
		return http.StatusBadRequest, "missing_parameter"
	case errors.Is(err, appstore.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, appstore.ErrTokenExtraction):
		return http.StatusBadGateway, "token_extraction"
	case errors.As(err, &statusErr):
		return http.StatusBadGateway, "upstream_status"
	case errors.As(err, &netErr):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout, "upstream_timeout"
		}
		return http.StatusBadGateway, "upstream_unreachable"
	case errors.As(err, &parseErr):
		return http.StatusBadGateway, "upstream_parse"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func isNumeric(s string) bool {
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

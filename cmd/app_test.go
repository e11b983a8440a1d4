package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/derickschaefer/appmeta/internal/config"
	"github.com/derickschaefer/appmeta/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

const (
	testToken   = "tok.en.value"
	catalogBody = `{"data":[{"id":"553834731","attributes":{"name":"Candy Crush Saga","artistName":"King",` +
		`"platformAttributes":{"ios":{"bundleId":"com.midasplayer.apps.candycrushsaga",` +
		`"versionHistory":[{"versionDisplay":"1.250.0"}],"offers":[{"type":"get","price":0}]}}}}]}`
	lookupBody = `{"resultCount":1,"results":[{"wrapperType":"software","trackId":553834731,` +
		`"bundleId":"com.midasplayer.apps.candycrushsaga","trackName":"Candy Crush Saga","price":0}]}`
)

// resetFlags restores global and per-command flag variables between tests;
// cobra keeps parsed values across Execute calls.
func resetFlags() {
	globalFlags.Format = ""
	globalFlags.Out = ""
	globalFlags.Timeout = ""
	globalFlags.Concurrency = 0
	globalFlags.Rate = 0
	globalFlags.Country = ""
	globalFlags.Lang = ""
	globalFlags.Proxy = ""
	globalFlags.Quiet = false
	globalFlags.Verbose = false
	globalFlags.Debug = false
	appGetStore = false
	appPrivacyStore = false
	appLookupStore = false
	appLookupBy = "id"
	storeShowPrivacy = false
}

// fakeAppStore serves lookup, app page and catalog responses and counts
// requests per surface.
func fakeAppStore(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var catalogCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/lookup":
			_, _ = w.Write([]byte(lookupBody))
		case strings.HasPrefix(r.URL.Path, "/us/app/id"):
			_, _ = w.Write([]byte(`<meta content="%7B%22token%22%3A%22` + testToken + `%22%7D">`))
		case strings.HasPrefix(r.URL.Path, "/v1/catalog/us/apps/553834731"):
			catalogCalls.Add(1)
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			if r.URL.Query().Get("fields") == "privacyDetails" {
				_, _ = w.Write([]byte(`{"data":[{"id":"553834731","attributes":{"privacyDetails":{"privacyTypes":[]}}}]}`))
				return
			}
			_, _ = w.Write([]byte(catalogBody))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &catalogCalls
}

// setupWorkspace points config.json at srv and an isolated database.
func setupWorkspace(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvCountry, "")
	t.Setenv(config.EnvLang, "")
	t.Setenv(config.EnvProxy, "")
	t.Setenv(config.EnvDBPath, filepath.Join(dir, "appmeta.db"))
	err := config.WriteFile(filepath.Join(dir, "config.json"), config.File{
		LookupURL: srv.URL + "/lookup",
		WebURL:    srv.URL,
		APIURL:    srv.URL,
	})
	if err != nil {
		t.Fatal(err)
	}
	orig, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	rootCmd.SetOut(nil)
	return buf.String(), err
}

// ─── Tests ────────────────────────────────────────────────────────────────────

func TestSubcommandRouting(t *testing.T) {
	pairs := [][]string{
		{"app", "get"}, {"app", "privacy"}, {"app", "lookup"}, {"app", "resolve"},
		{"store", "list"}, {"store", "show"}, {"store", "stats"}, {"store", "clear"}, {"store", "compact"},
		{"config", "init"}, {"config", "get"}, {"config", "set"},
		{"serve"}, {"version"},
	}
	for _, p := range pairs {
		c, _, err := rootCmd.Find(p)
		if err != nil || c.Name() != p[len(p)-1] {
			t.Errorf("command %v not registered (%v)", p, err)
		}
	}
}

func TestAppGetByBundleIDAndStore(t *testing.T) {
	srv, _ := fakeAppStore(t)
	setupWorkspace(t, srv)

	out, err := run(t, "app", "get", "com.midasplayer.apps.candycrushsaga", "--format", "json", "--store")
	if err != nil {
		t.Fatalf("app get: %v", err)
	}
	var res struct {
		Kind  string            `json:"kind"`
		Data  model.AppRecord   `json:"data"`
		Stats model.ResultStats `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
	if res.Kind != model.KindApp || res.Data.ID != "553834731" || !res.Stats.Stored {
		t.Errorf("result: %+v", res)
	}
	ios := res.Data.Platforms["ios"]
	if !ios.Free || model.Str(ios.Version) != "1.250.0" {
		t.Errorf("ios platform: %+v", ios)
	}

	out, err = run(t, "store", "show", "553834731", "--format", "csv")
	if err != nil {
		t.Fatalf("store show: %v", err)
	}
	if !strings.Contains(out, "553834731,com.midasplayer.apps.candycrushsaga,Candy Crush Saga,King,1.250.0,Free") {
		t.Errorf("stored record:\n%s", out)
	}
}

func TestStoreListPrivacyColumn(t *testing.T) {
	srv, _ := fakeAppStore(t)
	setupWorkspace(t, srv)

	if _, err := run(t, "app", "get", "553834731", "--store"); err != nil {
		t.Fatalf("app get: %v", err)
	}
	if _, err := run(t, "app", "privacy", "553834731", "--store"); err != nil {
		t.Fatalf("app privacy: %v", err)
	}
	out, err := run(t, "store", "list")
	if err != nil {
		t.Fatalf("store list: %v", err)
	}
	if !strings.Contains(out, "1 apps  •  1 privacy labels") {
		t.Errorf("store list footer:\n%s", out)
	}
}

func TestAppGetPartialFailureWarns(t *testing.T) {
	srv, _ := fakeAppStore(t)
	setupWorkspace(t, srv)

	out, err := run(t, "app", "get", "553834731", "999", "--format", "json")
	if err != nil {
		t.Fatalf("app get: %v", err)
	}
	var res model.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Kind != model.KindApps || res.Stats.Items != 1 {
		t.Errorf("expected one record, got %+v", res)
	}
	if len(res.Warnings) != 1 || !strings.HasPrefix(res.Warnings[0], "999:") {
		t.Errorf("warnings: %v", res.Warnings)
	}
}

func TestAppGetAllFail(t *testing.T) {
	srv, _ := fakeAppStore(t)
	setupWorkspace(t, srv)

	if _, err := run(t, "app", "get", "999"); err == nil {
		t.Error("expected error when no app could be retrieved")
	}
}

func TestAppPrivacy(t *testing.T) {
	srv, calls := fakeAppStore(t)
	setupWorkspace(t, srv)

	out, err := run(t, "app", "privacy", "553834731", "--format", "jsonl")
	if err != nil {
		t.Fatalf("app privacy: %v", err)
	}
	var rec model.PrivacyRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rec.ID != "553834731" || string(rec.Details) != `{"privacyTypes":[]}` {
		t.Errorf("privacy: %+v", rec)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one catalog call, got %d", calls.Load())
	}
}

func TestAppResolve(t *testing.T) {
	srv, calls := fakeAppStore(t)
	setupWorkspace(t, srv)

	out, err := run(t, "app", "resolve", "com.midasplayer.apps.candycrushsaga")
	if err != nil {
		t.Fatalf("app resolve: %v", err)
	}
	if strings.TrimSpace(out) != "com.midasplayer.apps.candycrushsaga\t553834731" {
		t.Errorf("resolve output: %q", out)
	}
	if calls.Load() != 0 {
		t.Error("resolve must not hit the catalog API")
	}
}

func TestAppResolveWritesOutFile(t *testing.T) {
	srv, _ := fakeAppStore(t)
	dir := setupWorkspace(t, srv)
	path := filepath.Join(dir, "resolved.tsv")

	out, err := run(t, "app", "resolve", "com.midasplayer.apps.candycrushsaga", "--out", path)
	if err != nil {
		t.Fatalf("app resolve: %v", err)
	}
	if out != "" {
		t.Errorf("stdout should be empty with --out, got %q", out)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading --out file: %v", err)
	}
	if strings.TrimSpace(string(got)) != "com.midasplayer.apps.candycrushsaga\t553834731" {
		t.Errorf("--out content: %q", got)
	}
}

func TestAppLookupInvalidBy(t *testing.T) {
	if _, err := run(t, "app", "lookup", "1", "--by", "name"); err == nil {
		t.Error("expected error for invalid --by")
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	srv, _ := fakeAppStore(t)
	setupWorkspace(t, srv)
	if _, err := run(t, "app", "lookup", "1", "--format", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

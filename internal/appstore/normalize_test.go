package appstore

import (
	"encoding/json"
	"strings"
	"testing"
)

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("unmarshal %T: %v", v, err)
	}
	return v
}

// joinPtrs joins s with commas, writing null for nil entries.
func joinPtrs(s []*string) string {
	parts := make([]string, len(s))
	for i, p := range s {
		if p == nil {
			parts[i] = "null"
			continue
		}
		parts[i] = *p
	}
	return strings.Join(parts, ",")
}

// ─── NormalizeLegacy ──────────────────────────────────────────────────────────

func TestNormalizeLegacyFreeFollowsPrice(t *testing.T) {
	cases := []struct {
		json string
		free bool
	}{
		{`{"price": 0}`, true},
		{`{"price": 0.0}`, true},
		{`{"price": 0.99}`, false},
		{`{"price": 4}`, false},
		{`{}`, false},
	}
	for _, tc := range cases {
		rec := NormalizeLegacy(decode[RawSearchResult](t, tc.json))
		if rec.Free == nil {
			t.Fatalf("%s: free should always be set", tc.json)
		}
		if *rec.Free != tc.free {
			t.Errorf("%s: free = %v, want %v", tc.json, *rec.Free, tc.free)
		}
	}
}

func TestNormalizeLegacyFields(t *testing.T) {
	raw := decode[RawSearchResult](t, `{
		"wrapperType": "software",
		"trackId": 553834731,
		"bundleId": "com.midasplayer.apps.candycrushsaga",
		"trackName": "Candy Crush Saga",
		"artworkUrl100": "https://x/100.png",
		"artworkUrl60": "https://x/60.png",
		"genreIds": ["6014", 7003],
		"primaryGenreId": 6014,
		"fileSizeBytes": "312345600",
		"releaseDate": "2012-11-14T14:41:32Z",
		"price": 0,
		"currency": "USD",
		"artistId": "526656015",
		"averageUserRating": 4.7,
		"userRatingCount": 3000000,
		"screenshotUrls": ["a", "b"]
	}`)
	rec := NormalizeLegacy(raw)

	if rec.ID != "553834731" {
		t.Errorf("ID: got %q", rec.ID)
	}
	if got := *rec.AppID; got != "com.midasplayer.apps.candycrushsaga" {
		t.Errorf("AppID: got %q", got)
	}
	if got := *rec.Icon; got != "https://x/100.png" {
		t.Errorf("Icon should fall back to artworkUrl100, got %q", got)
	}
	if joinPtrs(rec.GenreIDs) != "6014,7003" {
		t.Errorf("GenreIDs: got %v", rec.GenreIDs)
	}
	if *rec.PrimaryGenreID != "6014" || *rec.DeveloperID != "526656015" || *rec.Size != "312345600" {
		t.Errorf("numeric ids not kept as text: %q %q %q", *rec.PrimaryGenreID, *rec.DeveloperID, *rec.Size)
	}
	if rec.Updated == nil || *rec.Updated != "2012-11-14T14:41:32Z" {
		t.Errorf("Updated should fall back to releaseDate, got %v", rec.Updated)
	}
	if *rec.Score != 4.7 || *rec.Reviews != 3000000 {
		t.Errorf("score/reviews: %v %v", *rec.Score, *rec.Reviews)
	}
	if len(rec.Screenshots) != 2 {
		t.Errorf("Screenshots: got %v", rec.Screenshots)
	}
}

func TestNormalizeLegacyIconPreference(t *testing.T) {
	rec := NormalizeLegacy(decode[RawSearchResult](t,
		`{"artworkUrl512":"512","artworkUrl100":"100","artworkUrl60":"60"}`))
	if *rec.Icon != "512" {
		t.Errorf("expected 512 icon, got %q", *rec.Icon)
	}
	rec = NormalizeLegacy(decode[RawSearchResult](t, `{"artworkUrl60":"60"}`))
	if *rec.Icon != "60" {
		t.Errorf("expected 60 icon, got %q", *rec.Icon)
	}
	rec = NormalizeLegacy(decode[RawSearchResult](t, `{}`))
	if rec.Icon != nil {
		t.Errorf("expected absent icon, got %q", *rec.Icon)
	}
}

func TestNormalizeLegacyEmptyKeepsFieldsAbsent(t *testing.T) {
	rec := NormalizeLegacy(RawSearchResult{})
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"free":false}` {
		t.Errorf("empty legacy record should only carry free, got %s", b)
	}
}

// ─── NormalizePlatform ────────────────────────────────────────────────────────

func TestNormalizePlatformNoGetOffer(t *testing.T) {
	for _, js := range []string{
		`{}`,
		`{"offers": []}`,
		`{"offers": [{"type": "buy", "price": 2.99, "currencyCode": "USD"}]}`,
	} {
		p := NormalizePlatform(decode[RawPlatformAttributes](t, js))
		if p.Price != 0 || !p.Free {
			t.Errorf("%s: price=%v free=%v, want 0/true", js, p.Price, p.Free)
		}
		if p.Currency != nil {
			t.Errorf("%s: currency should be absent", js)
		}
	}
}

func TestNormalizePlatformGetOffer(t *testing.T) {
	p := NormalizePlatform(decode[RawPlatformAttributes](t, `{
		"bundleId": "com.example.app",
		"description": {"standard": "An app"},
		"artwork": {"url": "https://x/{w}x{h}.png"},
		"minimumOSVersion": "15.0",
		"releaseDate": "2020-01-01",
		"currentVersionReleaseDate": "2024-05-01",
		"offers": [{"type": "get", "price": 1.99, "currencyCode": "EUR"}],
		"versionHistory": [
			{"versionDisplay": "3.1", "releaseDate": "2024-05-01"},
			{"versionDisplay": "3.0", "releaseDate": "2024-01-01"}
		],
		"customAttributes": {"default": {"default": {"customScreenshotsByType": {"iphone_6_5": [{"url": "s1"}]}}}},
		"supportURLForLanguage": "https://support"
	}`))

	if p.Price != 1.99 || p.Free {
		t.Errorf("price=%v free=%v", p.Price, p.Free)
	}
	if *p.Currency != "EUR" {
		t.Errorf("currency: %q", *p.Currency)
	}
	if *p.Version != "3.1" {
		t.Errorf("version should come from newest history entry, got %q", *p.Version)
	}
	if *p.Updated != "2024-05-01" {
		t.Errorf("updated: %q", *p.Updated)
	}
	if *p.Description != "An app" || *p.Icon != "https://x/{w}x{h}.png" || *p.SupportURL != "https://support" {
		t.Errorf("scalar fields not mapped: %+v", p)
	}
	if !strings.Contains(string(p.Screenshots), "iphone_6_5") {
		t.Errorf("screenshots: %s", p.Screenshots)
	}
	var history []map[string]any
	if err := json.Unmarshal(p.VersionHistory, &history); err != nil || len(history) != 2 {
		t.Errorf("version history: %s (%v)", p.VersionHistory, err)
	}
}

func TestNormalizePlatformKeepsVersionHistoryEntries(t *testing.T) {
	p := NormalizePlatform(decode[RawPlatformAttributes](t, `{
		"versionHistory": [{"versionDisplay": "2.0", "extraField": {"a": 1}}]
	}`))
	if !strings.Contains(string(p.VersionHistory), `"extraField"`) {
		t.Errorf("unknown history fields dropped: %s", p.VersionHistory)
	}
	if p.Version == nil || *p.Version != "2.0" {
		t.Errorf("version: %v", p.Version)
	}
}

func TestNormalizePlatformUpdatedFallsBackToReleaseDate(t *testing.T) {
	p := NormalizePlatform(decode[RawPlatformAttributes](t, `{"releaseDate": "2020-01-01"}`))
	if p.Updated == nil || *p.Updated != "2020-01-01" {
		t.Errorf("updated: %v", p.Updated)
	}
}

func TestNormalizePlatformToleratesPartialNesting(t *testing.T) {
	for _, js := range []string{
		`{"customAttributes": {}}`,
		`{"customAttributes": {"default": {}}}`,
		`{"customAttributes": {"default": {"default": {}}}}`,
		`{"customAttributes": {"default": {"default": {"customScreenshotsByType": null}}}}`,
		`{"versionHistory": []}`,
		`{"versionHistory": [{}]}`,
		`{"description": {}}`,
		`{"artwork": null}`,
	} {
		p := NormalizePlatform(decode[RawPlatformAttributes](t, js))
		if p.Screenshots != nil || p.Version != nil || p.Description != nil || p.Icon != nil {
			t.Errorf("%s: expected absent fields, got %+v", js, p)
		}
	}
}

// ─── NormalizeCatalog ─────────────────────────────────────────────────────────

func TestNormalizeCatalogRelationships(t *testing.T) {
	rec := NormalizeCatalog(decode[RawCatalogEntry](t, `{
		"id": "123456",
		"attributes": {
			"name": "Example",
			"artistName": "Example Inc.",
			"contentRatingsBySystem": {"appsApple": {"name": "4+"}},
			"userRating": {"value": 4.5, "ratingCount": 120},
			"fileSizeByDevice": {"iphone": 1024},
			"privacy": {"privacyTypes": []},
			"platformAttributes": {
				"ios": {"bundleId": "com.example.app", "offers": [{"type": "get", "price": 0}]},
				"osx": {"bundleId": "com.example.mac"}
			}
		},
		"relationships": {
			"genres": {"data": [
				{"id": "6014", "attributes": {"name": "Games"}},
				{"id": "7003", "attributes": {"name": "Casual"}}
			]},
			"developer": {"data": [{"id": "99", "attributes": {"url": "https://dev"}}]}
		}
	}`))

	if rec.ID != "123456" || *rec.Title != "Example" {
		t.Errorf("id/title: %q %v", rec.ID, rec.Title)
	}
	if *rec.PrimaryGenre != "Games" || *rec.PrimaryGenreID != "6014" {
		t.Errorf("primary genre: %v %v", *rec.PrimaryGenre, *rec.PrimaryGenreID)
	}
	if joinPtrs(rec.Genres) != "Games,Casual" || joinPtrs(rec.GenreIDs) != "6014,7003" {
		t.Errorf("genres: %v %v", rec.Genres, rec.GenreIDs)
	}
	if *rec.DeveloperID != "99" || *rec.DeveloperURL != "https://dev" || *rec.Developer != "Example Inc." {
		t.Errorf("developer: %v %v %v", *rec.DeveloperID, *rec.DeveloperURL, *rec.Developer)
	}
	if *rec.ContentRating != "4+" {
		t.Errorf("content rating: %q", *rec.ContentRating)
	}
	if *rec.Score != 4.5 || *rec.Reviews != 120 || rec.Sizes["iphone"] != 1024 {
		t.Errorf("score/reviews/sizes: %v %v %v", *rec.Score, *rec.Reviews, rec.Sizes)
	}
	if len(rec.Platforms) != 2 {
		t.Fatalf("platforms: %v", rec.Platforms)
	}
	ios := rec.Platforms["ios"]
	if *ios.AppID != "com.example.app" || !ios.Free {
		t.Errorf("ios platform: %+v", ios)
	}
	if !rec.Platforms["osx"].Free {
		t.Error("osx platform without offers should be free")
	}
	if rec.Free != nil || rec.Price != nil {
		t.Error("catalog records carry price per platform, not at top level")
	}
}

func TestNormalizeCatalogGenresStayAligned(t *testing.T) {
	rec := NormalizeCatalog(decode[RawCatalogEntry](t, `{"relationships": {"genres": {"data": [
		{"id": "6014"},
		{"id": "7012", "attributes": {"name": "Puzzle"}},
		{"attributes": {"name": "Casual"}}
	]}}}`))
	if got := joinPtrs(rec.Genres); got != "null,Puzzle,Casual" {
		t.Errorf("genres: %s", got)
	}
	if got := joinPtrs(rec.GenreIDs); got != "6014,7012,null" {
		t.Errorf("genre ids: %s", got)
	}
	if rec.PrimaryGenre != nil || *rec.PrimaryGenreID != "6014" {
		t.Errorf("primary genre: %v %v", rec.PrimaryGenre, rec.PrimaryGenreID)
	}
}

func TestNormalizeCatalogEmptyGenres(t *testing.T) {
	rec := NormalizeCatalog(decode[RawCatalogEntry](t, `{"relationships": {"genres": {"data": []}}}`))
	if rec.PrimaryGenre != nil || rec.PrimaryGenreID != nil {
		t.Errorf("primary genre should be absent for empty genre list")
	}
}

func TestNormalizeCatalogToleratesMissingEverything(t *testing.T) {
	for _, js := range []string{
		`{}`,
		`{"attributes": {}}`,
		`{"attributes": null, "relationships": null}`,
		`{"relationships": {}}`,
		`{"relationships": {"developer": {"data": []}, "genres": {}}}`,
		`{"relationships": {"genres": {"data": [{}]}}}`,
		`{"attributes": {"contentRatingsBySystem": {}, "userRating": {}, "privacy": null}}`,
	} {
		rec := NormalizeCatalog(decode[RawCatalogEntry](t, js))
		b, err := json.Marshal(rec)
		if err != nil {
			t.Fatalf("%s: marshal: %v", js, err)
		}
		if strings.Contains(string(b), "null") {
			t.Errorf("%s: absent input produced null output: %s", js, b)
		}
	}
}

package appstore

import (
	"bytes"
	"encoding/json"

	"github.com/derickschaefer/appmeta/internal/model"
)

// NormalizeLegacy maps a lookup/search result onto the canonical record.
// Free is always set and is true only when a price is present and equals 0.
func NormalizeLegacy(r RawSearchResult) model.AppRecord {
	free := r.Price != nil && *r.Price == 0
	rec := model.AppRecord{
		AppID:                 r.BundleID,
		Title:                 r.TrackName,
		URL:                   r.TrackViewURL,
		Description:           r.Description,
		Icon:                  firstNonEmpty(r.ArtworkURL512, r.ArtworkURL100, r.ArtworkURL60),
		Genres:                stringPtrs(r.Genres),
		GenreIDs:              flexStrings(r.GenreIDs),
		PrimaryGenre:          r.PrimaryGenreName,
		PrimaryGenreID:        flexPtr(r.PrimaryGenreID),
		ContentRating:         r.ContentAdvisoryRating,
		Languages:             r.LanguageCodesISO2A,
		Size:                  flexPtr(r.FileSizeBytes),
		RequiredOSVersion:     r.MinimumOSVersion,
		Released:              r.ReleaseDate,
		Updated:               firstNonEmpty(r.CurrentVersionReleaseDate, r.ReleaseDate),
		ReleaseNotes:          r.ReleaseNotes,
		Version:               r.Version,
		Price:                 r.Price,
		Currency:              r.Currency,
		Free:                  &free,
		DeveloperID:           flexPtr(r.ArtistID),
		Developer:             r.ArtistName,
		DeveloperURL:          r.ArtistViewURL,
		DeveloperWebsite:      r.SellerURL,
		Score:                 r.AverageUserRating,
		Reviews:               r.UserRatingCount,
		CurrentVersionScore:   r.AverageUserRatingForCurrentVersion,
		CurrentVersionReviews: r.UserRatingCountForCurrentVersion,
		Screenshots:           r.ScreenshotURLs,
		IpadScreenshots:       r.IpadScreenshotURLs,
		AppletvScreenshots:    r.AppletvScreenshotURLs,
		SupportedDevices:      r.SupportedDevices,
	}
	if id := flexPtr(r.TrackID); id != nil {
		rec.ID = *id
	}
	return rec
}

// NormalizeCatalog maps a catalog API entry onto the canonical record.
// Genres and developer come from relationships; each platformAttributes key
// becomes one entry of Platforms.
func NormalizeCatalog(e RawCatalogEntry) model.AppRecord {
	var rec model.AppRecord
	if e.ID != nil {
		rec.ID = *e.ID
	}

	if rel := e.Relationships; rel != nil {
		if rel.Genres != nil && rel.Genres.Data != nil {
			genres := rel.Genres.Data
			// one slot per genre in both slices; a missing name or id is null
			rec.Genres = make([]*string, len(genres))
			rec.GenreIDs = make([]*string, len(genres))
			for i, g := range genres {
				rec.Genres[i] = g.name()
				rec.GenreIDs[i] = g.ID
			}
			if len(genres) > 0 {
				rec.PrimaryGenre = genres[0].name()
				rec.PrimaryGenreID = genres[0].ID
			}
		}
		if rel.Developer != nil && len(rel.Developer.Data) > 0 {
			dev := rel.Developer.Data[0]
			rec.DeveloperID = dev.ID
			rec.DeveloperURL = dev.url()
		}
	}

	a := e.Attributes
	if a == nil {
		return rec
	}
	rec.Title = a.Name
	rec.URL = a.URL
	if rating, ok := a.ContentRatingsBySystem["appsApple"]; ok {
		rec.ContentRating = rating.Name
	}
	rec.Sizes = a.FileSizeByDevice
	rec.Developer = a.ArtistName
	rec.DeveloperWebsite = a.SellerURL
	if a.UserRating != nil {
		rec.Score = a.UserRating.Value
		rec.Reviews = a.UserRating.RatingCount
	}
	rec.Privacy = rawOrNil(a.Privacy)
	rec.DeviceFamilies = a.DeviceFamilies

	if len(a.PlatformAttributes) > 0 {
		rec.Platforms = make(map[string]model.PlatformRecord, len(a.PlatformAttributes))
		for name, p := range a.PlatformAttributes {
			rec.Platforms[name] = NormalizePlatform(p)
		}
	}
	return rec
}

// NormalizePlatform maps one platformAttributes value. Price comes from the
// first offer of type "get" and defaults to 0.
func NormalizePlatform(p RawPlatformAttributes) model.PlatformRecord {
	var offer *rawOffer
	for i := range p.Offers {
		if p.Offers[i].Type == "get" {
			offer = &p.Offers[i]
			break
		}
	}
	price := 0.0
	var currency *string
	if offer != nil {
		if offer.Price != nil {
			price = *offer.Price
		}
		currency = offer.CurrencyCode
	}

	rec := model.PlatformRecord{
		AppID:             p.BundleID,
		RequiredOSVersion: p.MinimumOSVersion,
		Released:          p.ReleaseDate,
		Updated:           firstNonEmpty(p.CurrentVersionReleaseDate, p.ReleaseDate),
		Price:             price,
		Currency:          currency,
		Free:              price == 0,
		WebsiteURL:        p.WebsiteURL,
		PrivacyURL:        p.PrivacyPolicyURL,
		SupportURL:        p.SupportURLForLanguage,
	}
	if p.Description != nil {
		rec.Description = p.Description.Standard
	}
	if p.Artwork != nil {
		rec.Icon = p.Artwork.URL
	}
	if history := rawOrNil(p.VersionHistory); history != nil {
		rec.VersionHistory = history
		var entries []rawVersionEntry
		if err := json.Unmarshal(history, &entries); err == nil && len(entries) > 0 {
			rec.Version = firstNonEmpty(entries[0].VersionDisplay)
		}
	}
	if ca := p.CustomAttributes; ca != nil && ca.Default != nil && ca.Default.Default != nil {
		rec.Screenshots = rawOrNil(ca.Default.Default.CustomScreenshotsByType)
	}
	return rec
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (r rawResource) name() *string {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes.Name
}

func (r rawResource) url() *string {
	if r.Attributes == nil {
		return nil
	}
	return r.Attributes.URL
}

// firstNonEmpty returns the first pointer that holds a non-empty string.
func firstNonEmpty(vals ...*string) *string {
	for _, v := range vals {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}

func flexPtr(f *FlexString) *string {
	if f == nil || *f == "" {
		return nil
	}
	s := string(*f)
	return &s
}

func flexStrings(in []FlexString) []*string {
	if in == nil {
		return nil
	}
	out := make([]*string, len(in))
	for i := range in {
		s := string(in[i])
		out[i] = &s
	}
	return out
}

func stringPtrs(in []string) []*string {
	if in == nil {
		return nil
	}
	out := make([]*string, len(in))
	for i := range in {
		out[i] = &in[i]
	}
	return out
}

// rawOrNil drops JSON null so it renders as an absent field.
func rawOrNil(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null")) {
		return nil
	}
	return m
}

// Package model defines the canonical data types used throughout appmeta.
// These types are the single source of truth for normalized App Store
// entities and the result envelope that every command returns.
package model

import (
	"encoding/json"
	"time"
)

// ─── App Store Entity Types ───────────────────────────────────────────────────

// AppRecord is the canonical app record. It has the same shape whether it was
// produced from a legacy lookup result or from a catalog API entry.
//
// Optional fields are pointers or nil slices/maps tagged omitempty so that a
// value the provider did not send is absent rather than zero.
type AppRecord struct {
	ID                    string                    `json:"id,omitempty"`
	AppID                 *string                   `json:"appId,omitempty"`
	Title                 *string                   `json:"title,omitempty"`
	URL                   *string                   `json:"url,omitempty"`
	Description           *string                   `json:"description,omitempty"`
	Icon                  *string                   `json:"icon,omitempty"`
	Genres                []*string                 `json:"genres,omitempty"`
	GenreIDs              []*string                 `json:"genreIds,omitempty"`
	PrimaryGenre          *string                   `json:"primaryGenre,omitempty"`
	PrimaryGenreID        *string                   `json:"primaryGenreId,omitempty"`
	ContentRating         *string                   `json:"contentRating,omitempty"`
	Languages             []string                  `json:"languages,omitempty"`
	Size                  *string                   `json:"size,omitempty"`
	Sizes                 map[string]int64          `json:"sizes,omitempty"`
	RequiredOSVersion     *string                   `json:"requiredOsVersion,omitempty"`
	Released              *string                   `json:"released,omitempty"`
	Updated               *string                   `json:"updated,omitempty"`
	ReleaseNotes          *string                   `json:"releaseNotes,omitempty"`
	Version               *string                   `json:"version,omitempty"`
	Price                 *float64                  `json:"price,omitempty"`
	Currency              *string                   `json:"currency,omitempty"`
	Free                  *bool                     `json:"free,omitempty"`
	DeveloperID           *string                   `json:"developerId,omitempty"`
	Developer             *string                   `json:"developer,omitempty"`
	DeveloperURL          *string                   `json:"developerUrl,omitempty"`
	DeveloperWebsite      *string                   `json:"developerWebsite,omitempty"`
	Score                 *float64                  `json:"score,omitempty"`
	Reviews               *int64                    `json:"reviews,omitempty"`
	CurrentVersionScore   *float64                  `json:"currentVersionScore,omitempty"`
	CurrentVersionReviews *int64                    `json:"currentVersionReviews,omitempty"`
	Screenshots           []string                  `json:"screenshots,omitempty"`
	IpadScreenshots       []string                  `json:"ipadScreenshots,omitempty"`
	AppletvScreenshots    []string                  `json:"appletvScreenshots,omitempty"`
	SupportedDevices      []string                  `json:"supportedDevices,omitempty"`
	Privacy               json.RawMessage           `json:"privacy,omitempty"`
	DeviceFamilies        []string                  `json:"deviceFamilies,omitempty"`
	Platforms             map[string]PlatformRecord `json:"platforms,omitempty"`
}

// PlatformRecord is the per-platform part of a catalog-derived AppRecord
// (keys such as "ios", "osx", "appletv").
// Price and Free are always present: Price is 0 when there is no "get" offer.
type PlatformRecord struct {
	AppID             *string         `json:"appId,omitempty"`
	Description       *string         `json:"description,omitempty"`
	Icon              *string         `json:"icon,omitempty"`
	RequiredOSVersion *string         `json:"requiredOsVersion,omitempty"`
	Released          *string         `json:"released,omitempty"`
	Updated           *string         `json:"updated,omitempty"`
	VersionHistory    json.RawMessage `json:"versionHistory,omitempty"`
	Version           *string         `json:"version,omitempty"`
	Price             float64         `json:"price"`
	Currency          *string         `json:"currency,omitempty"`
	Free              bool            `json:"free"`
	Screenshots       json.RawMessage `json:"screenshots,omitempty"`
	WebsiteURL        *string         `json:"websiteUrl,omitempty"`
	PrivacyURL        *string         `json:"privacyUrl,omitempty"`
	SupportURL        *string         `json:"supportUrl,omitempty"`
}

// PrivacyRecord wraps the opaque privacyDetails payload with the app it
// belongs to, for storage and rendering.
type PrivacyRecord struct {
	ID      string          `json:"id"`
	Country string          `json:"country"`
	Details json.RawMessage `json:"privacyDetails"`
}

// ResolvedID pairs a bundle identifier with the numeric store ID it maps to.
type ResolvedID struct {
	BundleID string `json:"bundleId"`
	ID       string `json:"id"`
}

// Table is a generic header + rows payload used by store and config listings.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance metadata for a command result.
type ResultStats struct {
	Stored     bool  `json:"stored"`
	DurationMs int64 `json:"duration_ms"`
	Items      int   `json:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind"`
	GeneratedAt time.Time   `json:"generated_at"`
	Command     string      `json:"command"`
	Data        interface{} `json:"data"`
	Warnings    []string    `json:"warnings,omitempty"`
	Stats       ResultStats `json:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindApp     = "app"
	KindApps    = "apps"
	KindPrivacy = "privacy"
	KindAppID   = "app_id"
	KindTable   = "table"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// Str returns the pointed-to string or "" when p is nil. Renderers use it
// to print optional fields.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

package appstore

import (
	"bytes"
	"encoding/json"
)

// FlexString accepts a JSON string or number and keeps its textual form.
// The lookup endpoint is inconsistent about quoting numeric IDs and sizes.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = FlexString(num.String())
	return nil
}

// ─── Legacy lookup shape ──────────────────────────────────────────────────────

// lookupResponse is the envelope returned by the lookup endpoint.
type lookupResponse struct {
	ResultCount int               `json:"resultCount"`
	Results     []RawSearchResult `json:"results"`
}

// RawSearchResult is one item of a lookup/search response.
// Every field may be missing.
type RawSearchResult struct {
	WrapperType                        *string      `json:"wrapperType"`
	TrackID                            *FlexString  `json:"trackId"`
	BundleID                           *string      `json:"bundleId"`
	TrackName                          *string      `json:"trackName"`
	TrackViewURL                       *string      `json:"trackViewUrl"`
	Description                        *string      `json:"description"`
	ArtworkURL512                      *string      `json:"artworkUrl512"`
	ArtworkURL100                      *string      `json:"artworkUrl100"`
	ArtworkURL60                       *string      `json:"artworkUrl60"`
	Genres                             []string     `json:"genres"`
	GenreIDs                           []FlexString `json:"genreIds"`
	PrimaryGenreName                   *string      `json:"primaryGenreName"`
	PrimaryGenreID                     *FlexString  `json:"primaryGenreId"`
	ContentAdvisoryRating              *string      `json:"contentAdvisoryRating"`
	LanguageCodesISO2A                 []string     `json:"languageCodesISO2A"`
	FileSizeBytes                      *FlexString  `json:"fileSizeBytes"`
	MinimumOSVersion                   *string      `json:"minimumOsVersion"`
	ReleaseDate                        *string      `json:"releaseDate"`
	CurrentVersionReleaseDate          *string      `json:"currentVersionReleaseDate"`
	ReleaseNotes                       *string      `json:"releaseNotes"`
	Version                            *string      `json:"version"`
	Price                              *float64     `json:"price"`
	Currency                           *string      `json:"currency"`
	ArtistID                           *FlexString  `json:"artistId"`
	ArtistName                         *string      `json:"artistName"`
	ArtistViewURL                      *string      `json:"artistViewUrl"`
	SellerURL                          *string      `json:"sellerUrl"`
	AverageUserRating                  *float64     `json:"averageUserRating"`
	UserRatingCount                    *int64       `json:"userRatingCount"`
	AverageUserRatingForCurrentVersion *float64     `json:"averageUserRatingForCurrentVersion"`
	UserRatingCountForCurrentVersion   *int64       `json:"userRatingCountForCurrentVersion"`
	ScreenshotURLs                     []string     `json:"screenshotUrls"`
	IpadScreenshotURLs                 []string     `json:"ipadScreenshotUrls"`
	AppletvScreenshotURLs              []string     `json:"appletvScreenshotUrls"`
	SupportedDevices                   []string     `json:"supportedDevices"`
}

// isSoftware reports whether the result is an app. The lookup endpoint also
// returns non-app entities for some bundle IDs.
func (r RawSearchResult) isSoftware() bool {
	return r.WrapperType == nil || *r.WrapperType == "software"
}

// ─── Catalog API shape ────────────────────────────────────────────────────────

// catalogResponse is the envelope returned by the catalog apps endpoint.
type catalogResponse struct {
	Data []RawCatalogEntry `json:"data"`
}

// RawCatalogEntry is one item of a catalog API response.
type RawCatalogEntry struct {
	ID            *string           `json:"id"`
	Attributes    *RawAttributes    `json:"attributes"`
	Relationships *RawRelationships `json:"relationships"`
}

// RawAttributes holds the top-level catalog attributes of an app.
type RawAttributes struct {
	Name                   *string                          `json:"name"`
	URL                    *string                          `json:"url"`
	ArtistName             *string                          `json:"artistName"`
	SellerURL              *string                          `json:"sellerUrl"`
	ContentRatingsBySystem map[string]rawContentRating      `json:"contentRatingsBySystem"`
	FileSizeByDevice       map[string]int64                 `json:"fileSizeByDevice"`
	UserRating             *rawUserRating                   `json:"userRating"`
	Privacy                json.RawMessage                  `json:"privacy"`
	PrivacyDetails         json.RawMessage                  `json:"privacyDetails"`
	DeviceFamilies         []string                         `json:"deviceFamilies"`
	PlatformAttributes     map[string]RawPlatformAttributes `json:"platformAttributes"`
}

type rawContentRating struct {
	Name *string `json:"name"`
}

type rawUserRating struct {
	Value       *float64 `json:"value"`
	RatingCount *int64   `json:"ratingCount"`
}

// RawRelationships holds the related resources of a catalog entry.
// The first element of each Data slice is the primary one.
type RawRelationships struct {
	Genres    *rawRelationship `json:"genres"`
	Developer *rawRelationship `json:"developer"`
}

type rawRelationship struct {
	Data []rawResource `json:"data"`
}

type rawResource struct {
	ID         *string `json:"id"`
	Attributes *struct {
		Name *string `json:"name"`
		URL  *string `json:"url"`
	} `json:"attributes"`
}

// RawPlatformAttributes is the per-platform sub-object of a catalog entry.
type RawPlatformAttributes struct {
	BundleID                  *string              `json:"bundleId"`
	Description               *rawText             `json:"description"`
	Artwork                   *rawArtwork          `json:"artwork"`
	MinimumOSVersion          *string              `json:"minimumOSVersion"`
	ReleaseDate               *string              `json:"releaseDate"`
	CurrentVersionReleaseDate *string              `json:"currentVersionReleaseDate"`
	VersionHistory            json.RawMessage      `json:"versionHistory"`
	Offers                    []rawOffer           `json:"offers"`
	CustomAttributes          *rawCustomAttributes `json:"customAttributes"`
	WebsiteURL                *string              `json:"websiteUrl"`
	PrivacyPolicyURL          *string              `json:"privacyPolicyUrl"`
	SupportURLForLanguage     *string              `json:"supportURLForLanguage"`
}

type rawText struct {
	Standard *string `json:"standard"`
}

type rawArtwork struct {
	URL *string `json:"url"`
}

// rawVersionEntry reads the one field of a version history item that feeds
// the platform's Version. The history itself is passed through untouched.
type rawVersionEntry struct {
	VersionDisplay *string `json:"versionDisplay"`
}

type rawOffer struct {
	Type         string   `json:"type"`
	Price        *float64 `json:"price"`
	CurrencyCode *string  `json:"currencyCode"`
}

// rawCustomAttributes mirrors customAttributes.default.default.
type rawCustomAttributes struct {
	Default *struct {
		Default *struct {
			CustomScreenshotsByType json.RawMessage `json:"customScreenshotsByType"`
		} `json:"default"`
	} `json:"default"`
}

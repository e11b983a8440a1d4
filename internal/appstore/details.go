package appstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/derickschaefer/appmeta/internal/model"
)

// detailParams is the fixed parameter set for a full detail request.
var detailParams = []Param{
	{Key: "additionalPlatforms", Value: "appletv,ipad,iphone,mac,realityDevice"},
	{Key: "extend", Value: "customPromotionalText,customScreenshotsByType,customVideoPreviewsByType," +
		"description,developerInfo,distributionKind,editorialVideo,fileSizeByDevice," +
		"messagesScreenshots,privacy,privacyPolicyUrl,requirementsByDeviceFamily,sellerInfo," +
		"supportURLForLanguage,versionHistory,websiteUrl,videoPreviewsByType"},
	{Key: "include", Value: "genres,developer,reviews"},
}

// privacyParams restricts the catalog response to the privacy label.
var privacyParams = []Param{
	{Key: "fields", Value: "privacyDetails"},
}

// DetailsOptions selects the app for Details. One of ID (numeric store ID)
// or AppID (bundle ID) is required; ID wins when both are set.
type DetailsOptions struct {
	ID             string
	AppID          string
	Country        string
	Lang           string
	RequestOptions RequestOptions
	RateLimit      int
}

// Details fetches the full catalog record for an app. A bundle ID is first
// resolved to a numeric ID through the lookup endpoint.
func (c *Client) Details(ctx context.Context, opts DetailsOptions) (*model.AppRecord, error) {
	if opts.ID == "" && opts.AppID == "" {
		return nil, missing("id or appId")
	}

	id := opts.ID
	if id == "" {
		resolved, err := c.ResolveID(ctx, opts.AppID, LookupOptions{
			Country:        opts.Country,
			Lang:           opts.Lang,
			RequestOptions: opts.RequestOptions,
			RateLimit:      opts.RateLimit,
		})
		if err != nil {
			return nil, err
		}
		id = resolved
	}

	entry, err := c.FetchCatalogEntry(ctx, id, opts.Country, detailParams, opts.RequestOptions, opts.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("details %s: %w", id, err)
	}
	rec := NormalizeCatalog(*entry)
	return &rec, nil
}

// PrivacyOptions selects the app for Privacy. Only a numeric ID is accepted;
// callers holding a bundle ID resolve it with ResolveID first.
type PrivacyOptions struct {
	ID             string
	Country        string
	RequestOptions RequestOptions
}

// Privacy returns the app's privacyDetails exactly as the catalog API sent it.
// The result is nil when the app has no privacy label.
func (c *Client) Privacy(ctx context.Context, opts PrivacyOptions) (json.RawMessage, error) {
	if opts.ID == "" {
		return nil, missing("id")
	}
	entry, err := c.FetchCatalogEntry(ctx, opts.ID, opts.Country, privacyParams, opts.RequestOptions, 0)
	if err != nil {
		return nil, fmt.Errorf("privacy %s: %w", opts.ID, err)
	}
	if entry.Attributes == nil {
		return nil, nil
	}
	return rawOrNil(entry.Attributes.PrivacyDetails), nil
}

package assets

import (
	"context"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/metadata"
	"github.com/footprintai/amzappstore/internal/ui"
)

// ListingAPI is the subset of the Appstore client used to upload listing text
type ListingAPI interface {
	GetListings(ctx context.Context, app, editID string) (appstore.Tagged[appstore.Listings], error)
	PutListing(ctx context.Context, app, editID, lang, etag string, listing appstore.Listing) (*appstore.Listing, error)
}

// ListingSource provides the local listing text per language
type ListingSource interface {
	Languages() ([]string, error)
	Listing(lang string) (metadata.ListingText, error)
}

// MetadataUploader writes local listing text into the edit
type MetadataUploader struct {
	api    ListingAPI
	source ListingSource
	logger ui.Logger
}

// NewMetadataUploader creates a metadata uploader
func NewMetadataUploader(api ListingAPI, source ListingSource, logger ui.Logger) *MetadataUploader {
	if logger == nil {
		logger = ui.Nop{}
	}
	return &MetadataUploader{api: api, source: source, logger: logger}
}

// Upload submits the listing text of every language that has any. Non-empty
// local fields replace the remote ones; recentChanges and unknown fields are
// kept.
func (u *MetadataUploader) Upload(ctx context.Context, app, editID string) *Report {
	report := &Report{}

	langs, err := u.source.Languages()
	if err != nil {
		report.fail("", "", "", err)
		return report
	}

	for _, lang := range langs {
		text, err := u.source.Listing(lang)
		if err != nil {
			u.logger.Error("Failed to read metadata for %s: %v", lang, err)
			report.fail(lang, "", "", err)
			continue
		}
		if text.IsEmpty() {
			u.logger.Verbose("No metadata for %s, skipping", lang)
			report.Skipped++
			continue
		}

		current, err := u.api.GetListings(ctx, app, editID)
		if err != nil {
			u.logger.Error("Failed to read listing for %s: %v", lang, err)
			report.fail(lang, "", "", err)
			continue
		}

		entry, ok := current.Value.Listings[lang]
		if !ok {
			entry = appstore.Listing{Language: lang}
		}
		entry = overlay(entry, text)

		if _, err := u.api.PutListing(ctx, app, editID, lang, current.ETag, entry); err != nil {
			u.logger.Error("Failed to upload metadata for %s: %v", lang, err)
			report.fail(lang, "", "", err)
			continue
		}
		u.logger.Message("Uploaded metadata for %s", lang)
		report.Uploaded++
	}

	return report
}

func overlay(entry appstore.Listing, text metadata.ListingText) appstore.Listing {
	if text.Title != "" {
		entry.Title = text.Title
	}
	if text.ShortDescription != "" {
		entry.ShortDescription = text.ShortDescription
	}
	if text.FullDescription != "" {
		entry.FullDescription = text.FullDescription
	}
	if len(text.FeatureBullets) > 0 {
		entry.FeatureBullets = text.FeatureBullets
	}
	if len(text.Keywords) > 0 {
		entry.Keywords = text.Keywords
	}
	return entry
}

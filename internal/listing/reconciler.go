package listing

import (
	"context"
	"sort"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/ui"
)

// API is the subset of the Appstore client used to update listings
type API interface {
	GetListings(ctx context.Context, app, editID string) (appstore.Tagged[appstore.Listings], error)
	PutListing(ctx context.Context, app, editID, lang, etag string, listing appstore.Listing) (*appstore.Listing, error)
}

// Result is the changelog outcome for one language
type Result struct {
	Language string
	Outcome  Outcome
	Source   string

	// Changelog is the recentChanges text submitted for the language
	Changelog string
}

// Reconciler writes changelogs into every listing of an edit
type Reconciler struct {
	api    API
	source ChangelogSource
	logger ui.Logger
}

// NewReconciler creates a listing reconciler. source may be nil when no
// metadata tree is available.
func NewReconciler(api API, source ChangelogSource, logger ui.Logger) *Reconciler {
	if logger == nil {
		logger = ui.Nop{}
	}
	return &Reconciler{api: api, source: source, logger: logger}
}

// UpdateListingsForVersions updates every listing with the changelog of the
// highest version code. One changelog is shared by all APKs of a release.
func (r *Reconciler) UpdateListingsForVersions(ctx context.Context, app, editID string, versions []appstore.VersionCode, skip bool) ([]Result, error) {
	return r.UpdateListings(ctx, app, editID, MaxVersionCode(versions), skip)
}

// UpdateListings updates the recentChanges field of every listing in the
// edit. The collection is re-read before each write for a fresh ETag. Any
// failure aborts the remaining languages.
func (r *Reconciler) UpdateListings(ctx context.Context, app, editID string, version appstore.VersionCode, skip bool) ([]Result, error) {
	current, err := r.api.GetListings(ctx, app, editID)
	if err != nil {
		return nil, err
	}

	langs := make([]string, 0, len(current.Value.Listings))
	for lang := range current.Value.Listings {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	results := make([]Result, 0, len(langs))
	for _, lang := range langs {
		fresh, err := r.api.GetListings(ctx, app, editID)
		if err != nil {
			return results, err
		}

		entry, ok := fresh.Value.Listings[lang]
		if !ok {
			entry = current.Value.Listings[lang]
		}

		sel := SelectChangelog(r.source, lang, version, skip)
		switch sel.Outcome {
		case Updated:
			entry = entry.WithChangelog(sel.Text)
			r.logger.Verbose("Using %s for %s", sel.Source, lang)
		case Skipped:
			entry = entry.WithChangelog(sel.Text)
		case Unchanged:
			r.logger.Message("No changelog found for %s (versionCode %s), keeping %q", lang, version, entry.Changelog())
		}

		if _, err := r.api.PutListing(ctx, app, editID, lang, fresh.ETag, entry); err != nil {
			return results, err
		}
		r.logger.Message("Updated listing for %s (%s)", lang, sel.Outcome)

		results = append(results, Result{
			Language:  lang,
			Outcome:   sel.Outcome,
			Source:    sel.Source,
			Changelog: entry.Changelog(),
		})
	}

	return results, nil
}

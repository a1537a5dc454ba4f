// Package workflow sequences a complete publish run against the Appstore:
// authenticate, resolve the edit, reconcile APKs and listings, upload assets,
// then commit or leave the edit open.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/footprintai/amzappstore/internal/apk"
	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/assets"
	"github.com/footprintai/amzappstore/internal/edit"
	"github.com/footprintai/amzappstore/internal/events"
	"github.com/footprintai/amzappstore/internal/listing"
	"github.com/footprintai/amzappstore/internal/metadata"
	"github.com/footprintai/amzappstore/internal/ui"
)

// Event stage names
const (
	StagePrecheck    = "precheck"
	StageToken       = "token"
	StageEdit        = "edit"
	StageAPKs        = "apks"
	StageListings    = "listings"
	StageMetadata    = "metadata"
	StageImages      = "images"
	StageScreenshots = "screenshots"
	StageCommit      = "commit"
)

// Authenticator exchanges the configured credentials for an access token
type Authenticator interface {
	Token(ctx context.Context) (string, error)
}

// API is everything a run needs from the Appstore client
type API interface {
	edit.API
	apk.API
	listing.API
	assets.ImageAPI
}

// Options configures one run
type Options struct {
	PackageName  string
	APKPaths     []string
	MetadataPath string

	SkipUploadAPK         bool
	SkipUploadChangelogs  bool
	SkipUploadMetadata    bool
	SkipUploadImages      bool
	SkipUploadScreenshots bool

	// ChangesNotSentForReview leaves the edit open instead of committing it
	ChangesNotSentForReview bool

	EditPolicy edit.Policy
}

// Result describes a successful run
type Result struct {
	RunID       string
	EditID      string
	APKs        []apk.Result
	Listings    []listing.Result
	Metadata    *assets.Report
	Images      *assets.Report
	Screenshots *assets.Report
	Committed   bool
}

// Publisher runs the publish workflow
type Publisher struct {
	auth   Authenticator
	newAPI func(token string) API
	logger ui.Logger
	bus    *events.Bus
}

// NewPublisher creates a publisher. newAPI builds the API client once the
// token is known.
func NewPublisher(auth Authenticator, newAPI func(token string) API, logger ui.Logger) *Publisher {
	if logger == nil {
		logger = ui.Nop{}
	}
	return &Publisher{auth: auth, newAPI: newAPI, logger: logger}
}

// WithEvents publishes run progress on bus
func (p *Publisher) WithEvents(bus *events.Bus) *Publisher {
	p.bus = bus
	return p
}

// run holds the state of one invocation
type run struct {
	*Publisher
	opts    Options
	emitter *events.Emitter
	result  *Result
}

// Run executes the workflow. Any fatal step aborts the run with a
// *StageError; the open edit is left for the next run's policy to handle.
func (p *Publisher) Run(ctx context.Context, opts Options) (*Result, error) {
	r := &run{
		Publisher: p,
		opts:      opts,
		emitter:   events.NewEmitter(p.bus),
	}
	r.result = &Result{RunID: r.emitter.RunID()}
	r.emitter.RunStarted(opts.PackageName)

	if err := r.execute(ctx); err != nil {
		r.emitter.RunFailed(err)
		return nil, err
	}

	if r.result.Committed {
		r.logger.Success("Successfully finished the upload to Amazon Appstore")
		r.emitter.RunSucceeded("committed edit " + r.result.EditID)
	} else {
		r.logger.Success("Successfully finished the upload to Amazon Appstore (edit %s left open, changes not sent for review)", r.result.EditID)
		r.emitter.RunSucceeded("left edit " + r.result.EditID + " open")
	}
	return r.result, nil
}

// fail logs the cause, emits the failure and wraps it with the stage label
func (r *run) fail(stage, label string, err error) error {
	r.logger.Error("%v", err)
	r.emitter.StageFailed(stage, err)
	return &StageError{Label: label, Err: err}
}

func (r *run) begin(stage, format string, args ...interface{}) {
	r.logger.Message(ui.Separator)
	r.logger.Important(format, args...)
	r.logger.Message(ui.Separator)
	r.emitter.StageStarted(stage)
}

func (r *run) execute(ctx context.Context) error {
	opts := r.opts

	if !opts.SkipUploadAPK && len(opts.APKPaths) == 0 {
		return r.fail(StagePrecheck, LabelNoAPKs, apk.ErrNoBinaries)
	}

	r.begin(StageToken, "Getting token")
	token, err := r.auth.Token(ctx)
	if err != nil {
		return r.fail(StageToken, LabelToken, err)
	}
	if token == "" {
		return r.fail(StageToken, LabelToken, ErrNoToken)
	}
	r.emitter.StageCompleted(StageToken, "")
	api := r.newAPI(token)

	r.begin(StageEdit, "Opening edit (%s)", opts.EditPolicy)
	editID, err := edit.NewManager(api, r.logger).Resolve(ctx, opts.PackageName, opts.EditPolicy)
	if err != nil {
		if errors.Is(err, edit.ErrNoEditID) {
			return r.fail(StageEdit, LabelEditID, err)
		}
		return r.fail(StageEdit, LabelCreateEdits, err)
	}
	r.result.EditID = editID
	r.logger.Message("Using edit %s", editID)
	r.emitter.StageCompleted(StageEdit, editID)

	versions, err := r.reconcileAPKs(ctx, api, editID)
	if err != nil {
		return err
	}

	tree := metadata.NewTree(opts.MetadataPath)

	r.begin(StageListings, "Updating recent changes")
	listings := listing.NewReconciler(api, tree, r.logger)
	if len(versions) == 1 {
		r.result.Listings, err = listings.UpdateListings(ctx, opts.PackageName, editID, versions[0], opts.SkipUploadChangelogs)
	} else {
		r.result.Listings, err = listings.UpdateListingsForVersions(ctx, opts.PackageName, editID, versions, opts.SkipUploadChangelogs)
	}
	if err != nil {
		return r.fail(StageListings, LabelUpdateListings, err)
	}
	r.emitter.StageCompleted(StageListings, fmt.Sprintf("%d languages", len(r.result.Listings)))

	if opts.SkipUploadMetadata {
		r.emitter.StageSkipped(StageMetadata)
	} else {
		r.begin(StageMetadata, "Uploading metadata")
		r.result.Metadata = assets.NewMetadataUploader(api, tree, r.logger).Upload(ctx, opts.PackageName, editID)
		r.finishAssets(StageMetadata, r.result.Metadata)
	}

	images := assets.NewImageUploader(api, tree, r.logger)

	if opts.SkipUploadImages {
		r.emitter.StageSkipped(StageImages)
	} else {
		r.begin(StageImages, "Uploading images")
		r.result.Images = images.Upload(ctx, opts.PackageName, editID, metadata.ImageCategories())
		r.finishAssets(StageImages, r.result.Images)
	}

	if opts.SkipUploadScreenshots {
		r.emitter.StageSkipped(StageScreenshots)
	} else {
		r.begin(StageScreenshots, "Uploading screenshots")
		r.result.Screenshots = images.Upload(ctx, opts.PackageName, editID, metadata.ScreenshotCategories())
		r.finishAssets(StageScreenshots, r.result.Screenshots)
	}

	if opts.ChangesNotSentForReview {
		r.emitter.StageSkipped(StageCommit)
		return nil
	}

	r.begin(StageCommit, "Committing edit")
	if err := edit.NewManager(api, r.logger).Commit(ctx, opts.PackageName, editID); err != nil {
		return r.fail(StageCommit, LabelCommitEdits, err)
	}
	r.result.Committed = true
	r.emitter.StageCompleted(StageCommit, editID)
	return nil
}

// reconcileAPKs uploads the local APKs, or lists the attached ones when APK
// upload is skipped, and returns the version codes for the changelog lookup.
func (r *run) reconcileAPKs(ctx context.Context, api API, editID string) ([]appstore.VersionCode, error) {
	reconciler := apk.NewReconciler(api, r.logger)

	if r.opts.SkipUploadAPK {
		r.emitter.StageSkipped(StageAPKs)
		versions, err := reconciler.AttachedVersionCodes(ctx, r.opts.PackageName, editID)
		if err != nil {
			return nil, r.fail(StageAPKs, LabelUpdateListings, err)
		}
		return versions, nil
	}

	r.begin(StageAPKs, "Uploading %d apk(s)", len(r.opts.APKPaths))
	results, err := reconciler.Reconcile(ctx, r.opts.PackageName, editID, r.opts.APKPaths)
	if err != nil {
		if errors.Is(err, apk.ErrNoBinaries) {
			return nil, r.fail(StageAPKs, LabelNoAPKs, err)
		}
		return nil, r.fail(StageAPKs, LabelReplaceAPK, err)
	}
	r.result.APKs = results

	versions := make([]appstore.VersionCode, 0, len(results))
	for _, res := range results {
		if res.VersionCode == "" {
			return nil, r.fail(StageAPKs, LabelVersionCode, fmt.Errorf("%s: %w", res.Path, ErrNoVersionCode))
		}
		versions = append(versions, res.VersionCode)
	}
	r.emitter.StageCompleted(StageAPKs, fmt.Sprintf("%d apk(s)", len(results)))
	return versions, nil
}

func (r *run) finishAssets(stage string, report *assets.Report) {
	if report.OK() {
		r.emitter.StageCompleted(stage, fmt.Sprintf("%d uploaded", report.Uploaded))
		return
	}
	for _, f := range report.Failures {
		r.logger.Verbose("%s failure: %s", stage, f)
	}
	msg := fmt.Sprintf("%d uploaded, %d failed", report.Uploaded, len(report.Failures))
	r.logger.Error("Some %s could not be uploaded (%s)", stage, msg)
	r.emitter.StageCompleted(stage, msg)
}

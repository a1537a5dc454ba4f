package apk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/ui"
)

var (
	// ErrNoBinaries is returned when there are no local APK files to upload
	ErrNoBinaries = errors.New("no apk files provided")

	// ErrMissingAPKID is returned when an attached APK is listed without an id
	ErrMissingAPKID = errors.New("apk_id is nil")
)

// API is the subset of the Appstore client used to reconcile APKs
type API interface {
	ListAPKs(ctx context.Context, app, editID string) ([]appstore.APK, error)
	GetAPK(ctx context.Context, app, editID, apkID string) (appstore.Tagged[appstore.APK], error)
	UploadAPK(ctx context.Context, app, editID, fileName string, content io.Reader) (*appstore.APK, error)
	ReplaceAPK(ctx context.Context, app, editID, apkID, etag, fileName string, content io.Reader) (*appstore.APK, error)
	DeleteAPK(ctx context.Context, app, editID, apkID, etag string) error
}

// Result is the outcome for one local file
type Result struct {
	Path        string
	APKID       string
	VersionCode appstore.VersionCode
	Replaced    bool
}

// Reconciler applies a Plan against an edit
type Reconciler struct {
	api    API
	logger ui.Logger
	open   func(name string) (io.ReadCloser, error)
}

// NewReconciler creates a reconciler reading local files from disk
func NewReconciler(api API, logger ui.Logger) *Reconciler {
	if logger == nil {
		logger = ui.Nop{}
	}
	return &Reconciler{
		api:    api,
		logger: logger,
		open: func(name string) (io.ReadCloser, error) {
			return os.Open(name)
		},
	}
}

// Reconcile makes the edit's APKs match paths by position and returns one
// result per path, in path order. The first failure aborts the remaining
// steps and leaves the edit as the failed step left it.
func (r *Reconciler) Reconcile(ctx context.Context, app, editID string, paths []string) ([]Result, error) {
	if len(paths) == 0 {
		return nil, ErrNoBinaries
	}

	existing, err := r.api.ListAPKs(ctx, app, editID)
	if err != nil {
		return nil, err
	}

	actions := Plan(existing, paths)
	for _, a := range actions {
		if a.Kind != Create && a.APKID == "" {
			return nil, ErrMissingAPKID
		}
	}

	results := make([]Result, len(paths))
	for _, a := range actions {
		switch a.Kind {
		case Replace:
			apk, err := r.replace(ctx, app, editID, a)
			if err != nil {
				return nil, err
			}
			results[a.Index] = Result{Path: a.Path, APKID: a.APKID, VersionCode: apk.VersionCode, Replaced: true}
			r.logger.Message("Replaced apk %s with %s (versionCode %s)", a.APKID, filepath.Base(a.Path), apk.VersionCode)

		case Create:
			apk, err := r.upload(ctx, app, editID, a)
			if err != nil {
				return nil, err
			}
			results[a.Index] = Result{Path: a.Path, APKID: apk.ID, VersionCode: apk.VersionCode}
			r.logger.Message("Uploaded %s as apk %s (versionCode %s)", filepath.Base(a.Path), apk.ID, apk.VersionCode)

		case Delete:
			tagged, err := r.api.GetAPK(ctx, app, editID, a.APKID)
			if err != nil {
				return nil, err
			}
			if err := r.api.DeleteAPK(ctx, app, editID, a.APKID, tagged.ETag); err != nil {
				return nil, err
			}
			r.logger.Message("Deleted apk %s", a.APKID)
		}
	}

	return results, nil
}

func (r *Reconciler) replace(ctx context.Context, app, editID string, a Action) (*appstore.APK, error) {
	tagged, err := r.api.GetAPK(ctx, app, editID, a.APKID)
	if err != nil {
		return nil, err
	}

	f, err := r.open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.Path, err)
	}
	defer f.Close()

	return r.api.ReplaceAPK(ctx, app, editID, a.APKID, tagged.ETag, filepath.Base(a.Path), f)
}

func (r *Reconciler) upload(ctx context.Context, app, editID string, a Action) (*appstore.APK, error) {
	f, err := r.open(a.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", a.Path, err)
	}
	defer f.Close()

	return r.api.UploadAPK(ctx, app, editID, filepath.Base(a.Path), f)
}

// AttachedVersionCodes returns the version codes of the APKs already attached to the edit
func (r *Reconciler) AttachedVersionCodes(ctx context.Context, app, editID string) ([]appstore.VersionCode, error) {
	existing, err := r.api.ListAPKs(ctx, app, editID)
	if err != nil {
		return nil, err
	}

	codes := make([]appstore.VersionCode, 0, len(existing))
	for _, a := range existing {
		if a.VersionCode != "" {
			codes = append(codes, a.VersionCode)
		}
	}
	return codes, nil
}

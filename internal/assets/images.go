package assets

import (
	"context"
	"io"
	"io/fs"
	"path"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/metadata"
	"github.com/footprintai/amzappstore/internal/ui"
)

// ImageAPI is the subset of the Appstore client used to replace listing images
type ImageAPI interface {
	ListImages(ctx context.Context, app, editID, lang, category string) (appstore.Tagged[[]appstore.Image], error)
	DeleteImages(ctx context.Context, app, editID, lang, category, etag string) error
	UploadImage(ctx context.Context, app, editID, lang, category, fileName string, content io.Reader) (*appstore.Image, error)
}

// ImageSource provides the local image files per language and slot
type ImageSource interface {
	Languages() ([]string, error)
	Images(lang string, category metadata.Category) ([]string, error)
	Open(name string) (fs.File, error)
}

// ImageUploader replaces the images of listing image slots
type ImageUploader struct {
	api    ImageAPI
	source ImageSource
	logger ui.Logger
}

// NewImageUploader creates an image uploader
func NewImageUploader(api ImageAPI, source ImageSource, logger ui.Logger) *ImageUploader {
	if logger == nil {
		logger = ui.Nop{}
	}
	return &ImageUploader{api: api, source: source, logger: logger}
}

// Upload replaces every (language, category) slot that has local files: the
// remote images are deleted, then each local file is uploaded. Slots without
// local files are left alone.
func (u *ImageUploader) Upload(ctx context.Context, app, editID string, categories []metadata.Category) *Report {
	report := &Report{}

	langs, err := u.source.Languages()
	if err != nil {
		report.fail("", "", "", err)
		return report
	}

	for _, lang := range langs {
		for _, category := range categories {
			files, err := u.source.Images(lang, category)
			if err != nil {
				u.logger.Error("Failed to read %s images for %s: %v", category, lang, err)
				report.fail(lang, category, "", err)
				continue
			}
			if len(files) == 0 {
				continue
			}

			if err := u.clear(ctx, app, editID, lang, category); err != nil {
				u.logger.Error("Failed to delete %s for %s: %v", category, lang, err)
				report.fail(lang, category, "", err)
				continue
			}

			for _, name := range files {
				if err := u.uploadFile(ctx, app, editID, lang, category, name); err != nil {
					u.logger.Error("Failed to upload %s: %v", name, err)
					report.fail(lang, category, name, err)
					continue
				}
				u.logger.Message("Uploaded %s", name)
				report.Uploaded++
			}
		}
	}

	return report
}

// clear deletes the remote images of one slot. An empty or missing slot is
// not an error.
func (u *ImageUploader) clear(ctx context.Context, app, editID, lang string, category metadata.Category) error {
	current, err := u.api.ListImages(ctx, app, editID, lang, string(category))
	if err != nil {
		if appstore.IsNotFound(err) {
			u.logger.Verbose("No %s to delete for %s", category, lang)
			return nil
		}
		return err
	}
	if len(current.Value) == 0 {
		u.logger.Verbose("No %s to delete for %s", category, lang)
		return nil
	}
	return u.api.DeleteImages(ctx, app, editID, lang, string(category), current.ETag)
}

func (u *ImageUploader) uploadFile(ctx context.Context, app, editID, lang string, category metadata.Category, name string) error {
	f, err := u.source.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = u.api.UploadImage(ctx, app, editID, lang, string(category), path.Base(name), f)
	return err
}

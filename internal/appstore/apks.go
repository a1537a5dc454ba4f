package appstore

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

func apksPath(app, editID string) string {
	return editPath(app, editID) + "/apks"
}

func apkPath(app, editID, apkID string) string {
	return apksPath(app, editID) + "/" + url.PathEscape(apkID)
}

// ListAPKs returns the APKs attached to an edit, in the order the API lists them
func (c *Client) ListAPKs(ctx context.Context, app, editID string) ([]APK, error) {
	res, err := call[[]APK](ctx, c, request{
		op:     "apks.list",
		method: http.MethodGet,
		path:   apksPath(app, editID),
	})
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// GetAPK retrieves one attached APK together with its ETag
func (c *Client) GetAPK(ctx context.Context, app, editID, apkID string) (Tagged[APK], error) {
	return call[APK](ctx, c, request{
		op:     "apks.get",
		method: http.MethodGet,
		path:   apkPath(app, editID, apkID),
	})
}

// UploadAPK attaches a new APK to the edit
func (c *Client) UploadAPK(ctx context.Context, app, editID, fileName string, content io.Reader) (*APK, error) {
	res, err := call[APK](ctx, c, request{
		op:          "apks.upload",
		method:      http.MethodPost,
		path:        apksPath(app, editID) + "/upload",
		body:        content,
		contentType: APKContentType,
		fileName:    fileName,
	})
	if err != nil {
		return nil, err
	}
	return &res.Value, nil
}

// ReplaceAPK uploads content in place of an attached APK
func (c *Client) ReplaceAPK(ctx context.Context, app, editID, apkID, etag, fileName string, content io.Reader) (*APK, error) {
	res, err := call[APK](ctx, c, request{
		op:          "apks.replace",
		method:      http.MethodPut,
		path:        apkPath(app, editID, apkID) + "/replace",
		etag:        etag,
		body:        content,
		contentType: APKContentType,
		fileName:    fileName,
	})
	if err != nil {
		return nil, err
	}
	return &res.Value, nil
}

// DeleteAPK detaches an APK from the edit
func (c *Client) DeleteAPK(ctx context.Context, app, editID, apkID, etag string) error {
	return c.exec(ctx, request{
		op:     "apks.delete",
		method: http.MethodDelete,
		path:   apkPath(app, editID, apkID),
		etag:   etag,
	})
}

package appstore

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

func editsPath(app string) string {
	return fmt.Sprintf("/applications/%s/edits", url.PathEscape(app))
}

func editPath(app, editID string) string {
	return editsPath(app) + "/" + url.PathEscape(editID)
}

// GetOpenEdit returns the edit currently open for the application. Value is
// nil when no edit is open.
func (c *Client) GetOpenEdit(ctx context.Context, app string) (Tagged[*Edit], error) {
	res, err := call[Edit](ctx, c, request{
		op:     "edits.get_open",
		method: http.MethodGet,
		path:   editsPath(app),
	})
	if err != nil {
		if IsNotFound(err) {
			return Tagged[*Edit]{}, nil
		}
		return Tagged[*Edit]{}, err
	}

	if res.Value.ID == "" {
		return Tagged[*Edit]{ETag: res.ETag}, nil
	}
	edit := res.Value
	return Tagged[*Edit]{Value: &edit, ETag: res.ETag}, nil
}

// GetEdit retrieves a specific edit together with its ETag
func (c *Client) GetEdit(ctx context.Context, app, editID string) (Tagged[Edit], error) {
	return call[Edit](ctx, c, request{
		op:     "edits.get",
		method: http.MethodGet,
		path:   editPath(app, editID),
	})
}

// CreateEdit opens a new edit. The API rejects this when an edit is already open.
func (c *Client) CreateEdit(ctx context.Context, app string) (*Edit, error) {
	res, err := call[Edit](ctx, c, request{
		op:     "edits.create",
		method: http.MethodPost,
		path:   editsPath(app),
	})
	if err != nil {
		return nil, err
	}
	return &res.Value, nil
}

// DeleteEdit discards an open edit
func (c *Client) DeleteEdit(ctx context.Context, app, editID, etag string) error {
	return c.exec(ctx, request{
		op:     "edits.delete",
		method: http.MethodDelete,
		path:   editPath(app, editID),
		etag:   etag,
	})
}

// CommitEdit submits an edit for review
func (c *Client) CommitEdit(ctx context.Context, app, editID, etag string) (*Edit, error) {
	res, err := call[Edit](ctx, c, request{
		op:     "edits.commit",
		method: http.MethodPost,
		path:   editPath(app, editID) + "/commit",
		etag:   etag,
	})
	if err != nil {
		return nil, err
	}
	return &res.Value, nil
}

package appstore

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

func listingsPath(app, editID string) string {
	return editPath(app, editID) + "/listings"
}

func listingPath(app, editID, lang string) string {
	return listingsPath(app, editID) + "/" + url.PathEscape(lang)
}

func imagesPath(app, editID, lang, category string) string {
	return listingPath(app, editID, lang) + "/" + url.PathEscape(category)
}

// GetListings returns every language listing of the edit with the collection ETag
func (c *Client) GetListings(ctx context.Context, app, editID string) (Tagged[Listings], error) {
	res, err := call[Listings](ctx, c, request{
		op:     "listings.list",
		method: http.MethodGet,
		path:   listingsPath(app, editID),
	})
	if err != nil {
		return res, err
	}
	if res.Value.Listings == nil {
		res.Value.Listings = map[string]Listing{}
	}
	return res, nil
}

// PutListing replaces the listing for one language
func (c *Client) PutListing(ctx context.Context, app, editID, lang, etag string, listing Listing) (*Listing, error) {
	body, err := jsonBody(listing)
	if err != nil {
		return nil, err
	}

	res, err := call[Listing](ctx, c, request{
		op:          "listings.put",
		method:      http.MethodPut,
		path:        listingPath(app, editID, lang),
		etag:        etag,
		body:        body,
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return &res.Value, nil
}

// ListImages returns the images in one listing image slot with the slot ETag
func (c *Client) ListImages(ctx context.Context, app, editID, lang, category string) (Tagged[[]Image], error) {
	res, err := call[imagesResponse](ctx, c, request{
		op:     "images.list",
		method: http.MethodGet,
		path:   imagesPath(app, editID, lang, category),
	})
	if err != nil {
		return Tagged[[]Image]{}, err
	}
	return Tagged[[]Image]{Value: res.Value.Images, ETag: res.ETag}, nil
}

// DeleteImages removes every image in a listing image slot
func (c *Client) DeleteImages(ctx context.Context, app, editID, lang, category, etag string) error {
	return c.exec(ctx, request{
		op:     "images.delete",
		method: http.MethodDelete,
		path:   imagesPath(app, editID, lang, category),
		etag:   etag,
	})
}

// UploadImage adds one image to a listing image slot
func (c *Client) UploadImage(ctx context.Context, app, editID, lang, category, fileName string, content io.Reader) (*Image, error) {
	res, err := call[Image](ctx, c, request{
		op:          "images.upload",
		method:      http.MethodPost,
		path:        imagesPath(app, editID, lang, category) + "/upload",
		body:        content,
		contentType: ImageContentType(fileName),
		fileName:    fileName,
	})
	if err != nil {
		return nil, err
	}
	return &res.Value, nil
}

// ImageContentType returns the upload content type for an image file name
func ImageContentType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/png"
}

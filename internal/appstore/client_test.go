package appstore_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/appstore/appstoretest"
)

const app = "com.example.app"

func newClient(srv *appstoretest.Server) *appstore.Client {
	return appstore.NewClient(srv.Token, 0).WithAPIBase(srv.URL)
}

func TestGetOpenEdit(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	c := newClient(srv)
	ctx := context.Background()

	res, err := c.GetOpenEdit(ctx, app)
	require.NoError(t, err)
	assert.Nil(t, res.Value, "no edit should be open")

	srv.SeedEdit(app, "edit-42")
	res, err = c.GetOpenEdit(ctx, app)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, "edit-42", res.Value.ID)
	assert.NotEmpty(t, res.ETag)
}

func TestGetOpenEdit_NotFoundMeansNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"no edit"}`))
	}))
	defer server.Close()

	c := appstore.NewClient("token", 0).WithAPIBase(server.URL)
	res, err := c.GetOpenEdit(context.Background(), app)
	require.NoError(t, err)
	assert.Nil(t, res.Value)
}

func TestCreateEdit_Conflict(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	srv.SeedEdit(app, "edit-1")

	_, err := newClient(srv).CreateEdit(context.Background(), app)
	require.Error(t, err)

	var apiErr *appstore.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "An edit already exists")
}

func TestAPIError_MessageIsRawBody(t *testing.T) {
	body := `{"error_description":"Client authentication failed","error":"invalid_client"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(body))
	}))
	defer server.Close()

	c := appstore.NewClient("token", 0).WithAPIBase(server.URL)
	_, err := c.ListAPKs(context.Background(), app, "edit")
	require.Error(t, err)
	assert.Equal(t, body, err.Error())
	assert.False(t, appstore.IsNotFound(err))
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := appstore.NewClient("secret-token", 0).WithAPIBase(server.URL).WithUserAgent("amzappstore/1.2.3")
	require.NoError(t, c.DeleteAPK(context.Background(), app, "edit", "apk-1", `"v7"`))

	assert.Equal(t, "Bearer secret-token", got.Get("Authorization"))
	assert.Equal(t, `"v7"`, got.Get("If-Match"))
	assert.Equal(t, "amzappstore/1.2.3", got.Get("User-Agent"))
}

func TestAPKLifecycle(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	srv.SeedAPK(app, "100")
	srv.SeedEdit(app, "edit-1")

	c := newClient(srv)
	ctx := context.Background()

	apks, err := c.ListAPKs(ctx, app, "edit-1")
	require.NoError(t, err)
	require.Len(t, apks, 1)
	assert.Equal(t, appstore.VersionCode("100"), apks[0].VersionCode)

	tagged, err := c.GetAPK(ctx, app, "edit-1", apks[0].ID)
	require.NoError(t, err)

	replaced, err := c.ReplaceAPK(ctx, app, "edit-1", apks[0].ID, tagged.ETag, "app.apk", strings.NewReader("101"))
	require.NoError(t, err)
	assert.Equal(t, appstore.VersionCode("101"), replaced.VersionCode)

	// the tag read before the replace is now stale
	_, err = c.ReplaceAPK(ctx, app, "edit-1", apks[0].ID, tagged.ETag, "app.apk", strings.NewReader("102"))
	require.Error(t, err)

	added, err := c.UploadAPK(ctx, app, "edit-1", "second.apk", strings.NewReader("200"))
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)

	calls := srv.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, appstore.APKContentType, last.ContentType)
	assert.Equal(t, "second.apk", last.FileName)
	assert.Equal(t, []string{"101", "200"}, srv.VersionCodes(app))
}

func TestVersionCode_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want appstore.VersionCode
	}{
		{name: "string", in: `{"versionCode":"1000000"}`, want: "1000000"},
		{name: "number", in: `{"versionCode":2000000}`, want: "2000000"},
		{name: "null", in: `{"versionCode":null}`, want: ""},
		{name: "missing", in: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apk appstore.APK
			require.NoError(t, json.Unmarshal([]byte(tt.in), &apk))
			assert.Equal(t, tt.want, apk.VersionCode)
		})
	}
}

func TestVersionCode_Less(t *testing.T) {
	assert.True(t, appstore.VersionCode("9").Less("10"))
	assert.False(t, appstore.VersionCode("10").Less("9"))
	assert.True(t, appstore.VersionCode("beta").Less("1"))
	assert.True(t, appstore.VersionCode("a").Less("b"))
}

func TestListing_PreservesUnknownFields(t *testing.T) {
	in := `{"language":"en-US","title":"Title","recentChanges":null,"keywords":["a"],"videoUrl":"https://example.com/v"}`

	var l appstore.Listing
	require.NoError(t, json.Unmarshal([]byte(in), &l))
	assert.Nil(t, l.RecentChanges)
	assert.Empty(t, l.Changelog())
	assert.Equal(t, "Title", l.Title)
	assert.Equal(t, "Bug fixes", l.WithChangelog("Bug fixes").Changelog())

	out, err := json.Marshal(l.WithChangelog("Bug fixes"))
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Bug fixes", got["recentChanges"])
	assert.Equal(t, "https://example.com/v", got["videoUrl"])
	assert.Equal(t, "Title", got["title"])
	_, hasBullets := got["featureBullets"]
	assert.False(t, hasBullets, "absent fields should stay absent")

	// unchanged entries keep their null changelog
	out, err = json.Marshal(l)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(out, &got))
	v, ok := got["recentChanges"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestImages(t *testing.T) {
	srv := appstoretest.NewServer()
	defer srv.Close()
	srv.SeedImage(app, "en-US", "screenshots")
	srv.SeedEdit(app, "edit-1")

	c := newClient(srv)
	ctx := context.Background()

	images, err := c.ListImages(ctx, app, "edit-1", "en-US", "screenshots")
	require.NoError(t, err)
	require.Len(t, images.Value, 1)

	require.NoError(t, c.DeleteImages(ctx, app, "edit-1", "en-US", "screenshots", images.ETag))
	_, err = c.UploadImage(ctx, app, "edit-1", "en-US", "screenshots", "shot.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)

	assert.Len(t, srv.Images(app, "en-US", "screenshots"), 1)
	calls := srv.Calls()
	assert.Equal(t, "image/jpeg", calls[len(calls)-1].ContentType)
}

func TestImageContentType(t *testing.T) {
	assert.Equal(t, "image/png", appstore.ImageContentType("icon.PNG"))
	assert.Equal(t, "image/jpeg", appstore.ImageContentType("shot.jpeg"))
	assert.Equal(t, "image/jpeg", appstore.ImageContentType("shot.jpg"))
}

// slowReader yields one byte per delay
type slowReader struct {
	data  []byte
	delay time.Duration
}

func (r *slowReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	time.Sleep(r.delay)
	p[0] = r.data[0]
	r.data = r.data[1:]
	return 1, nil
}

func TestUploadAPK_SlowBodyOutlastsTimeout(t *testing.T) {
	var received []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"apk-1","versionCode":7}`))
	}))
	defer server.Close()

	timeout := 200 * time.Millisecond
	c := appstore.NewClient("token", timeout).WithAPIBase(server.URL)

	start := time.Now()
	apk, err := c.UploadAPK(context.Background(), app, "edit-1", "app.apk",
		&slowReader{data: []byte("abcdef"), delay: 100 * time.Millisecond})
	require.NoError(t, err)

	assert.Greater(t, time.Since(start), timeout, "body took longer to send than the timeout")
	assert.Equal(t, "abcdef", string(received))
	assert.Equal(t, appstore.VersionCode("7"), apk.VersionCode)
}

func TestUploadAPK_ResponseTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"id":"apk-1"}`))
	}))
	defer server.Close()

	c := appstore.NewClient("token", 100*time.Millisecond).WithAPIBase(server.URL)
	_, err := c.UploadAPK(context.Background(), app, "edit-1", "app.apk", strings.NewReader("abc"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout awaiting response headers")
}

func TestUploadAPK_SendsContentLength(t *testing.T) {
	var (
		length   int64
		encoding []string
		body     []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		length = r.ContentLength
		encoding = r.TransferEncoding
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"id":"apk-1","versionCode":"1"}`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "app.apk")
	require.NoError(t, os.WriteFile(path, []byte("apk-bytes"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	c := appstore.NewClient("token", 0).WithAPIBase(server.URL)
	_, err = c.UploadAPK(context.Background(), app, "edit-1", "app.apk", f)
	require.NoError(t, err)

	assert.Equal(t, int64(len("apk-bytes")), length)
	assert.Empty(t, encoding, "file uploads are not chunked")
	assert.Equal(t, "apk-bytes", string(body))
}

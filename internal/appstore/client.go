// Package appstore provides a client for the Amazon Appstore Submission API.
//
// Mutable resources (edits, APKs, listings, image slots) are read together
// with their entity tag (see Tagged) and every mutation of an existing
// resource takes the most recently read tag as an If-Match precondition.
package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/footprintai/amzappstore/internal/telemetry"
)

const (
	// DefaultAPIBase is the default Appstore Submission API endpoint
	DefaultAPIBase = "https://developer.amazon.com/api/appstore/v1"

	// DefaultTimeout is the default bound on connecting to the API and on
	// waiting for a response once the request has been sent
	DefaultTimeout = 300 * time.Second

	// APKContentType is the content type of APK uploads
	APKContentType = "application/vnd.android.package-archive"

	defaultUserAgent = "amzappstore"
)

// Client is an Appstore API client bound to one access token
type Client struct {
	token     string
	apiBase   string
	userAgent string
	client    *http.Client
	metrics   *telemetry.Metrics
}

// APIError is a non-success response from the API. Its message is the raw
// response body.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("HTTP %d: %s %s", e.StatusCode, e.Method, e.Path)
}

// IsNotFound reports whether err is a 404 response
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// NewClient creates a new Appstore API client. A non-positive timeout selects
// DefaultTimeout.
//
// The timeout bounds dialing, the TLS handshake and the wait for response
// headers, but not the time spent sending a request body, so large APK
// uploads on slow links are not cut off.
func NewClient(token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		token:     token,
		apiBase:   DefaultAPIBase,
		userAgent: defaultUserAgent,
		client: &http.Client{
			Transport: newTransport(timeout),
		},
	}
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// WithAPIBase sets a custom API base URL (useful for testing)
func (c *Client) WithAPIBase(base string) *Client {
	if base != "" {
		c.apiBase = strings.TrimSuffix(base, "/")
	}
	return c
}

// WithUserAgent sets the User-Agent header sent with every request
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// WithMetrics records every request on m
func (c *Client) WithMetrics(m *telemetry.Metrics) *Client {
	c.metrics = m
	return c
}

// request describes one API call
type request struct {
	op          string
	method      string
	path        string
	etag        string
	body        io.Reader
	contentType string
	fileName    string
}

// jsonBody marshals v into a request body
func jsonBody(v interface{}) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	return bytes.NewReader(data), nil
}

// do performs an authenticated request. Non-2xx responses are returned as
// *APIError with the body drained; on success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, r request) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, c.apiBase+r.path, r.body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if req.ContentLength == 0 && r.body != nil {
		req.ContentLength = bodySize(r.body)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.etag != "" {
		req.Header.Set("If-Match", r.etag)
	}
	if r.fileName != "" {
		req.Header.Set("fileName", r.fileName)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordRequest(ctx, r.op, r.method, 0, time.Since(start))
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	c.metrics.RecordRequest(ctx, r.op, r.method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseError(resp, r)
	}

	return resp, nil
}

// bodySize returns the remaining length of a file-backed body, or 0 when it
// cannot be determined and the body has to be sent chunked
func bodySize(body io.Reader) int64 {
	f, ok := body.(interface{ Stat() (fs.FileInfo, error) })
	if !ok {
		return 0
	}
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	size := info.Size()
	if s, ok := body.(io.Seeker); ok {
		pos, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0
		}
		size -= pos
	}
	if size < 0 {
		return 0
	}
	return size
}

// parseError reads an error response from the API
func parseError(resp *http.Response, r request) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("HTTP %d: failed to read error body", resp.StatusCode)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Method:     r.method,
		Path:       r.path,
		Body:       strings.TrimSpace(string(body)),
	}
}

// call performs the request and decodes a JSON response into T together with
// the response ETag. An empty body yields the zero value.
func call[T any](ctx context.Context, c *Client, r request) (Tagged[T], error) {
	var out Tagged[T]

	resp, err := c.do(ctx, r)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	out.ETag = resp.Header.Get("ETag")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read response body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}

	if err := json.Unmarshal(body, &out.Value); err != nil {
		return out, fmt.Errorf("decode %s response: %w", r.op, err)
	}
	return out, nil
}

// exec performs the request and discards the response body
func (c *Client) exec(ctx context.Context, r request) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

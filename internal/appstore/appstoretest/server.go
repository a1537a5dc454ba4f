// Package appstoretest provides an in-memory Appstore Submission API for tests.
//
// The server keeps one "live" state per application (APKs and listings) that
// is copied into every new edit, enforces the single-open-edit rule and
// If-Match preconditions, and records every request it receives.
package appstoretest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// DefaultToken is the bearer token accepted by a new Server
const DefaultToken = "test-token"

// Call is one recorded request
type Call struct {
	Method      string
	Path        string
	IfMatch     string
	ContentType string
	FileName    string

	// ContentLength is -1 for chunked bodies
	ContentLength int64
}

func (c Call) String() string {
	return c.Method + " " + c.Path
}

type failure struct {
	method string
	suffix string
	status int
	body   string
}

type apkState struct {
	id          string
	versionCode string
	name        string
	version     int
}

type editState struct {
	id              string
	version         int
	apks            []*apkState
	listings        map[string]map[string]interface{}
	listingsVersion int
	images          map[string][]string
	imagesVersion   map[string]int
}

type appState struct {
	apks     []*apkState
	listings map[string]map[string]interface{}
	images   map[string][]string
	edit     *editState
	commits  int
}

// Server is a fake Appstore API backed by httptest
type Server struct {
	*httptest.Server

	// Token is the bearer token required on API requests and issued by the token endpoint
	Token string

	mu       sync.Mutex
	apps     map[string]*appState
	calls    []Call
	failures []failure
	nextID   int
}

// NewServer starts a fake API. Close it when done.
func NewServer() *Server {
	s := &Server{
		Token: DefaultToken,
		apps:  make(map[string]*appState),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// TokenURL returns the URL of the fake client-credentials token endpoint
func (s *Server) TokenURL() string {
	return s.URL + "/auth/o2/token"
}

// Fail makes every request with the given method and a path ending in suffix
// fail with status and body.
func (s *Server) Fail(method, suffix string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, suffix: suffix, status: status, body: body})
}

// Calls returns every recorded API request, token requests excluded
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Count returns the number of recorded requests with method whose path ends in suffix
func (s *Server) Count(method, suffix string) int {
	n := 0
	for _, c := range s.Calls() {
		if c.Method == method && strings.HasSuffix(c.Path, suffix) {
			n++
		}
	}
	return n
}

func (s *Server) app(name string) *appState {
	a, ok := s.apps[name]
	if !ok {
		a = &appState{
			listings: make(map[string]map[string]interface{}),
			images:   make(map[string][]string),
		}
		s.apps[name] = a
	}
	return a
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s%d", prefix, s.nextID)
}

// SeedEdit opens an edit with the given id, copying the live state into it
func (s *Server) SeedEdit(app, editID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	a.edit = s.openEdit(a, editID)
}

// SeedAPK attaches an APK to the live version (and the open edit, if any)
// and returns its id.
func (s *Server) SeedAPK(app, versionCode string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	apk := &apkState{id: s.newID("apk-"), versionCode: versionCode, name: "APK" + versionCode, version: 1}
	a.apks = append(a.apks, apk)
	if a.edit != nil {
		cp := *apk
		a.edit.apks = append(a.edit.apks, &cp)
	}
	return apk.id
}

// SeedListing sets the live listing for a language (and the open edit's, if any)
func (s *Server) SeedListing(app, lang string, fields map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	entry := map[string]interface{}{"language": lang}
	for k, v := range fields {
		entry[k] = v
	}
	a.listings[lang] = entry
	if a.edit != nil {
		a.edit.listings[lang] = copyEntry(entry)
	}
}

// SeedImage adds an image to the live listing image slot (and the open edit's, if any)
func (s *Server) SeedImage(app, lang, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	key := lang + "/" + category
	id := s.newID("img-")
	a.images[key] = append(a.images[key], id)
	if a.edit != nil {
		a.edit.images[key] = append(a.edit.images[key], id)
	}
}

// OpenEditID returns the id of the open edit, or "" when none is open
func (s *Server) OpenEditID(app string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	if a.edit == nil {
		return ""
	}
	return a.edit.id
}

// Commits returns how many edits were committed for the application
func (s *Server) Commits(app string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app(app).commits
}

// VersionCodes returns the version codes attached to the open edit, or to the
// live version when no edit is open.
func (s *Server) VersionCodes(app string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	apks := a.apks
	if a.edit != nil {
		apks = a.edit.apks
	}
	out := make([]string, 0, len(apks))
	for _, apk := range apks {
		out = append(out, apk.versionCode)
	}
	return out
}

// Listing returns a copy of a listing entry from the open edit, or from the
// live version when no edit is open.
func (s *Server) Listing(app, lang string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	listings := a.listings
	if a.edit != nil {
		listings = a.edit.listings
	}
	entry, ok := listings[lang]
	if !ok {
		return nil
	}
	return copyEntry(entry)
}

// Images returns the image ids in a slot of the open edit, or of the live
// version when no edit is open.
func (s *Server) Images(app, lang, category string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	images := a.images
	if a.edit != nil {
		images = a.edit.images
	}
	return append([]string(nil), images[lang+"/"+category]...)
}

func (s *Server) openEdit(a *appState, id string) *editState {
	e := &editState{
		id:            id,
		version:       1,
		listings:      make(map[string]map[string]interface{}),
		images:        make(map[string][]string),
		imagesVersion: make(map[string]int),
	}
	for _, apk := range a.apks {
		cp := *apk
		e.apks = append(e.apks, &cp)
	}
	for lang, entry := range a.listings {
		e.listings[lang] = copyEntry(entry)
	}
	for key, ids := range a.images {
		e.images[key] = append([]string(nil), ids...)
	}
	return e
}

func copyEntry(entry map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(entry))
	for k, v := range entry {
		out[k] = v
	}
	return out
}

func etag(kind string, version int) string {
	return fmt.Sprintf("\"%s-%d\"", kind, version)
}

func writeJSON(w http.ResponseWriter, status int, tag string, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if tag != "" {
		w.Header().Set("ETag", tag)
	}
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, "", map[string]string{"message": message})
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/auth/o2/token" {
		s.handleToken(w, r)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{
		Method:      r.Method,
		Path:        r.URL.Path,
		IfMatch:     r.Header.Get("If-Match"),
		ContentType: r.Header.Get("Content-Type"),
		FileName:    r.Header.Get("fileName"),

		ContentLength: r.ContentLength,
	})

	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeJSON(w, http.StatusUnauthorized, "", map[string]string{"error": "invalid_token"})
		return
	}

	for _, f := range s.failures {
		if f.method == r.Method && strings.HasSuffix(r.URL.Path, f.suffix) {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i, p := range parts {
		if u, err := url.PathUnescape(p); err == nil {
			parts[i] = u
		}
	}
	if len(parts) < 3 || parts[0] != "applications" || parts[2] != "edits" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	a := s.app(parts[1])
	rest := parts[3:]

	if len(rest) == 0 {
		s.handleEdits(w, r, a)
		return
	}

	e := a.edit
	if e == nil || e.id != rest[0] {
		writeError(w, http.StatusNotFound, "edit not found")
		return
	}

	switch {
	case len(rest) == 1:
		s.handleEdit(w, r, a, e)
	case len(rest) == 2 && rest[1] == "commit" && r.Method == http.MethodPost:
		s.handleCommit(w, r, a, e)
	case rest[1] == "apks":
		s.handleAPKs(w, r, e, rest[2:])
	case rest[1] == "listings":
		s.handleListings(w, r, e, rest[2:])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, "", map[string]string{"error": "unsupported_grant_type"})
		return
	}
	if r.Form.Get("client_id") == "" || r.Form.Get("client_secret") == "" {
		writeJSON(w, http.StatusUnauthorized, "", map[string]string{
			"error":             "invalid_client",
			"error_description": "Client authentication failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, "", map[string]interface{}{
		"access_token": s.Token,
		"scope":        r.Form.Get("scope"),
		"token_type":   "bearer",
		"expires_in":   3600,
	})
}

func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request, a *appState) {
	switch r.Method {
	case http.MethodGet:
		if a.edit == nil {
			writeJSON(w, http.StatusOK, "", map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, etag("edit", a.edit.version), editBody(a.edit))
	case http.MethodPost:
		if a.edit != nil {
			writeError(w, http.StatusConflict, "An edit already exists for this application")
			return
		}
		a.edit = s.openEdit(a, s.newID("edit-"))
		writeJSON(w, http.StatusOK, etag("edit", a.edit.version), editBody(a.edit))
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func editBody(e *editState) map[string]string {
	return map[string]string{"id": e.id, "status": "IN_PROGRESS"}
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, a *appState, e *editState) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, etag("edit", e.version), editBody(e))
	case http.MethodDelete:
		if !checkETag(w, r, etag("edit", e.version)) {
			return
		}
		a.edit = nil
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request, a *appState, e *editState) {
	if !checkETag(w, r, etag("edit", e.version)) {
		return
	}
	a.apks = e.apks
	a.listings = e.listings
	a.images = e.images
	a.edit = nil
	a.commits++
	writeJSON(w, http.StatusOK, "", map[string]string{"id": e.id, "status": "SUBMITTED"})
}

func checkETag(w http.ResponseWriter, r *http.Request, current string) bool {
	if r.Header.Get("If-Match") != current {
		writeError(w, http.StatusPreconditionFailed, "ETag mismatch")
		return false
	}
	return true
}

func apkBody(apk *apkState) map[string]string {
	return map[string]string{"id": apk.id, "versionCode": apk.versionCode, "name": apk.name}
}

func (e *editState) bump() {
	e.version++
}

func (s *Server) handleAPKs(w http.ResponseWriter, r *http.Request, e *editState, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		out := make([]map[string]string, 0, len(e.apks))
		for _, apk := range e.apks {
			out = append(out, apkBody(apk))
		}
		writeJSON(w, http.StatusOK, "", out)
		return
	}

	if len(rest) == 1 && rest[0] == "upload" && r.Method == http.MethodPost {
		code, err := readVersionCode(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		apk := &apkState{id: s.newID("apk-"), versionCode: code, name: r.Header.Get("fileName"), version: 1}
		e.apks = append(e.apks, apk)
		e.bump()
		writeJSON(w, http.StatusOK, etag("apk", apk.version), apkBody(apk))
		return
	}

	idx := -1
	for i, apk := range e.apks {
		if apk.id == rest[0] {
			idx = i
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, "apk not found")
		return
	}
	apk := e.apks[idx]

	switch {
	case len(rest) == 1 && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, etag("apk", apk.version), apkBody(apk))
	case len(rest) == 1 && r.Method == http.MethodDelete:
		if !checkETag(w, r, etag("apk", apk.version)) {
			return
		}
		e.apks = append(e.apks[:idx], e.apks[idx+1:]...)
		e.bump()
		w.WriteHeader(http.StatusNoContent)
	case len(rest) == 2 && rest[1] == "replace" && r.Method == http.MethodPut:
		if !checkETag(w, r, etag("apk", apk.version)) {
			return
		}
		code, err := readVersionCode(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		apk.versionCode = code
		apk.name = r.Header.Get("fileName")
		apk.version++
		e.bump()
		writeJSON(w, http.StatusOK, etag("apk", apk.version), apkBody(apk))
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// readVersionCode uses the uploaded bytes as the version code of the package
func readVersionCode(r *http.Request) (string, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	code := strings.TrimSpace(string(data))
	if code == "" {
		return "", fmt.Errorf("empty package")
	}
	return code, nil
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request, e *editState, rest []string) {
	listingsTag := etag("listings", e.listingsVersion)

	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeJSON(w, http.StatusOK, listingsTag, map[string]interface{}{"listings": e.listings})
		return
	}

	lang := rest[0]

	if len(rest) == 1 {
		if r.Method != http.MethodPut {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if !checkETag(w, r, listingsTag) {
			return
		}
		var entry map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			writeError(w, http.StatusBadRequest, "invalid listing")
			return
		}
		e.listings[lang] = entry
		e.listingsVersion++
		writeJSON(w, http.StatusOK, etag("listings", e.listingsVersion), entry)
		return
	}

	key := lang + "/" + rest[1]
	slotTag := etag("images-"+key, e.imagesVersion[key])

	switch {
	case len(rest) == 2 && r.Method == http.MethodGet:
		images := make([]map[string]string, 0, len(e.images[key]))
		for _, id := range e.images[key] {
			images = append(images, map[string]string{"id": id})
		}
		writeJSON(w, http.StatusOK, slotTag, map[string]interface{}{"images": images})
	case len(rest) == 2 && r.Method == http.MethodDelete:
		if !checkETag(w, r, slotTag) {
			return
		}
		delete(e.images, key)
		e.imagesVersion[key]++
		w.WriteHeader(http.StatusNoContent)
	case len(rest) == 3 && rest[2] == "upload" && r.Method == http.MethodPost:
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "image/") {
			writeError(w, http.StatusUnsupportedMediaType, "expected an image")
			return
		}
		_, _ = io.Copy(io.Discard, r.Body)
		id := s.newID("img-")
		e.images[key] = append(e.images[key], id)
		e.imagesVersion[key]++
		writeJSON(w, http.StatusOK, "", map[string]string{"id": id})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// Languages returns the listing languages of the open edit, sorted
func (s *Server) Languages(app string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.app(app)
	listings := a.listings
	if a.edit != nil {
		listings = a.edit.listings
	}
	out := make([]string, 0, len(listings))
	for lang := range listings {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

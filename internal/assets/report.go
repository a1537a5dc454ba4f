// Package assets uploads listing text, images and screenshots to an edit.
//
// Uploads are best effort: a failure for one language or image slot is
// recorded in the Report and the remaining work continues.
package assets

import (
	"fmt"
	"strings"

	"github.com/footprintai/amzappstore/internal/metadata"
)

// Failure is one failed step of an upload
type Failure struct {
	Language string
	Category metadata.Category
	File     string
	Err      error
}

func (f Failure) String() string {
	parts := []string{f.Language}
	if f.Category != "" {
		parts = append(parts, string(f.Category))
	}
	if f.File != "" {
		parts = append(parts, f.File)
	}
	return fmt.Sprintf("%s: %v", strings.Join(parts, "/"), f.Err)
}

// Report summarises a best-effort upload
type Report struct {
	Uploaded int
	Skipped  int
	Failures []Failure
}

// OK reports whether every step succeeded
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

func (r *Report) fail(lang string, category metadata.Category, file string, err error) {
	r.Failures = append(r.Failures, Failure{Language: lang, Category: category, File: file, Err: err})
}

// Package metadata reads the local store metadata tree.
//
// Layout, relative to the metadata root:
//
//	<lang>/title.txt
//	<lang>/short_description.txt
//	<lang>/full_description.txt
//	<lang>/feature_bullets.txt     one bullet per line
//	<lang>/keywords.txt            comma or newline separated
//	<lang>/changelogs/<versionCode>.txt
//	<lang>/changelogs/default.txt
//	<lang>/images/<category>/*.{png,jpg,jpeg}
//
// The tree is never modified.
package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// DefaultChangelog is the changelog file name used when no version-specific file exists
const DefaultChangelog = "default"

// Category is an image slot of a listing. The value is both the API path
// segment and the local directory name under <lang>/images.
type Category string

const (
	SmallIcons                Category = "small-icons"
	LargeIcons                Category = "large-icons"
	PromoImages               Category = "promo-images"
	FireTVIcons               Category = "firetv-icons"
	FireTVBackgrounds         Category = "firetv-backgrounds"
	FireTVFeaturedBackgrounds Category = "firetv-featured-backgrounds"
	Screenshots               Category = "screenshots"
	FireTVScreenshots         Category = "firetv-screenshots"
)

// ImageCategories returns the icon, promotional and background slots
func ImageCategories() []Category {
	return []Category{SmallIcons, LargeIcons, PromoImages, FireTVIcons, FireTVBackgrounds, FireTVFeaturedBackgrounds}
}

// ScreenshotCategories returns the screenshot slots
func ScreenshotCategories() []Category {
	return []Category{Screenshots, FireTVScreenshots}
}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// ListingText holds the listing text fields found for one language
type ListingText struct {
	Title            string
	ShortDescription string
	FullDescription  string
	FeatureBullets   []string
	Keywords         []string
}

// IsEmpty reports whether no field has content
func (l ListingText) IsEmpty() bool {
	return l.Title == "" && l.ShortDescription == "" && l.FullDescription == "" &&
		len(l.FeatureBullets) == 0 && len(l.Keywords) == 0
}

// Tree is a read-only view of a metadata directory
type Tree struct {
	fsys fs.FS
}

// NewTree opens the metadata tree rooted at dir
func NewTree(dir string) *Tree {
	return &Tree{fsys: os.DirFS(dir)}
}

// NewTreeFS wraps an fs.FS (useful for testing)
func NewTreeFS(fsys fs.FS) *Tree {
	return &Tree{fsys: fsys}
}

// Languages returns the language directories in the tree, sorted. A missing
// root yields no languages.
func (t *Tree) Languages() ([]string, error) {
	entries, err := fs.ReadDir(t.fsys, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata root: %w", err)
	}

	var langs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs, nil
}

// readText returns the trimmed content of a file, or "" when it is absent
func (t *Tree) readText(name string) (string, error) {
	data, err := fs.ReadFile(t.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// Changelog returns the changelog text stored for version under lang. ok is
// false when the file is absent, unreadable or empty.
func (t *Tree) Changelog(lang, version string) (string, bool) {
	if version == "" {
		return "", false
	}
	text, err := t.readText(path.Join(lang, "changelogs", version+".txt"))
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}

// Listing reads the listing text fields for lang
func (t *Tree) Listing(lang string) (ListingText, error) {
	var out ListingText
	var err error

	if out.Title, err = t.readText(path.Join(lang, "title.txt")); err != nil {
		return out, fmt.Errorf("read title: %w", err)
	}
	if out.ShortDescription, err = t.readText(path.Join(lang, "short_description.txt")); err != nil {
		return out, fmt.Errorf("read short description: %w", err)
	}
	if out.FullDescription, err = t.readText(path.Join(lang, "full_description.txt")); err != nil {
		return out, fmt.Errorf("read full description: %w", err)
	}

	bullets, err := t.readText(path.Join(lang, "feature_bullets.txt"))
	if err != nil {
		return out, fmt.Errorf("read feature bullets: %w", err)
	}
	out.FeatureBullets = splitList(bullets, "\n")

	keywords, err := t.readText(path.Join(lang, "keywords.txt"))
	if err != nil {
		return out, fmt.Errorf("read keywords: %w", err)
	}
	out.Keywords = splitList(keywords, ",\n")

	return out, nil
}

func splitList(s, seps string) []string {
	if s == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})

	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Images returns the image files of one slot, sorted by name. The returned
// names are relative to the tree and can be passed to Open.
func (t *Tree) Images(lang string, category Category) ([]string, error) {
	dir := path.Join(lang, "images", string(category))
	entries, err := fs.ReadDir(t.fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExtensions[strings.ToLower(path.Ext(e.Name()))] {
			continue
		}
		files = append(files, path.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Open opens a file in the tree
func (t *Tree) Open(name string) (fs.File, error) {
	return t.fsys.Open(name)
}

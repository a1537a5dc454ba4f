package metadata

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTree() *Tree {
	return NewTreeFS(fstest.MapFS{
		"en-US/title.txt":                    {Data: []byte("My App\n")},
		"en-US/short_description.txt":        {Data: []byte("Short")},
		"en-US/full_description.txt":         {Data: []byte("Full description")},
		"en-US/feature_bullets.txt":          {Data: []byte("Fast\n\nSmall\n")},
		"en-US/keywords.txt":                 {Data: []byte("tools, utility\nproductivity")},
		"en-US/changelogs/1000000.txt":       {Data: []byte("Release 1.0\n")},
		"en-US/changelogs/default.txt":       {Data: []byte("Bug fixes")},
		"en-US/images/screenshots/2.png":     {Data: []byte("png")},
		"en-US/images/screenshots/1.jpg":     {Data: []byte("jpg")},
		"en-US/images/screenshots/notes.txt": {Data: []byte("ignored")},
		"ja-JP/changelogs/1000000.txt":       {Data: []byte("   \n")},
		"ja-JP/images/small-icons/icon.png":  {Data: []byte("png")},
		".git/config":                        {Data: []byte("hidden")},
	})
}

func TestTree_Languages(t *testing.T) {
	langs, err := testTree().Languages()
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US", "ja-JP"}, langs)
}

func TestTree_LanguagesMissingRoot(t *testing.T) {
	langs, err := NewTree(filepath.Join(t.TempDir(), "missing")).Languages()
	require.NoError(t, err)
	assert.Empty(t, langs)
}

func TestTree_Changelog(t *testing.T) {
	tree := testTree()

	tests := []struct {
		name    string
		lang    string
		version string
		want    string
		wantOK  bool
	}{
		{name: "exact version", lang: "en-US", version: "1000000", want: "Release 1.0", wantOK: true},
		{name: "default file", lang: "en-US", version: DefaultChangelog, want: "Bug fixes", wantOK: true},
		{name: "missing version", lang: "en-US", version: "2000000"},
		{name: "blank file", lang: "ja-JP", version: "1000000"},
		{name: "empty version", lang: "en-US", version: ""},
		{name: "missing language", lang: "de-DE", version: "1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tree.Changelog(tt.lang, tt.version)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTree_Listing(t *testing.T) {
	tree := testTree()

	l, err := tree.Listing("en-US")
	require.NoError(t, err)
	assert.Equal(t, "My App", l.Title)
	assert.Equal(t, "Short", l.ShortDescription)
	assert.Equal(t, "Full description", l.FullDescription)
	assert.Equal(t, []string{"Fast", "Small"}, l.FeatureBullets)
	assert.Equal(t, []string{"tools", "utility", "productivity"}, l.Keywords)
	assert.False(t, l.IsEmpty())

	empty, err := tree.Listing("ja-JP")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}

func TestTree_Images(t *testing.T) {
	tree := testTree()

	files, err := tree.Images("en-US", Screenshots)
	require.NoError(t, err)
	assert.Equal(t, []string{"en-US/images/screenshots/1.jpg", "en-US/images/screenshots/2.png"}, files)

	none, err := tree.Images("en-US", SmallIcons)
	require.NoError(t, err)
	assert.Empty(t, none)

	f, err := tree.Open(files[0])
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "jpg", string(data))
}

func TestTree_OnDisk(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "fr-FR", "changelogs")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "default.txt"), []byte("Corrections"), 0o644))

	text, ok := NewTree(root).Changelog("fr-FR", DefaultChangelog)
	assert.True(t, ok)
	assert.Equal(t, "Corrections", text)
}

func TestCategories(t *testing.T) {
	assert.Len(t, ImageCategories(), 6)
	assert.Equal(t, []Category{Screenshots, FireTVScreenshots}, ScreenshotCategories())
}

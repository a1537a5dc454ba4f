package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/footprintai/amzappstore/internal/edit"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultMetadataPath, cfg.MetadataPath)
	assert.Equal(t, 300*time.Second, cfg.TimeoutDuration())
	assert.True(t, cfg.SkipUploadImages)
	assert.True(t, cfg.SkipUploadScreenshots)
	assert.False(t, cfg.SkipUploadMetadata)
	assert.False(t, cfg.SkipUploadChangelogs)

	policy, err := cfg.EditPolicy()
	require.NoError(t, err)
	assert.Equal(t, edit.CreateOnly, policy)
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "amzappstore.yaml"), `
client_id: id
client_secret: secret
package_name: com.example.app
apk_paths:
  - build/*.apk
skip_upload_images: false
overwrite_upload: true
overwrite_upload_mode: reuse
timeout: 60
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, []string{"build/*.apk"}, cfg.APKPaths)
	assert.False(t, cfg.SkipUploadImages)
	assert.True(t, cfg.SkipUploadScreenshots, "unset keys keep their defaults")
	assert.Equal(t, DefaultMetadataPath, cfg.MetadataPath)
	assert.Equal(t, time.Minute, cfg.TimeoutDuration())

	policy, err := cfg.EditPolicy()
	require.NoError(t, err)
	assert.Equal(t, edit.ReuseIfPresent, policy)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "config init")

	_, err = LoadFromFile(writeFile(t, filepath.Join(dir, "unknown.yaml"), "client_idd: typo\n"))
	assert.ErrorContains(t, err, "client_idd")

	cfg, err := LoadFromFile(writeFile(t, filepath.Join(dir, "empty.yaml"), ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)

	cfg, used, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, Default(), cfg)

	writeFile(t, filepath.Join(dir, DefaultConfigFile), "package_name: com.example.app\n")
	cfg, used, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigFile, used)
	assert.Equal(t, "com.example.app", cfg.PackageName)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"AMAZON_APPSTORE_CLIENT_ID":                   "env-id",
		"AMAZON_APPSTORE_CLIENT_SECRET":               "env-secret",
		"AMAZON_APPSTORE_PACKAGE_NAME":                "com.example.env",
		"AMAZON_APPSTORE_APK_PATHS":                   "a.apk, b.apk,,",
		"AMAZON_APPSTORE_SKIP_UPLOAD_SCREENSHOTS":     "false",
		"AMAZON_APPSTORE_CHANGES_NOT_SENT_FOR_REVIEW": "true",
		"AMAZON_APPSTORE_TIMEOUT":                     "45",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "env-id", cfg.ClientID)
	assert.Equal(t, "env-secret", cfg.ClientSecret)
	assert.Equal(t, "com.example.env", cfg.PackageName)
	assert.Equal(t, []string{"a.apk", "b.apk"}, cfg.APKPaths)
	assert.False(t, cfg.SkipUploadScreenshots)
	assert.True(t, cfg.ChangesNotSentForReview)
	assert.Equal(t, 45, cfg.Timeout)
	assert.Equal(t, DefaultMetadataPath, cfg.MetadataPath)
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"AMAZON_APPSTORE_OVERWRITE_UPLOAD": "maybe",
		"AMAZON_APPSTORE_TIMEOUT":          "soon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			err := Default().ApplyEnv(func(k string) (string, bool) {
				if k == key {
					return value, true
				}
				return "", false
			})
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Upload)
		wantErr string
	}{
		{name: "valid", mutate: func(*Upload) {}},
		{name: "missing credentials", mutate: func(c *Upload) { c.ClientID, c.ClientSecret = "", "" },
			wantErr: "client_id, client_secret"},
		{name: "missing package", mutate: func(c *Upload) { c.PackageName = "" }, wantErr: "package_name"},
		{name: "zero timeout", mutate: func(c *Upload) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "bad mode", mutate: func(c *Upload) { c.OverwriteUpload, c.OverwriteUploadMode = true, "merge" },
			wantErr: "merge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.ClientID, cfg.ClientSecret, cfg.PackageName = "id", "secret", "com.example.app"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestResolveAPKPaths(t *testing.T) {
	dir := t.TempDir()
	single := writeFile(t, filepath.Join(dir, "release.apk"), "1")
	writeFile(t, filepath.Join(dir, "out", "arm64", "app.apk"), "2")
	writeFile(t, filepath.Join(dir, "out", "x86", "app.apk"), "3")
	writeFile(t, filepath.Join(dir, "out", "notes.txt"), "")

	cfg := Default()
	cfg.APK = single
	cfg.APKPaths = []string{filepath.Join(dir, "out", "**", "*.apk"), single}

	paths, err := cfg.ResolveAPKPaths()
	require.NoError(t, err)
	assert.Equal(t, []string{
		single,
		filepath.Join(dir, "out", "arm64", "app.apk"),
		filepath.Join(dir, "out", "x86", "app.apk"),
	}, paths)
}

func TestResolveAPKPaths_Errors(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.APK = filepath.Join(dir, "missing.apk")
	_, err := cfg.ResolveAPKPaths()
	assert.ErrorContains(t, err, "missing.apk")

	cfg = Default()
	cfg.APKPaths = []string{filepath.Join(dir, "*.apk")}
	_, err = cfg.ResolveAPKPaths()
	assert.ErrorContains(t, err, "no apk files match")

	paths, err := Default().ResolveAPKPaths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteTemplate(path, false))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, Default().MetadataPath, cfg.MetadataPath)
	assert.Equal(t, Default().Timeout, cfg.Timeout)
	assert.True(t, cfg.SkipUploadImages)

	assert.ErrorContains(t, WriteTemplate(path, false), "already exists")
	assert.NoError(t, WriteTemplate(path, true))
}

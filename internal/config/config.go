// Package config loads the upload configuration from defaults, a YAML file
// and AMAZON_APPSTORE_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/footprintai/amzappstore/internal/edit"
)

const (
	// DefaultConfigFile is the config file looked up in the working directory
	DefaultConfigFile = "amzappstore.yaml"

	// DefaultMetadataPath is the default metadata tree location
	DefaultMetadataPath = "./fastlane/metadata/android"

	// DefaultTimeout is the default HTTP timeout in seconds
	DefaultTimeout = 300

	// EnvPrefix prefixes every environment variable read by ApplyEnv
	EnvPrefix = "AMAZON_APPSTORE_"
)

// Upload holds every setting of an upload run
type Upload struct {
	// ClientID and ClientSecret are the security profile credentials
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`

	// PackageName is the application id, e.g. com.example.app
	PackageName string `yaml:"package_name"`

	// APK is a single package path; APKPaths may hold glob patterns
	APK      string   `yaml:"apk,omitempty"`
	APKPaths []string `yaml:"apk_paths,omitempty"`

	MetadataPath string `yaml:"metadata_path"`

	SkipUploadAPK         bool `yaml:"skip_upload_apk"`
	SkipUploadChangelogs  bool `yaml:"skip_upload_changelogs"`
	SkipUploadMetadata    bool `yaml:"skip_upload_metadata"`
	SkipUploadImages      bool `yaml:"skip_upload_images"`
	SkipUploadScreenshots bool `yaml:"skip_upload_screenshots"`

	ChangesNotSentForReview bool `yaml:"changes_not_sent_for_review"`

	// OverwriteUpload handles an edit left open by a previous run according
	// to OverwriteUploadMode ("new" or "reuse")
	OverwriteUpload     bool   `yaml:"overwrite_upload"`
	OverwriteUploadMode string `yaml:"overwrite_upload_mode"`

	// Timeout is the HTTP timeout in seconds
	Timeout int `yaml:"timeout"`

	APIBase      string `yaml:"api_base,omitempty"`
	TokenURL     string `yaml:"token_url,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// Default returns the built-in defaults
func Default() *Upload {
	return &Upload{
		MetadataPath:          DefaultMetadataPath,
		SkipUploadImages:      true,
		SkipUploadScreenshots: true,
		OverwriteUploadMode:   edit.ModeNew,
		Timeout:               DefaultTimeout,
	}
}

// UserConfigPath returns the per-user config file path
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "amzappstore", "config.yaml")
}

// SearchPaths returns the config files tried when no path is given, in order
func SearchPaths() []string {
	paths := []string{DefaultConfigFile}
	if p := UserConfigPath(); p != "" {
		paths = append(paths, p)
	}
	return paths
}

// Load reads the config file at path, or the first existing file from
// SearchPaths when path is empty. It returns the file used ("" when none was
// found and defaults apply).
func Load(path string) (*Upload, string, error) {
	if path != "" {
		cfg, err := LoadFromFile(path)
		return cfg, path, err
	}

	for _, p := range SearchPaths() {
		if _, err := os.Stat(p); err == nil {
			cfg, err := LoadFromFile(p)
			return cfg, p, err
		}
	}
	return Default(), "", nil
}

// LoadFromFile reads a YAML config file over the defaults. Unknown keys are rejected.
func LoadFromFile(path string) (*Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config not found at %s (run 'amzappstore config init' first)", path)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides settings from AMAZON_APPSTORE_* variables. lookup is
// usually os.LookupEnv.
func (c *Upload) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"CLIENT_ID":             &c.ClientID,
		"CLIENT_SECRET":         &c.ClientSecret,
		"PACKAGE_NAME":          &c.PackageName,
		"APK":                   &c.APK,
		"METADATA_PATH":         &c.MetadataPath,
		"OVERWRITE_UPLOAD_MODE": &c.OverwriteUploadMode,
		"API_BASE":              &c.APIBase,
		"TOKEN_URL":             &c.TokenURL,
		"OTLP_ENDPOINT":         &c.OTLPEndpoint,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"SKIP_UPLOAD_APK":             &c.SkipUploadAPK,
		"SKIP_UPLOAD_CHANGELOGS":      &c.SkipUploadChangelogs,
		"SKIP_UPLOAD_METADATA":        &c.SkipUploadMetadata,
		"SKIP_UPLOAD_IMAGES":          &c.SkipUploadImages,
		"SKIP_UPLOAD_SCREENSHOTS":     &c.SkipUploadScreenshots,
		"CHANGES_NOT_SENT_FOR_REVIEW": &c.ChangesNotSentForReview,
		"OVERWRITE_UPLOAD":            &c.OverwriteUpload,
	}
	for name, dst := range bools {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %q is not a boolean", EnvPrefix, name, v)
		}
		*dst = b
	}

	if v, ok := lookup(EnvPrefix + "APK_PATHS"); ok && v != "" {
		c.APKPaths = splitList(v)
	}

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sTIMEOUT: %q is not a number of seconds", EnvPrefix, v)
		}
		c.Timeout = n
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings required for an upload
func (c *Upload) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.PackageName == "" {
		missing = append(missing, "package_name")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be a positive number of seconds, got %d", c.Timeout)
	}

	if _, err := c.EditPolicy(); err != nil {
		return err
	}
	return nil
}

// TimeoutDuration returns the HTTP timeout
func (c *Upload) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// EditPolicy maps the overwrite settings to an edit policy
func (c *Upload) EditPolicy() (edit.Policy, error) {
	return edit.ParsePolicy(c.OverwriteUpload, c.OverwriteUploadMode)
}

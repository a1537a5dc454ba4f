package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const template = `# amzappstore configuration
#
# Every setting can also be given as an AMAZON_APPSTORE_<NAME> environment
# variable (e.g. AMAZON_APPSTORE_CLIENT_SECRET) or a command line flag.

# Security profile credentials from the Amazon developer console
client_id: ""
client_secret: ""

# Application id, e.g. com.example.app
package_name: ""

# APK files to upload. Entries may be glob patterns such as build/**/*.apk
apk_paths: []

metadata_path: %q

skip_upload_apk: false
skip_upload_changelogs: false
skip_upload_metadata: false
skip_upload_images: true
skip_upload_screenshots: true

# Leave the edit open instead of submitting it for review
changes_not_sent_for_review: false

# What to do with an edit left open by a previous run: "new" deletes it,
# "reuse" continues with it
overwrite_upload: false
overwrite_upload_mode: %q

# HTTP timeout in seconds
timeout: %d
`

// Template returns the commented config file written by WriteTemplate
func Template() string {
	return fmt.Sprintf(template, DefaultMetadataPath, Default().OverwriteUploadMode, DefaultTimeout)
}

// WriteTemplate writes a commented config file to path. An existing file is
// only replaced when force is set.
func WriteTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	// Write with restricted permissions (owner read/write only)
	if err := os.WriteFile(path, []byte(Template()), 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

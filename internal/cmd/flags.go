package cmd

import (
	"github.com/footprintai/amzappstore/internal/config"
	"github.com/spf13/cobra"
)

// connectionFlags are shared by every command that talks to the API
type connectionFlags struct {
	clientID     string
	clientSecret string
	packageName  string
	timeout      int
	apiBase      string
	tokenURL     string
	otlpEndpoint string
}

func (f *connectionFlags) bind(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&f.clientID, "client-id", "", "security profile client id (or AMAZON_APPSTORE_CLIENT_ID)")
	fs.StringVar(&f.clientSecret, "client-secret", "", "security profile client secret (or AMAZON_APPSTORE_CLIENT_SECRET)")
	fs.StringVar(&f.packageName, "package-name", "", "application id, e.g. com.example.app")
	fs.IntVar(&f.timeout, "timeout", config.DefaultTimeout, "HTTP timeout in seconds")
	fs.StringVar(&f.apiBase, "api-base", "", "Appstore API base URL")
	fs.StringVar(&f.tokenURL, "token-url", "", "OAuth2 token endpoint")
	fs.StringVar(&f.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP metrics URL (metrics export is disabled when empty)")
}

// apply copies every flag set on the command line over cfg
func (f *connectionFlags) apply(cmd *cobra.Command, cfg *config.Upload) {
	fs := cmd.Flags()
	if fs.Changed("client-id") {
		cfg.ClientID = f.clientID
	}
	if fs.Changed("client-secret") {
		cfg.ClientSecret = f.clientSecret
	}
	if fs.Changed("package-name") {
		cfg.PackageName = f.packageName
	}
	if fs.Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if fs.Changed("api-base") {
		cfg.APIBase = f.apiBase
	}
	if fs.Changed("token-url") {
		cfg.TokenURL = f.tokenURL
	}
	if fs.Changed("otlp-endpoint") {
		cfg.OTLPEndpoint = f.otlpEndpoint
	}
}

// uploadFlags are the flags of the upload command
type uploadFlags struct {
	apk          string
	apkPaths     []string
	metadataPath string

	skipUploadAPK         bool
	skipUploadChangelogs  bool
	skipUploadMetadata    bool
	skipUploadImages      bool
	skipUploadScreenshots bool

	changesNotSentForReview bool
	overwriteUpload         bool
	overwriteUploadMode     string

	reportFile string
}

func (f *uploadFlags) bind(cmd *cobra.Command) {
	defaults := config.Default()
	fs := cmd.Flags()
	fs.StringVar(&f.apk, "apk", "", "path to the APK to upload")
	fs.StringSliceVar(&f.apkPaths, "apk-paths", nil, "APK paths or glob patterns (comma separated or repeated)")
	fs.StringVar(&f.metadataPath, "metadata-path", defaults.MetadataPath, "metadata tree root")
	fs.BoolVar(&f.skipUploadAPK, "skip-upload-apk", defaults.SkipUploadAPK, "do not upload APKs")
	fs.BoolVar(&f.skipUploadChangelogs, "skip-upload-changelogs", defaults.SkipUploadChangelogs, "write a placeholder instead of changelog files")
	fs.BoolVar(&f.skipUploadMetadata, "skip-upload-metadata", defaults.SkipUploadMetadata, "do not upload listing text")
	fs.BoolVar(&f.skipUploadImages, "skip-upload-images", defaults.SkipUploadImages, "do not upload icons and promotional images")
	fs.BoolVar(&f.skipUploadScreenshots, "skip-upload-screenshots", defaults.SkipUploadScreenshots, "do not upload screenshots")
	fs.BoolVar(&f.changesNotSentForReview, "changes-not-sent-for-review", defaults.ChangesNotSentForReview, "leave the edit open instead of committing it")
	fs.BoolVar(&f.overwriteUpload, "overwrite-upload", defaults.OverwriteUpload, "handle an edit left open by a previous run")
	fs.StringVar(&f.overwriteUploadMode, "overwrite-upload-mode", defaults.OverwriteUploadMode, "new (delete the open edit) or reuse (continue with it)")
	fs.StringVar(&f.reportFile, "report-file", "", "write a JSON run report to this file")
}

func (f *uploadFlags) apply(cmd *cobra.Command, cfg *config.Upload) {
	fs := cmd.Flags()
	if fs.Changed("apk") {
		cfg.APK = f.apk
	}
	if fs.Changed("apk-paths") {
		cfg.APKPaths = f.apkPaths
	}
	if fs.Changed("metadata-path") {
		cfg.MetadataPath = f.metadataPath
	}

	bools := map[string]struct {
		src bool
		dst *bool
	}{
		"skip-upload-apk":             {f.skipUploadAPK, &cfg.SkipUploadAPK},
		"skip-upload-changelogs":      {f.skipUploadChangelogs, &cfg.SkipUploadChangelogs},
		"skip-upload-metadata":        {f.skipUploadMetadata, &cfg.SkipUploadMetadata},
		"skip-upload-images":          {f.skipUploadImages, &cfg.SkipUploadImages},
		"skip-upload-screenshots":     {f.skipUploadScreenshots, &cfg.SkipUploadScreenshots},
		"changes-not-sent-for-review": {f.changesNotSentForReview, &cfg.ChangesNotSentForReview},
		"overwrite-upload":            {f.overwriteUpload, &cfg.OverwriteUpload},
	}
	for name, b := range bools {
		if fs.Changed(name) {
			*b.dst = b.src
		}
	}

	if fs.Changed("overwrite-upload-mode") {
		cfg.OverwriteUploadMode = f.overwriteUploadMode
	}
}

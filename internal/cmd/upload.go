package cmd

import (
	"fmt"
	"io"

	"github.com/footprintai/amzappstore/internal/assets"
	"github.com/footprintai/amzappstore/internal/config"
	"github.com/footprintai/amzappstore/internal/events"
	"github.com/footprintai/amzappstore/internal/workflow"
	"github.com/spf13/cobra"
)

var upload uploadFlags

var uploadCmd = &cobra.Command{
	Use:   "upload [apk...]",
	Short: "Upload APKs and listing metadata",
	Long: `Upload APKs, changelogs and listing metadata to a new or existing edit.

This command performs the following steps:
  1. Fetches an access token with the client credentials
  2. Opens an edit (see --overwrite-upload)
  3. Replaces, adds or removes APKs so the edit holds exactly the given APKs
  4. Sets the recent changes of every listing from <lang>/changelogs/<versionCode>.txt,
     falling back to <lang>/changelogs/default.txt
  5. Uploads listing text, images and screenshots (unless skipped)
  6. Commits the edit (unless --changes-not-sent-for-review)

APK paths come from --apk, --apk-paths, positional arguments and the config
file. Entries may be glob patterns such as 'build/**/*-release.apk'.

If the run fails, the open edit is left in place. Use --overwrite-upload to
delete it (mode new) or continue with it (mode reuse) on the next run.

Examples:
  # Upload one APK
  amzappstore upload --package-name com.example.app --apk app-release.apk

  # Upload every release APK and keep the edit open for manual review
  amzappstore upload 'build/**/*-release.apk' --changes-not-sent-for-review

  # Replace an edit left open by a failed run
  amzappstore upload --apk app-release.apk --overwrite-upload --overwrite-upload-mode new`,
	Args: cobra.ArbitraryArgs,
	RunE: runUpload,
}

func init() {
	upload.bind(uploadCmd)
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := newConsole(cmd)

	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}
	upload.apply(cmd, cfg)
	cfg.APKPaths = append(cfg.APKPaths, args...)

	if err := promptSecret(cmd.OutOrStdout(), cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var apkPaths []string
	if !cfg.SkipUploadAPK {
		if apkPaths, err = cfg.ResolveAPKPaths(); err != nil {
			return err
		}
	}
	policy, err := cfg.EditPolicy()
	if err != nil {
		return err
	}

	metrics, shutdown, err := setupTelemetry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	bus := events.NewBus()
	var recorder *events.Recorder
	if upload.reportFile != "" {
		recorder = events.NewRecorder(bus)
	}

	newAPI := func(token string) workflow.API {
		return newClient(cfg, token, metrics)
	}
	publisher := workflow.NewPublisher(newAuthenticator(cfg), newAPI, logger).WithEvents(bus)

	printUploadHeader(cmd.OutOrStdout(), cfg, apkPaths)

	result, runErr := publisher.Run(ctx, workflow.Options{
		PackageName:             cfg.PackageName,
		APKPaths:                apkPaths,
		MetadataPath:            cfg.MetadataPath,
		SkipUploadAPK:           cfg.SkipUploadAPK,
		SkipUploadChangelogs:    cfg.SkipUploadChangelogs,
		SkipUploadMetadata:      cfg.SkipUploadMetadata,
		SkipUploadImages:        cfg.SkipUploadImages,
		SkipUploadScreenshots:   cfg.SkipUploadScreenshots,
		ChangesNotSentForReview: cfg.ChangesNotSentForReview,
		EditPolicy:              policy,
	})

	if recorder != nil {
		report := events.NewReport(recorder.Stop())
		if err := events.WriteReport(upload.reportFile, report); err != nil {
			logger.Error("%v", err)
		} else {
			logger.Message("Run report written to %s", upload.reportFile)
		}
	}

	if runErr != nil {
		return runErr
	}

	printUploadSummary(cmd.OutOrStdout(), result)
	return nil
}

func printUploadHeader(w io.Writer, cfg *config.Upload, apkPaths []string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w, "  Amazon Appstore Upload")
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintf(w, "  Package:  %s\n", cfg.PackageName)
	if cfg.SkipUploadAPK {
		fmt.Fprintln(w, "  APKs:     (skipped)")
	}
	for _, p := range apkPaths {
		fmt.Fprintf(w, "  APK:      %s\n", p)
	}
	fmt.Fprintf(w, "  Metadata: %s\n", cfg.MetadataPath)
	fmt.Fprintln(w, "===========================================")
	fmt.Fprintln(w)
}

func printUploadSummary(w io.Writer, result *workflow.Result) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Edit:        %s\n", result.EditID)
	for _, a := range result.APKs {
		fmt.Fprintf(w, "  APK:         %s (versionCode %s)\n", a.APKID, a.VersionCode)
	}
	for _, l := range result.Listings {
		fmt.Fprintf(w, "  Listing:     %s %s\n", l.Language, l.Outcome)
	}
	printReport(w, "Metadata", result.Metadata)
	printReport(w, "Images", result.Images)
	printReport(w, "Screenshots", result.Screenshots)
	if result.Committed {
		fmt.Fprintln(w, "  Status:      committed")
	} else {
		fmt.Fprintln(w, "  Status:      open (changes not sent for review)")
	}
	fmt.Fprintln(w)
}

func printReport(w io.Writer, name string, report *assets.Report) {
	if report == nil {
		return
	}
	fmt.Fprintf(w, "  %-12s %d uploaded, %d failed\n", name+":", report.Uploaded, len(report.Failures))
	for _, f := range report.Failures {
		fmt.Fprintf(w, "    %s\n", f)
	}
}

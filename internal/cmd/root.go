package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/footprintai/amzappstore/pkg/version"
	"github.com/spf13/cobra"
)

var (
	cfgFile        string
	verbose        bool
	noColor        bool
	verboseVersion bool
	jsonVersion    bool

	conn connectionFlags
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amzappstore",
	Short: "amzappstore - publish Android apps to the Amazon Appstore",
	Long: `amzappstore publishes APKs, changelogs and store listing metadata to the
Amazon Appstore through the App Submission API.

It enables you to:
  - Upload one or more APKs to an edit, replacing the ones already attached
  - Set the recent changes text of every listing from changelog files
  - Upload listing text, images and screenshots from a metadata tree
  - Commit the edit for review, or leave it open for manual review

Settings are read from a YAML config file, AMAZON_APPSTORE_* environment
variables and flags, in increasing order of priority.

Examples:
  # Write a config file template
  amzappstore config init

  # Upload an APK and submit it for review
  amzappstore upload --apk app/build/outputs/apk/release/app-release.apk

  # Delete an edit left open by a failed run
  amzappstore edit delete`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Display version information for amzappstore.

Use --verbose flag for detailed build information including Git commit, build time, Go version, and platform.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case jsonVersion:
			data, err := json.MarshalIndent(version.Get(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		case verboseVersion:
			fmt.Fprintln(cmd.OutOrStdout(), version.Verbose())
		default:
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./amzappstore.yaml, then $HOME/.config/amzappstore/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	// Appstore connection flags
	conn.bind(rootCmd)

	// Version command with verbose flag
	versionCmd.Flags().BoolVar(&verboseVersion, "verbose", false, "show detailed version information")
	versionCmd.Flags().BoolVar(&jsonVersion, "json", false, "print version information as JSON")
	rootCmd.AddCommand(versionCmd)
}

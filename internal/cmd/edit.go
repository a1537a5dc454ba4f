package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/config"
	"github.com/footprintai/amzappstore/internal/edit"
	"github.com/footprintai/amzappstore/internal/ui"
	"github.com/spf13/cobra"
)

// editCmd represents the edit command
var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Inspect or discard the open edit",
	Long: `Inspect or discard the edit currently open for an application.

Only one edit can be open per application. A failed upload leaves its edit
open; these commands let you look at it or delete it before the next run.

Examples:
  # Show the open edit and its APKs
  amzappstore edit show --package-name com.example.app

  # Delete the open edit
  amzappstore edit delete --package-name com.example.app`,
}

var editShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the open edit and its APKs",
	Args:  cobra.NoArgs,
	RunE:  runEditShow,
}

var editDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the open edit",
	Args:  cobra.NoArgs,
	RunE:  runEditDelete,
}

func init() {
	editCmd.AddCommand(editShowCmd)
	editCmd.AddCommand(editDeleteCmd)
	rootCmd.AddCommand(editCmd)
}

// connect loads the config and returns an authenticated API client
func connect(cmd *cobra.Command, logger ui.Logger) (*config.Upload, *appstore.Client, error) {
	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := promptSecret(cmd.OutOrStdout(), cfg); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	token, err := newAuthenticator(cfg).Token(commandContext(cmd))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get token: %w", err)
	}
	return cfg, newClient(cfg, token, nil), nil
}

func runEditShow(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	logger := newConsole(cmd)

	cfg, client, err := connect(cmd, logger)
	if err != nil {
		return err
	}

	open, err := client.GetOpenEdit(ctx, cfg.PackageName)
	if err != nil {
		return fmt.Errorf("failed to get edit: %w", err)
	}
	if open.Value == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No open edit for %s.\n", cfg.PackageName)
		return nil
	}

	apks, err := client.ListAPKs(ctx, cfg.PackageName, open.Value.ID)
	if err != nil {
		return fmt.Errorf("failed to list apks: %w", err)
	}

	printEdit(cmd.OutOrStdout(), open.Value, apks)
	return nil
}

func printEdit(out io.Writer, e *appstore.Edit, apks []appstore.APK) {
	fmt.Fprintf(out, "Edit:   %s\n", e.ID)
	fmt.Fprintf(out, "Status: %s\n", e.Status)
	fmt.Fprintln(out)

	if len(apks) == 0 {
		fmt.Fprintln(out, "No APKs attached.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APK ID\tVERSION CODE\tNAME")
	fmt.Fprintln(w, "------\t------------\t----")
	for _, a := range apks {
		name := a.Name
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, a.VersionCode, name)
	}
	w.Flush()
}

func runEditDelete(cmd *cobra.Command, args []string) error {
	logger := newConsole(cmd)

	cfg, client, err := connect(cmd, logger)
	if err != nil {
		return err
	}

	deleted, err := edit.NewManager(client, logger).DeleteIfExists(commandContext(cmd), cfg.PackageName)
	if err != nil {
		return fmt.Errorf("failed to delete edit: %w", err)
	}
	if !deleted {
		logger.Message("No open edit for %s", cfg.PackageName)
		return nil
	}
	logger.Success("Open edit deleted")
	return nil
}

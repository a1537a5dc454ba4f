package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/footprintai/amzappstore/internal/appstore"
	"github.com/footprintai/amzappstore/internal/auth"
	"github.com/footprintai/amzappstore/internal/config"
	"github.com/footprintai/amzappstore/internal/telemetry"
	"github.com/footprintai/amzappstore/internal/ui"
	"github.com/footprintai/amzappstore/pkg/version"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loadConfig merges the config file, environment and connection flags
func loadConfig(cmd *cobra.Command, logger ui.Logger) (*config.Upload, error) {
	cfg, used, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if used != "" {
		logger.Verbose("Loaded config from %s", used)
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	conn.apply(cmd, cfg)
	return cfg, nil
}

// newConsole creates the console logger for a command
func newConsole(cmd *cobra.Command) *ui.Console {
	out := cmd.OutOrStdout()
	color := false
	if f, ok := out.(*os.File); ok && !noColor {
		color = ui.ColorEnabled(f)
	}
	return ui.NewConsole(out, verbose, color)
}

// promptSecret asks for the client secret when stdin is a terminal
func promptSecret(out io.Writer, cfg *config.Upload) error {
	if cfg.ClientSecret != "" || !term.IsTerminal(int(syscall.Stdin)) {
		return nil
	}

	fmt.Fprint(out, "Enter client secret: ")
	secretBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read client secret: %w", err)
	}
	fmt.Fprintln(out) // New line after password input
	cfg.ClientSecret = strings.TrimSpace(string(secretBytes))
	return nil
}

func newAuthenticator(cfg *config.Upload) *auth.ClientCredentials {
	return auth.NewClientCredentials(cfg.ClientID, cfg.ClientSecret, cfg.TimeoutDuration()).
		WithTokenURL(cfg.TokenURL)
}

func newClient(cfg *config.Upload, token string, metrics *telemetry.Metrics) *appstore.Client {
	return appstore.NewClient(token, cfg.TimeoutDuration()).
		WithAPIBase(cfg.APIBase).
		WithUserAgent(version.UserAgent()).
		WithMetrics(metrics)
}

// setupTelemetry starts metric export when an OTLP endpoint is configured.
// The returned function flushes and stops the exporter.
func setupTelemetry(ctx context.Context, cfg *config.Upload, logger ui.Logger) (*telemetry.Metrics, func(), error) {
	if cfg.OTLPEndpoint == "" {
		return nil, func() {}, nil
	}

	provider, err := telemetry.Setup(ctx, telemetry.Config{
		OTLPEndpoint:   cfg.OTLPEndpoint,
		ServiceVersion: version.Version,
	})
	if err != nil {
		return nil, nil, err
	}

	metrics, err := telemetry.NewMetrics(provider.MeterProvider())
	if err != nil {
		provider.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Verbose("Failed to flush metrics: %v", err)
		}
	}
	return metrics, shutdown, nil
}

// commandContext returns the command context, or a background context
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

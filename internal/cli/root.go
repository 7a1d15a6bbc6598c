// Package cli implements the heroscanner command tree.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
	"HeroScanner/internal/config"
	"HeroScanner/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

// Execute runs the command tree with ctx, typically cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the heroscanner command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "heroscanner",
		Short: "Classify hero posts and serve corpus analytics",
		Long: `heroscanner ingests social media posts mentioning heroes, assigns each
post a category with keyword rules and serves aggregate analytics.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (default: $HERO_SCANNER_CONFIG)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	root.AddCommand(
		newClassifyCmd(opts),
		newImportCmd(opts),
		newIngestCmd(opts),
		newMetricsCmd(opts),
		newMigrateCmd(opts),
		newServeCmd(opts),
		newUsersCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger) {
	cfg := config.Load(o.configPath)
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// withApp opens the application for the duration of fn.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(*app.Application) error) error {
	cfg, logger := o.load()

	application, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "err", err)
		}
	}()

	return fn(application)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

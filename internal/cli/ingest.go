package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
)

var windowLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a semicolon-separated post export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open export: %w", err)
			}
			defer file.Close()

			return opts.withApp(cmd, func(a *app.Application) error {
				result, err := a.Importer.Import(cmd.Context(), file)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	var fromRaw, toRaw string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch posts from the configured searches for a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			to := time.Now().UTC()
			if toRaw != "" {
				parsed, err := parseWindowTime(toRaw)
				if err != nil {
					return fmt.Errorf("--to: %w", err)
				}
				to = parsed
			}

			var from time.Time
			if fromRaw != "" {
				parsed, err := parseWindowTime(fromRaw)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				from = parsed
			}
			if !from.IsZero() && !from.Before(to) {
				return fmt.Errorf("--from must be before --to")
			}

			return opts.withApp(cmd, func(a *app.Application) error {
				if from.IsZero() {
					from = to.Add(-a.Lookback())
				}
				result, err := a.Pipeline.ProcessWindow(cmd.Context(), from, to)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&fromRaw, "from", "", "window start (RFC3339 or YYYY-MM-DD); default: --to minus scheduler lookback")
	cmd.Flags().StringVar(&toRaw, "to", "", "window end (RFC3339 or YYYY-MM-DD); default: now")
	return cmd
}

func parseWindowTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range windowLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q", raw)
}

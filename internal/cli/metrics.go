package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
)

func newMetricsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Engagement metric maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "recalc",
		Short: "Recompute ER and VR for every record with subscribers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(a *app.Application) error {
				updated, err := a.Analytics.RecalculateMetrics(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d records\n", updated)
				return nil
			})
		},
	})
	return cmd
}

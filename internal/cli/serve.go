package cli

import (
	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, when enabled, the ingestion scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(a *app.Application) error {
				return a.Serve(cmd.Context())
			})
		},
	}
}

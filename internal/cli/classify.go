package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
	"HeroScanner/internal/domain"
	"HeroScanner/internal/usecase"
)

func newClassifyCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Run, reset or inspect post classification",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Classify every unclassified record in batches",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withApp(cmd, func(a *app.Application) error {
					var results domain.MarkResults
					err := a.Guard().Do(func() error {
						var runErr error
						results, runErr = a.Classification.RunClassification(cmd.Context())
						return runErr
					})
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), results)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Return every record to unclassified",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withApp(cmd, func(a *app.Application) error {
					if err := a.Classification.ResetClassification(cmd.Context()); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), "classification reset")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "counts",
			Short: "Print per-category totals",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withApp(cmd, func(a *app.Application) error {
					counts, err := a.Classification.GetClassificationCounts(cmd.Context(), domain.RecordFilter{})
					if err != nil {
						return err
					}
					for _, c := range domain.Counted() {
						fmt.Fprintf(cmd.OutOrStdout(), "%-10s %d\n", c, counts[c])
					}
					return nil
				})
			},
		},
		newExplainCmd(opts),
	)
	return cmd
}

// newExplainCmd classifies text offline with the configured rules.
func newExplainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <text>",
		Short: "Show how a text would be classified",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger := opts.load()
			svc := usecase.NewClassificationService(usecase.ClassificationDeps{
				Logger:    logger,
				RulesFile: cfg.Classification.RulesFile,
			})

			decision, err := svc.Explain(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), decision)
		},
	}
}

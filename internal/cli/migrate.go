package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withApp(cmd, func(a *app.Application) error {
					m, err := a.Migrator()
					if err != nil {
						return err
					}
					changed, err := m.Up()
					if err != nil {
						return err
					}
					reportMigration(cmd, changed)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations (one step by default)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps := 1
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[0])
					}
					steps = n
				}
				return opts.withApp(cmd, func(a *app.Application) error {
					m, err := a.Migrator()
					if err != nil {
						return err
					}
					changed, err := m.Down(steps)
					if err != nil {
						return err
					}
					reportMigration(cmd, changed)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withApp(cmd, func(a *app.Application) error {
					m, err := a.Migrator()
					if err != nil {
						return err
					}
					version, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func reportMigration(cmd *cobra.Command, changed bool) {
	if changed {
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "no change")
}

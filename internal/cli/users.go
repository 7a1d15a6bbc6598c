package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"HeroScanner/internal/app"
	"HeroScanner/internal/domain"
)

func newUsersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage API accounts",
	}

	var email, password, roleRaw string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account, e.g. the first admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			role, err := domain.ParseRole(roleRaw)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(a *app.Application) error {
				id, err := a.Users.CreateUser(cmd.Context(), email, password, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", id, role)
				return nil
			})
		},
	}
	create.Flags().StringVar(&email, "email", "", "account email")
	create.Flags().StringVar(&password, "password", "", "account password")
	create.Flags().StringVar(&roleRaw, "role", string(domain.RoleUser), "role: user or admin")
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and end login sessions",
	}

	cmd.AddCommand(newSessionsRevokeCmd())
	cmd.AddCommand(newSessionsCleanupCmd())

	return cmd
}

func newSessionsRevokeCmd() *cobra.Command {
	var role, id string

	cmd := &cobra.Command{
		Use:   "revoke",
		Short: "End every active session of an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(role)
			if err != nil {
				return err
			}

			authority, closeDB, err := openAuthority(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			count, err := authority.Admin.RevokeSessions(cmd.Context(), r, id)
			if err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			fmt.Printf("Ended %d session(s)\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "admin", "account role: super-admin or admin")
	cmd.Flags().StringVar(&id, "id", "", "account id (required)")
	cmd.MarkFlagRequired("id")

	return cmd
}

func newSessionsCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Run the expiry sweeps once (sessions, codes, login attempts)",
		RunE: func(cmd *cobra.Command, args []string) error {
			authority, closeDB, err := openAuthority(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			for _, task := range authority.CleanupTasks() {
				n, err := task.Run(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s: %w", task.Name, err)
				}
				fmt.Printf("%-18s %d\n", task.Name, n)
			}
			return nil
		},
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage super admin and admin accounts",
	}

	cmd.AddCommand(newAccountCreateCmd())
	cmd.AddCommand(newAccountResetPasswordCmd())
	cmd.AddCommand(newAccountCheckPasswordCmd())
	cmd.AddCommand(newAccountUnlockCmd())
	cmd.AddCommand(newAccountSetActiveCmd("activate", true))
	cmd.AddCommand(newAccountSetActiveCmd("deactivate", false))

	return cmd
}

// ---------- account create ----------

func newAccountCreateCmd() *cobra.Command {
	var role, email, name, password string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a super admin or admin account",
		Example: `  labctl account create --role admin --email lead@lab.example --name "Lab Lead"
  labctl account create --role super-admin --email root@lab.example  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = promptNewPassword(); err != nil {
					return err
				}
			}

			authority, closeDB, err := openAuthority(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			account, err := authority.Admin.CreateAccount(cmd.Context(), r, email, name, password)
			if err != nil {
				return fmt.Errorf("create account: %w", err)
			}
			fmt.Printf("Created %s %q (id %s)\n", account.Role, account.Email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "admin", "account role: super-admin or admin")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

// ---------- account reset-password ----------

func newAccountResetPasswordCmd() *cobra.Command {
	var role, email, password string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password and end every session of the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			if password == "" {
				if password, err = promptNewPassword(); err != nil {
					return err
				}
			}

			authority, closeDB, err := openAuthority(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if err := authority.Admin.ResetPassword(cmd.Context(), r, email, password); err != nil {
				return fmt.Errorf("reset password: %w", err)
			}
			fmt.Printf("Password reset for %q\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "admin", "account role: super-admin or admin")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "new password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

// ---------- account check-password ----------

func newAccountCheckPasswordCmd() *cobra.Command {
	var role, email string

	cmd := &cobra.Command{
		Use:   "check-password",
		Short: "Check a password against the stored hash without logging in",
		Long: `Compares a password with the stored hash. Nothing is recorded in the
lockout ledger and no session is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := parseRole(role)
			if err != nil {
				return err
			}
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}

			authority, closeDB, err := openAuthority(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			ok, err := authority.Admin.CheckPassword(cmd.Context(), r, email, password)
			if err != nil {
				return fmt.Errorf("check password: %w", err)
			}
			if !ok {
				return fmt.Errorf("password does not match")
			}
			fmt.Println("Password matches")
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "admin", "account role: super-admin or admin")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.MarkFlagRequired("email")

	return cmd
}

// ---------- account unlock ----------

func newAccountUnlockCmd() *cobra.Command {
	var role, id string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Clear active lockouts on an account",
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

			if err := authority.Admin.UnlockAccount(cmd.Context(), r, id); err != nil {
				return fmt.Errorf("unlock account: %w", err)
			}
			fmt.Printf("Unlocked %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "admin", "account role: super-admin or admin")
	cmd.Flags().StringVar(&id, "id", "", "account id (required)")
	cmd.MarkFlagRequired("id")

	return cmd
}

// ---------- account activate / deactivate ----------

func newAccountSetActiveCmd(use string, active bool) *cobra.Command {
	var role, id string

	short := "Re-enable a deactivated account"
	if !active {
		short = "Disable an account and end its sessions"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
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

			if err := authority.Admin.SetAccountActive(cmd.Context(), r, id, active); err != nil {
				return fmt.Errorf("%s account: %w", use, err)
			}
			fmt.Printf("Account %s: %sd\n", id, use)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "admin", "account role: super-admin or admin")
	cmd.Flags().StringVar(&id, "id", "", "account id (required)")
	cmd.MarkFlagRequired("id")

	return cmd
}

func promptPassword(label string) (string, error) {
	fmt.Print(label)
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pwBytes), nil
}

func promptNewPassword() (string, error) {
	password, err := promptPassword("Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return password, nil
}

package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BradenHooton/labgate/internal/config"
	"github.com/BradenHooton/labgate/internal/database"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(cmd.Context(), func(ctx context.Context, db *sql.DB) error {
				if err := database.Migrate(ctx, db); err != nil {
					return err
				}
				fmt.Println("Migrations applied")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(cmd.Context(), database.MigrateDown)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQL(cmd.Context(), database.MigrationStatus)
		},
	})

	return cmd
}

// withSQL opens a database/sql handle on the lib/pq driver. The DSN comes
// from --dsn or LABCTL_DSN, falling back to the server's DB_* settings.
func withSQL(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	dsn := viper.GetString("dsn")
	if dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dsn = cfg.Database.DSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	return fn(ctx, db)
}

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BradenHooton/labgate/internal/app"
	"github.com/BradenHooton/labgate/internal/config"
	"github.com/BradenHooton/labgate/internal/database"
	"github.com/BradenHooton/labgate/internal/models"
	"github.com/BradenHooton/labgate/internal/services"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version string) error {
	return newRootCmd(version).ExecuteContext(context.Background())
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "labctl",
		Short: "Operate the labgate credential and session authority",
		Long: `labctl manages labgate accounts and schema from the command line.

It reads the same environment as the API server (DB_*, JWT_SECRET) plus its
own options from labctl.yaml or LABCTL_* variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./labctl.yaml)")
	cmd.PersistentFlags().String("dsn", "", "PostgreSQL DSN for migrations (overrides DB_* settings)")
	cmd.PersistentFlags().Bool("verbose", false, "log at debug level")
	_ = viper.BindPFlag("dsn", cmd.PersistentFlags().Lookup("dsn"))
	_ = viper.BindPFlag("verbose", cmd.PersistentFlags().Lookup("verbose"))

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newAccountCmd())
	cmd.AddCommand(newSessionsCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("labctl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.labgate")
	}

	viper.SetEnvPrefix("LABCTL")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openAuthority connects to PostgreSQL and wires the services the account
// commands drive. The returned func releases the pool.
func openAuthority(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Driver != "postgres" {
		return nil, nil, fmt.Errorf("labctl requires DB_DRIVER=postgres (got %q)", cfg.Database.Driver)
	}

	logger := newLogger()
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, nil, err
	}

	authority, err := app.New(cfg, app.PostgresStores(db), services.NewLogNotifier(cfg.Server.Env, logger), nil, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return authority, db.Close, nil
}

func parseRole(value string) (models.Role, error) {
	switch strings.ToLower(strings.ReplaceAll(value, "_", "-")) {
	case "super-admin":
		return models.RoleSuperAdmin, nil
	case "admin":
		return models.RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q (want super-admin or admin)", value)
	}
}

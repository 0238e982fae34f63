package main

import (
	"fmt"
	"os"

	"bugalou/internal/config"
	"bugalou/internal/database"
	"bugalou/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	root := &cobra.Command{
		Use:   "bugaloctl",
		Short: "Administration tasks for the Bugalou automation backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig()
			_, err := logging.New(cfg.LogLevel, true)
			return err
		},
		SilenceUsage: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(migrateDataCmd())
	root.AddCommand(createCompanyCmd())
	root.AddCommand(backfillDefinitionsCmd())
	root.AddCommand(runEventCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore connects to the configured database and migrates it.
func openStore() (*database.Store, *config.Config, error) {
	cfg := config.LoadConfig()
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to %s: %w", cfg.DBDriver, err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	zap.L().Info("bugaloctl: connected", zap.String("driver", cfg.DBDriver))
	return database.NewStore(db), cfg, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := openStore(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database migration completed")
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"io"

	"bugalou/internal/database"
	"bugalou/internal/models"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const copyBatchSize = 200

func migrateDataCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "migrate-data",
		Short: "Copy all rows from a SQLite database into the configured database",
		Long: `Reads every table from the SQLite file given by --from and inserts the
rows into the database configured through the environment. Rows whose id
already exists in the destination are skipped, so the command can be re-run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return errors.New("--from is required")
			}
			src, err := database.OpenSQLite(from)
			if err != nil {
				return fmt.Errorf("open SQLite source: %w", err)
			}
			store, _, err := openStore()
			if err != nil {
				return err
			}
			return copyAll(src, store.DB, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "path to the SQLite database to copy from")
	return cmd
}

// copyAll copies the tables in dependency order.
func copyAll(src, dst *gorm.DB, out io.Writer) error {
	steps := []struct {
		table string
		copy  func(src, dst *gorm.DB) (int, error)
	}{
		{"companies", copyTable[models.Company]},
		{"company_whatsapp_settings", copyTable[models.CompanyWhatsAppSettings]},
		{"contacts", copyTable[models.Contact]},
		{"flows", copyTable[models.Flow]},
		{"events", copyTable[models.Event]},
		{"messages", copyTable[models.Message]},
	}

	for _, step := range steps {
		n, err := step.copy(src, dst)
		if err != nil {
			return fmt.Errorf("copy %s: %w", step.table, err)
		}
		fmt.Fprintf(out, "Migrated %d rows from %s\n", n, step.table)
	}
	return nil
}

func copyTable[T any](src, dst *gorm.DB) (int, error) {
	var rows []T
	if err := src.Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := dst.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, copyBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

package main

import (
	"fmt"

	"github.com/OnellHernandez/studio/internal/computer"
	"github.com/OnellHernandez/studio/internal/db"
	"github.com/spf13/cobra"
)

var migrateBatchSize int

// migrateNamesCmd 把旧明文或旧口令加密的显示名称重新编码为当前口令
var migrateNamesCmd = &cobra.Command{
	Use:   "migrate-names",
	Short: "Re-encode legacy display names with the configured passphrase",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer db.CloseDatabase(database)

		obfuscator, err := newObfuscator(cfg)
		if err != nil {
			return err
		}

		batch := cfg.Obfuscation.MigrationBatchSize
		if migrateBatchSize > 0 {
			batch = migrateBatchSize
		}

		service := computer.NewService(computer.NewRepository(database), obfuscator, nil)
		result, err := service.MigrateLegacyNames(cmd.Context(), batch)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d migrated=%d skipped=%d\n", result.Scanned, result.Migrated, result.Skipped)
		return nil
	},
}

func init() {
	migrateNamesCmd.Flags().IntVar(&migrateBatchSize, "batch-size", 0, "records per batch (default obfuscation.migration_batch_size)")
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/payout_vault/internal/config"
	"github.com/congo-pay/payout_vault/internal/infra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Read()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set")
		}
		db, err := infra.OpenSQL(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := infra.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
		return nil
	},
}

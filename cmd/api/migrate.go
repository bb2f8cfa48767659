package main

import (
	"fmt"

	"VISO_Collective/internal/config"
	"VISO_Collective/internal/repository/mysql"

	"github.com/spf13/cobra"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create records and outbox tables for sql store drivers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if !cfg.SQLStore() {
				return fmt.Errorf("store.driver %q has no schema to migrate", cfg.Store.Driver)
			}
			db, err := mysql.InitDB(cfg.Store.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			if err := mysql.Migrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrated", cfg.Store.Driver)
			return nil
		},
	}
}

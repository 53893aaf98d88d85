package cmd

import (
	"github.com/spf13/cobra"

	"github.com/linkit-hq/linkit-engine/pkg/database"
)

func migrateCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:          "up",
		Short:        "Apply all pending migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadBase(version)
			if err != nil {
				return err
			}
			sqlDB, err := openMigrationDB(cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return database.RunMigrations(sqlDB, logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:          "down",
		Short:        "Roll back the most recent migrations",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadBase(version)
			if err != nil {
				return err
			}
			sqlDB, err := openMigrationDB(cfg)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			return database.RollbackMigrations(sqlDB, steps, logger)
		},
	}
	down.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	return cmd
}

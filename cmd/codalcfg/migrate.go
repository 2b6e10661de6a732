package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/database"
)

func (a *app) migrateCmd() *cobra.Command {
	var (
		down   bool
		status bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back ledger migrations",
		Long: `Migrate applies pending ledger migrations. Every command that uses the
ledger does this itself; migrate exists to roll back with --down and to
report progress with --status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := database.Open(ctx, database.Config{
				Path:        a.cfg.Database.Path,
				WALMode:     a.cfg.Database.WALMode,
				BusyTimeout: a.cfg.Database.BusyTimeout,
			})
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer db.Close() //nolint:errcheck // Read-only paths have nothing to lose

			if err := db.HealthCheck(ctx); err != nil {
				return err
			}

			switch {
			case status:
			case down:
				if err := db.MigrateDown(ctx); err != nil {
					return err
				}
			default:
				if err := db.Migrate(ctx); err != nil {
					return err
				}
			}

			applied, pending, err := db.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			for _, m := range applied {
				fmt.Fprintf(a.stdout, "applied  %s  %s\n", m.Version, m.AppliedAt.Local().Format(time.DateTime))
			}
			for _, m := range pending {
				fmt.Fprintf(a.stdout, "pending  %s  %s\n", m.Version, m.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration")
	cmd.Flags().BoolVar(&status, "status", false, "only report migration status")
	cmd.MarkFlagsMutuallyExclusive("down", "status")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/microbit-carlos/codalcfg/internal/infrastructure/database"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/influxdb"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/mqtt"
)

// check is one line of the status report.
type check struct {
	sink   string
	detail string
	err    error
}

func (a *app) statusCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check that the configured sinks are reachable",
		Long: `Status opens the ledger and connects to the MQTT broker and InfluxDB,
running each client's health check. Only sinks enabled in the config file
are checked unless --all is given. The command fails when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			var checks []check
			if all || a.cfg.Database.Enabled {
				checks = append(checks, a.checkLedger(ctx))
			}
			if all || a.cfg.MQTT.Enabled {
				checks = append(checks, a.checkBroker(ctx))
			}
			if all || a.cfg.InfluxDB.Enabled {
				checks = append(checks, a.checkInfluxDB(ctx))
			}
			if len(checks) == 0 {
				fmt.Fprintln(a.stdout, "no sinks enabled")
				return nil
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SINK\tSTATUS\tDETAIL")
			var errs []error
			for _, c := range checks {
				status, detail := "ok", c.detail
				if c.err != nil {
					status, detail = "failed", c.err.Error()
					errs = append(errs, fmt.Errorf("%s: %w", c.sink, c.err))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", c.sink, status, detail)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "check every sink, enabled or not")
	return cmd
}

func (a *app) checkLedger(ctx context.Context) check {
	c := check{sink: "ledger"}
	db, err := database.Open(ctx, database.Config{
		Path:        a.cfg.Database.Path,
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.Database.BusyTimeout,
	})
	if err != nil {
		c.err = err
		return c
	}
	defer db.Close() //nolint:errcheck // Read-only check

	if c.err = db.HealthCheck(ctx); c.err != nil {
		return c
	}
	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		c.err = err
		return c
	}
	c.detail = fmt.Sprintf("%s, %d migrations applied, %d pending", db.Path(), len(applied), len(pending))
	return c
}

func (a *app) checkBroker(ctx context.Context) check {
	cfg := a.cfg.MQTT
	cfg.Enabled = true
	c := check{sink: "mqtt", detail: fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port)}
	client, err := mqtt.Connect(ctx, cfg)
	if err != nil {
		c.err = err
		return c
	}
	client.SetLogger(a.log)
	defer client.Close() //nolint:errcheck // Offline status is best effort

	c.err = client.HealthCheck(ctx)
	return c
}

func (a *app) checkInfluxDB(ctx context.Context) check {
	cfg := a.cfg.InfluxDB
	cfg.Enabled = true
	c := check{sink: "influxdb", detail: cfg.URL + " bucket " + cfg.Bucket}
	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		c.err = err
		return c
	}
	defer client.Close() //nolint:errcheck // Nothing was written

	c.err = client.HealthCheck(ctx)
	return c
}

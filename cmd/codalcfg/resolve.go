package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/microbit-carlos/codalcfg/internal/distribute"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/influxdb"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/mqtt"
	"github.com/microbit-carlos/codalcfg/internal/ledger"
	"github.com/microbit-carlos/codalcfg/internal/target/header"
)

// Output formats of the resolve command.
const (
	formatText   = "text"
	formatJSON   = "json"
	formatHeader = "header"
	formatNone   = "none"
)

// layerFlags override the target section of the config file.
type layerFlags struct {
	name      string
	base      string
	override  string
	headerOut string
}

func (f *layerFlags) bind(fs *pflag.FlagSet) {
	fs.StringVarP(&f.name, "target", "t", "", "target name (default from target.name)")
	fs.StringVarP(&f.base, "base", "b", "", "base layer: profile name or file (default from target.base)")
	fs.StringVarP(&f.override, "override", "o", "", "override layer: profile name or file (default from target.override)")
	fs.StringVar(&f.headerOut, "header-out", "", "also write the header to this file (default from target.header_out)")
}

type resolveOptions struct {
	layers    layerFlags
	format    string
	record    bool
	publish   bool
	telemetry bool
}

func (a *app) resolveCmd() *cobra.Command {
	var o resolveOptions
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the configured layers and print the result",
		Long: `Resolve merges the base and override layers, checks every invariant and
prints the resolved configuration.

Sinks enabled in the config file or by flag receive the result: the ledger
and InfluxDB record failures as well as successes, MQTT only receives
successful resolutions. The command fails when resolution fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runResolve(cmd.Context(), &o)
		},
	}
	o.layers.bind(cmd.Flags())
	cmd.Flags().StringVarP(&o.format, "format", "f", formatText, "output format: text, json, header or none")
	cmd.Flags().BoolVar(&o.record, "record", false, "record the run in the ledger (also database.enabled)")
	cmd.Flags().BoolVar(&o.publish, "publish", false, "publish the result over MQTT (also mqtt.enabled)")
	cmd.Flags().BoolVar(&o.telemetry, "telemetry", false, "write a telemetry point to InfluxDB (also influxdb.enabled)")
	return cmd
}

// applyLayerFlags copies non-empty flags over the target section and
// revalidates the result.
func (a *app) applyLayerFlags(f layerFlags) error {
	tc := &a.cfg.Target
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{f.name, &tc.Name},
		{f.base, &tc.Base},
		{f.override, &tc.Override},
		{f.headerOut, &tc.HeaderOut},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	return a.cfg.Validate()
}

func (a *app) runResolve(ctx context.Context, o *resolveOptions) error {
	switch o.format {
	case formatText, formatJSON, formatHeader, formatNone:
	default:
		return fmt.Errorf("unknown format %q (want text, json, header or none)", o.format)
	}
	if err := a.applyLayerFlags(o.layers); err != nil {
		return err
	}

	res := resolveLayers(a.cfg.Target)
	a.logResolution(res)

	rec := newRecord(res)
	sinkErr := a.deliver(ctx, res, rec, sinkSet{
		record:    o.record || a.cfg.Database.Enabled,
		publish:   o.publish || a.cfg.MQTT.Enabled,
		telemetry: o.telemetry || a.cfg.InfluxDB.Enabled,
	})
	if res.err != nil {
		if sinkErr != nil {
			a.log.Error("delivering failed resolution", "error", sinkErr)
		}
		return res.err
	}

	if err := a.printResolution(res, rec, o.format); err != nil {
		return err
	}
	if path := res.target.HeaderOut; path != "" {
		err := writeHeaderFile(path, func(f *os.File) error { return header.Write(f, res.resolved) })
		if err != nil {
			return err
		}
		a.log.Info("header written", "path", path, "fingerprint", rec.Fingerprint)
	}
	return sinkErr
}

func (a *app) logResolution(res resolution) {
	if res.err != nil {
		a.log.Error("resolution failed",
			"target", res.target.Name,
			"base", res.target.Base,
			"override", res.target.Override,
			"error", res.err,
		)
		return
	}
	a.log.Info("resolved",
		"target", res.target.Name,
		"keys", res.resolved.Len(),
		"fingerprint", res.resolved.Fingerprint(),
		"duration", res.elapsed,
	)
}

// newRecord builds the ledger record for res. It is also the JSON output.
func newRecord(res resolution) *ledger.Record {
	rec := ledger.FromResult(res.target.Name, res.resolved, res.err)
	rec.Base = res.target.Base
	rec.Override = res.target.Override
	rec.Duration = res.elapsed
	rec.CreatedAt = time.Now().UTC()
	return rec
}

func (a *app) printResolution(res resolution, rec *ledger.Record, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case formatHeader:
		return header.Write(a.stdout, res.resolved)
	case formatNone:
		return nil
	default:
		return printTable(a.stdout, rec)
	}
}

func printTable(w io.Writer, rec *ledger.Record) error {
	fmt.Fprintf(w, "target:      %s\n", rec.Target)
	fmt.Fprintf(w, "fingerprint: %s\n", rec.Fingerprint)
	fmt.Fprintf(w, "keys:        %d\n\n", rec.KeyCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tTYPE\tVALUE\tLAYER\tREF")
	for _, e := range rec.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Key, e.Type, e.Value, e.Layer, e.Ref)
	}
	return tw.Flush()
}

type sinkSet struct {
	record    bool
	publish   bool
	telemetry bool
}

// deliver hands the result to every enabled sink. A failing sink does not
// stop the others; their errors are joined.
func (a *app) deliver(ctx context.Context, res resolution, rec *ledger.Record, sinks sinkSet) error {
	var errs []error
	if sinks.record {
		if err := a.recordResolution(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if sinks.telemetry {
		if err := a.writeTelemetry(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	if sinks.publish && res.err == nil {
		if err := a.publishResolution(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) recordResolution(ctx context.Context, rec *ledger.Record) error {
	repo, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	if err := repo.Record(ctx, rec); err != nil {
		return fmt.Errorf("recording resolution: %w", err)
	}
	a.log.Info("resolution recorded", "id", rec.ID, "outcome", rec.Outcome)
	return nil
}

func (a *app) writeTelemetry(ctx context.Context, rec *ledger.Record) error {
	cfg := a.cfg.InfluxDB
	cfg.Enabled = true
	client, err := influxdb.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	client.SetOnError(func(err error) {
		a.log.Warn("telemetry write failed", "error", err)
	})
	client.WriteResolution(rec.Target, string(rec.Outcome), rec.KeyCount, rec.Invariant, rec.Duration)
	if err := client.Close(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	a.log.Debug("telemetry written", "bucket", cfg.Bucket)
	return nil
}

func (a *app) publishResolution(ctx context.Context, res resolution) error {
	cfg := a.cfg.MQTT
	cfg.Enabled = true
	client, err := mqtt.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	client.SetLogger(a.log)
	defer client.Close() //nolint:errcheck // Offline status is best effort

	summary, err := distribute.New(client, client.Topics()).Publish(ctx, res.target.Name, res.resolved)
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	a.log.Info("resolution published",
		"topic", client.Topics().Resolved(summary.Target),
		"keys", summary.KeyCount,
	)
	return nil
}

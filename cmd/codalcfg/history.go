package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/microbit-carlos/codalcfg/internal/ledger"
)

type historyOptions struct {
	target  string
	outcome string
	limit   int
	offset  int
	id      string
	latest  bool
	json    bool
}

func (a *app) historyCmd() *cobra.Command {
	var o historyOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded resolutions",
		Long: `History lists resolve runs recorded in the ledger, newest first.

With --id it prints one record including its entries. With --latest it
prints the most recent successful record of --target.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			repo, err := a.openLedger(ctx)
			if err != nil {
				return err
			}

			switch {
			case o.id != "":
				rec, err := repo.GetByID(ctx, o.id)
				if err != nil {
					return err
				}
				return a.printJSON(rec)
			case o.latest:
				name := o.target
				if name == "" {
					name = a.cfg.Target.Name
				}
				rec, err := repo.Latest(ctx, name)
				if err != nil {
					return fmt.Errorf("latest resolution of %s: %w", name, err)
				}
				return a.printJSON(rec)
			}

			filter := ledger.Filter{
				Target:  o.target,
				Outcome: ledger.Outcome(o.outcome),
				Limit:   o.limit,
				Offset:  o.offset,
			}
			if filter.Outcome != "" && !filter.Outcome.Valid() {
				return fmt.Errorf("unknown outcome %q", o.outcome)
			}
			result, err := repo.List(ctx, filter)
			if err != nil {
				return err
			}
			if o.json {
				return a.printJSON(result)
			}
			return a.printHistory(result)
		},
	}
	cmd.Flags().StringVarP(&o.target, "target", "t", "", "only show this target")
	cmd.Flags().StringVar(&o.outcome, "outcome", "", "only show this outcome (ok, type_mismatch, ...)")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 0, "page size (default 50, max 200)")
	cmd.Flags().IntVar(&o.offset, "offset", 0, "records to skip")
	cmd.Flags().StringVar(&o.id, "id", "", "show one record")
	cmd.Flags().BoolVar(&o.latest, "latest", false, "show the latest successful record of the target")
	cmd.Flags().BoolVar(&o.json, "json", false, "print the page as JSON")
	return cmd
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printHistory(result *ledger.ListResult) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tID\tTARGET\tOUTCOME\tKEYS\tDETAIL")
	for _, rec := range result.Records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime),
			rec.ID, rec.Target, rec.Outcome, rec.KeyCount, detail(rec))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	shown := len(result.Records)
	if result.Offset+shown < result.Total {
		fmt.Fprintf(a.stdout, "\n%d of %d shown, next page: --offset %d\n",
			shown, result.Total, result.Offset+shown)
	}
	return nil
}

// detail summarises a record in one column: the fingerprint prefix on
// success, otherwise the failed invariant or the message.
func detail(rec ledger.Record) string {
	switch {
	case rec.Outcome == ledger.OutcomeOK:
		if len(rec.Fingerprint) > 12 {
			return rec.Fingerprint[:12]
		}
		return rec.Fingerprint
	case rec.Invariant != "":
		return rec.Invariant
	default:
		return rec.Message
	}
}

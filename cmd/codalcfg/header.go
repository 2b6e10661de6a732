package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/microbit-carlos/codalcfg/internal/target"
	"github.com/microbit-carlos/codalcfg/internal/target/header"
)

func (a *app) headerCmd() *cobra.Command {
	var f layerFlags
	cmd := &cobra.Command{
		Use:   "header",
		Short: "Write the resolved configuration as a C header",
		Long: `Header resolves the configured layers and writes the result as a C header,
to stdout or to --header-out. No sinks are run.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := a.applyLayerFlags(f); err != nil {
				return err
			}
			res := resolveLayers(a.cfg.Target)
			a.logResolution(res)
			if res.err != nil {
				return res.err
			}
			path := a.cfg.Target.HeaderOut
			if path == "" {
				return header.Write(a.stdout, res.resolved)
			}
			if err := writeHeaderFile(path, func(w *os.File) error { return header.Write(w, res.resolved) }); err != nil {
				return err
			}
			a.log.Info("header written", "path", path, "fingerprint", res.resolved.Fingerprint())
			return nil
		},
	}
	f.bind(cmd.Flags())
	return cmd
}

func (a *app) keysCmd() *cobra.Command {
	var (
		required  bool
		component string
	)
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the configuration schema",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			defs := target.Definitions()
			if component != "" {
				keys := target.RequiredKeys(target.Component(component))
				if len(keys) == 0 {
					return fmt.Errorf("no keys are required by component %q", component)
				}
				defs = make([]target.Definition, 0, len(keys))
				for _, k := range keys {
					def, _ := target.Lookup(k)
					defs = append(defs, def)
				}
			}

			tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tMACRO\tTYPE\tREQUIRED BY\tDESCRIPTION")
			for _, d := range defs {
				if required && !d.Required() {
					continue
				}
				consumers := make([]string, len(d.RequiredBy))
				for i, c := range d.RequiredBy {
					consumers[i] = string(c)
				}
				by := strings.Join(consumers, ",")
				if by == "" {
					by = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.Key, d.Key.Macro(), d.Type(), by, d.Doc)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&required, "required", false, "only list keys some component requires")
	cmd.Flags().StringVar(&component, "component", "", "only list keys required by this component")
	return cmd
}

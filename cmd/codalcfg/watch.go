package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/microbit-carlos/codalcfg/internal/distribute"
	"github.com/microbit-carlos/codalcfg/internal/infrastructure/mqtt"
)

func (a *app) watchCmd() *cobra.Command {
	var (
		keys bool
		name string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print resolution summaries published over MQTT",
		Long: `Watch subscribes to the resolved topic of every target and prints each
summary as it arrives, starting with the retained ones. With --keys it also
prints every key value published for one target. It runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := a.cfg.MQTT
			cfg.Enabled = true
			client, err := mqtt.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			client.SetLogger(a.log)
			defer client.Close() //nolint:errcheck // Offline status is best effort

			topics := client.Topics()
			qos := byte(cfg.QoS) //nolint:gosec // QoS validated by config
			err = distribute.Watch(client, topics, qos, func(s distribute.Summary) {
				fmt.Fprintf(a.stdout, "%s  %-24s %3d keys  %s\n",
					s.PublishedAt.Local().Format(time.DateTime), s.Target, s.KeyCount, s.Fingerprint)
			})
			if err != nil {
				return err
			}
			a.log.Info("watching", "topic", topics.AllResolved())

			if keys {
				if name == "" {
					name = a.cfg.Target.Name
				}
				err = distribute.WatchKeys(client, topics, name, qos, func(key string, m distribute.KeyMessage) {
					fmt.Fprintln(a.stdout, formatKeyMessage(name, key, m))
				})
				if err != nil {
					return err
				}
				a.log.Info("watching", "topic", topics.AllConfig(name))
			}

			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().BoolVar(&keys, "keys", false, "also print key values of one target")
	cmd.Flags().StringVarP(&name, "target", "t", "", "target whose keys --keys prints (default from target.name)")
	return cmd
}

func formatKeyMessage(target, key string, m distribute.KeyMessage) string {
	line := fmt.Sprintf("%s  %s = %v (%s)", target, key, m.Value, m.Type)
	if m.Ref != "" {
		line += " via " + m.Ref
	}
	return line
}

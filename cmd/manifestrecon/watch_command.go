package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"manifestrecon/internal/daemon"
	"manifestrecon/internal/inbox"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Import documents dropped into the inbox and run the sheet mirror until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := ctx.openApp()
			if err != nil {
				return err
			}
			defer a.store.Close()

			watcher, err := inbox.NewFromConfig(a.cfg, a.service, a.logger)
			if err != nil {
				return err
			}
			d, err := daemon.New(a.cfg, watcher, a.worker, a.metrics, a.logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}
			defer d.Stop()

			status := d.Status()
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "Watching %s (mirror: %s", status.InboxDir, yesNo(status.MirrorEnabled))
			if status.MetricsAddr != "" {
				fmt.Fprintf(w, ", metrics: http://%s/metrics", status.MetricsAddr)
			}
			fmt.Fprintln(w, "); press Ctrl+C to stop")

			<-signalCtx.Done()
			a.logger.Info("manifestrecon watch shutting down")
			return nil
		},
	}
}

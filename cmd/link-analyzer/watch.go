package main

import (
	"context"
	"os"
	"time"

	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/output"
	"github.com/ritzau/link-analyzer/pkg/watcher"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Analyze every file dropped into a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			inbox := watcher.NewInbox(args[0], svc.jobs,
				watcher.WithInboxPublisher(svc.publisher),
				watcher.WithConcurrency(concurrency),
				watcher.WithNotify(func(it watcher.Item) {
					output.PrintInboxItem(os.Stdout, it)
				}),
			)
			err = inbox.Run(cmd.Context())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if serr := svc.jobs.Shutdown(ctx); serr != nil {
				logging.Warn("jobs did not stop in time", "error", serr)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", watcher.DefaultConcurrency, "Files analyzed at once")
	cmd.Flags().String("nats.url", "", "NATS URL for analysis events")
	return cmd
}

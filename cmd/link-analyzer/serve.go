package main

import (
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/watcher"
	"github.com/ritzau/link-analyzer/pkg/web"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API, and watch the inbox when one is configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			opts := web.Options{
				Publisher: svc.publisher,
				Analyzer:  svc.analyzer,
				Jobs:      svc.jobs,
				Narrator:  svc.narrator,
				Store:     svc.store,
			}
			if svc.sink != nil {
				opts.Sink = svc.sink
			}
			server := web.NewServer(opts)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return server.Start(ctx, cfg.Port)
			})
			if cfg.Inbox != "" {
				inbox := watcher.NewInbox(cfg.Inbox, svc.jobs, watcher.WithInboxPublisher(svc.publisher))
				g.Go(func() error {
					logging.Info("watching inbox", "path", cfg.Inbox)
					return inbox.Run(ctx)
				})
			}
			return g.Wait()
		},
	}

	f := cmd.Flags()
	f.IntP("port", "p", 8080, "HTTP port")
	f.String("inbox", "", "Directory whose files are analyzed as they appear")
	f.String("redis.addr", "", "Redis address for saved analyses and the narrative cache")
	f.String("nats.url", "", "NATS URL for analysis events")
	f.String("neo4j.uri", "", "Neo4j URI for graph export")
	f.String("neo4j.password", "", "Neo4j password")
	f.String("llm.base_url", "", "OpenAI-compatible API base URL")
	f.String("llm.model", "", "Narrative model")
	return cmd
}

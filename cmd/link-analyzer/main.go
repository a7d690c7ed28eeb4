package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/config"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/spf13/cobra"
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "link-analyzer",
		Short:         "Turn spreadsheets and reports into entity link graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			setupLogging(cfg)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Debug logging, including per-row skip reasons")
	pf.Bool("json_logs", false, "Log as JSON")
	pf.String("s3.endpoint", "", "S3-compatible endpoint for s3:// inputs")
	pf.String("s3.region", "", "S3 region")

	root.AddCommand(
		newParseCmd(),
		newGraphCmd(),
		newKindCmd("rif", "Analyze a RIF financial intelligence spreadsheet", analysis.KindRIF),
		newKindCmd("intel", "Analyze a textual intelligence report", analysis.KindIntel),
		newKindCmd("document", "Extract the text of a PDF, DOCX, HTML or TXT document", analysis.KindDocument),
		newServeCmd(),
		newWatchCmd(),
	)
	return root
}

func setupLogging(c *config.Config) {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	if c.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}

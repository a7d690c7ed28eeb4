package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/neo4jsink"
	"github.com/ritzau/link-analyzer/pkg/output"
	"github.com/ritzau/link-analyzer/pkg/source"
	"github.com/ritzau/link-analyzer/pkg/tabular"
	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a CSV, XLSX, XLS, JSON or TXT table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := loadInput(ctx, args[0])
			if err != nil {
				return err
			}
			table, err := tabular.ParseFile(ctx, f, tabular.WithProgress(func(p tabular.Progress) {
				logging.Debug("parsing", "rows", p.RowsDone, "of", p.RowsTotal, "percent", p.Percent)
			}))
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return printJSON(table)
			}
			output.PrintTable(os.Stdout, table)
			return nil
		},
	}
	addJSONFlag(cmd)
	return cmd
}

func newGraphCmd() *cobra.Command {
	var mapping model.ColumnMapping
	var out string

	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Build a link graph from a table, detecting or using the given columns",
		Long: "Build a link graph from a table. Without --source and --target the\n" +
			"column roles are detected from the header names and values.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := analysis.Request{Kind: analysis.KindTable}
			if mapping.Source != "" || mapping.Target != "" {
				if mapping.Source == "" || mapping.Target == "" {
					return fmt.Errorf("--source and --target must be given together")
				}
				req.Mapping = &mapping
			}

			res, err := runAnalysis(cmd, args[0], req)
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeGraph(out, res.Graph); err != nil {
					return err
				}
				logging.Info("wrote graph", "path", out)
			}
			exportGraph(cmd.Context(), res.Graph)
			return present(cmd, res)
		},
	}

	cmd.Flags().StringVar(&mapping.Source, "source", "", "Source column")
	cmd.Flags().StringVar(&mapping.Target, "target", "", "Target column")
	cmd.Flags().StringVar(&mapping.Relationship, "relationship", "", "Relationship type column")
	cmd.Flags().StringVar(&mapping.Weight, "weight", "", "Weight column")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the graph as JSON to this file")
	cmd.Flags().String("neo4j.uri", "", "Also export the graph to this Neo4j instance")
	cmd.Flags().String("neo4j.password", "", "Neo4j password")
	addJSONFlag(cmd)
	return cmd
}

func newKindCmd(name, short string, kind analysis.Kind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runAnalysis(cmd, args[0], analysis.Request{Kind: kind})
			if err != nil {
				return err
			}
			return present(cmd, res)
		},
	}
	addJSONFlag(cmd)
	return cmd
}

// runAnalysis loads location and runs req on it, logging pipeline steps.
func runAnalysis(cmd *cobra.Command, location string, req analysis.Request) (*analysis.Result, error) {
	f, err := loadInput(cmd.Context(), location)
	if err != nil {
		return nil, err
	}
	req.File = f
	return analysis.NewRunner().Run(cmd.Context(), req, stepLogger{})
}

func loadInput(ctx context.Context, location string) (model.File, error) {
	loader := source.NewLoader(source.S3Config{
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	return loader.Load(ctx, location)
}

func writeGraph(path string, g *model.LinkGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := graph.Export(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// exportGraph sends the graph to Neo4j when one is configured. Failures
// are logged; the local result stands.
func exportGraph(ctx context.Context, g *model.LinkGraph) {
	sink, err := neo4jsink.Connect(ctx, neo4jConfig())
	if err != nil {
		logging.Warn("neo4j unavailable, skipping export", "error", err)
		return
	}
	if sink == nil {
		return
	}
	defer sink.Close(ctx)

	id, err := gonanoid.New()
	if err != nil {
		logging.Warn("failed to generate analysis id", "error", err)
		return
	}
	if _, err := sink.Export(ctx, id, g); err != nil {
		logging.Warn("neo4j export failed", "error", err)
		return
	}
	logging.Info("exported graph to neo4j", "analysis", id)
}

func neo4jConfig() neo4jsink.Config {
	return neo4jsink.Config{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	}
}

func present(cmd *cobra.Command, res *analysis.Result) error {
	if jsonOutput(cmd) {
		return printJSON(res)
	}
	output.PrintResult(os.Stdout, res)
	return nil
}

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print the full result as JSON")
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// stepLogger reports pipeline steps through the logger.
type stepLogger struct{}

func (stepLogger) PublishStatus(state, message string, step, total int) {
	if state == analysis.StateError {
		return
	}
	logging.Info(message, "step", fmt.Sprintf("%d/%d", step, total))
}

func (stepLogger) PublishProgress(p tabular.Progress) {
	logging.Debug("parsing rows", "done", p.RowsDone, "total", p.RowsTotal)
}

// Package graph builds typed link graphs from parsed tables.
package graph

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ritzau/link-analyzer/pkg/detect"
	"github.com/ritzau/link-analyzer/pkg/entity"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

type options struct {
	log      *slog.Logger
	classify entity.Classifier
	minLen   int
	maxLen   int
}

// Option configures Build
type Option func(*options)

// WithLogger replaces the component logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithClassifier replaces entity.Classify for node typing.
func WithClassifier(c entity.Classifier) Option {
	return func(o *options) {
		o.classify = c
	}
}

// WithEndpointLength overrides the accepted endpoint length in runes.
func WithEndpointLength(minLen, maxLen int) Option {
	return func(o *options) {
		o.minLen = minLen
		o.maxLen = maxLen
	}
}

// Stats counts the rows a build accepted and skipped.
type Stats struct {
	Rows    int                      `json:"rows"`
	Edges   int                      `json:"edges"`
	Skipped map[model.SkipReason]int `json:"skipped"`
}

// SkippedTotal sums the skipped rows over all reasons.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Build turns rows into a link graph. Each valid row gives one edge, so
// repeated pairs become parallel edges. A node's type is fixed by the first
// row that mentions it. Invalid rows are skipped and counted.
func Build(rows []model.Row, mapping model.ColumnMapping, opts ...Option) *model.LinkGraph {
	g, _ := BuildStats(rows, mapping, opts...)
	return g
}

// BuildStats is Build that also returns the row statistics.
func BuildStats(rows []model.Row, mapping model.ColumnMapping, opts ...Option) (*model.LinkGraph, Stats) {
	o := &options{
		classify: entity.Classify,
		minLen:   model.MinEndpointLength,
		maxLen:   model.MaxEndpointLength,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.New("graph")
	}

	g := model.NewLinkGraph()
	stats := Stats{Rows: len(rows), Skipped: make(map[model.SkipReason]int)}
	nodes := make(map[string]*model.LinkNode)

	node := func(id string, row int) *model.LinkNode {
		if n, ok := nodes[id]; ok {
			return n
		}
		n := &model.LinkNode{
			ID:    id,
			Label: id,
			Type:  o.classify(id),
			Properties: map[string]any{
				"value":    id,
				"firstRow": row,
			},
		}
		nodes[id] = n
		g.Nodes = append(g.Nodes, n)
		return n
	}

	for i, row := range rows {
		source := row.Text(mapping.Source)
		target := row.Text(mapping.Target)
		if reason := model.CheckEndpointsWithin(source, target, o.minLen, o.maxLen); reason != model.SkipNone {
			stats.Skipped[reason]++
			o.log.Debug("skipping row", "row", i, "reason", string(reason), "source", source, "target", target)
			continue
		}

		relationship := model.DefaultRelationship
		if mapping.Relationship != "" {
			if rel := row.Text(mapping.Relationship); rel != "" {
				relationship = rel
			}
		}
		weight := 1.0
		if mapping.Weight != "" {
			weight = parseWeight(row.Get(mapping.Weight))
		}

		src := node(source, i)
		dst := node(target, i)
		src.Degree++
		dst.Degree++
		g.Edges = append(g.Edges, &model.LinkEdge{
			ID:     EdgeID(i, source, target),
			Source: source,
			Target: target,
			Label:  relationship,
			Type:   relationship,
			Weight: weight,
			Properties: map[string]any{
				"weight":       weight,
				"source":       source,
				"target":       target,
				"relationship": relationship,
				"row":          i,
			},
		})
	}

	g.Recompute()
	stats.Edges = len(g.Edges)

	if skipped := stats.SkippedTotal(); skipped > 0 {
		o.log.Info("skipped invalid rows", "skipped", skipped, "rows", stats.Rows, "reasons", formatReasons(stats.Skipped))
	}
	o.log.Info("built graph", "nodes", g.Metadata.TotalNodes, "edges", g.Metadata.TotalEdges,
		"density", g.Metadata.Density)
	return g, stats
}

// EdgeID is edge_<row>_<source>_<target>. Rows make ids unique within one
// build even for parallel edges.
func EdgeID(row int, source, target string) string {
	return fmt.Sprintf("edge_%d_%s_%s", row, source, target)
}

// parseWeight reads a weight cell; unparseable or empty cells weigh 1.
func parseWeight(v model.Value) float64 {
	if v.IsEmpty() {
		return 1
	}
	f, ok := v.Float()
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	return f
}

func formatReasons(skipped map[model.SkipReason]int) string {
	parts := make([]string, 0, len(skipped))
	for reason, n := range skipped {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

// MissingColumnsError lists mapping columns absent from the table.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	if len(quoted) == 1 {
		return fmt.Sprintf("column %s not found in table", quoted[0])
	}
	return fmt.Sprintf("columns %s not found in table", strings.Join(quoted, ", "))
}

// BuildCustom builds a graph from a caller-chosen mapping after checking
// that every named column exists.
func BuildCustom(table *model.ParsedTable, mapping model.ColumnMapping, opts ...Option) (*model.LinkGraph, error) {
	if err := CheckMapping(table, mapping); err != nil {
		return nil, err
	}
	return Build(table.Rows, mapping, opts...), nil
}

// CheckMapping returns a *MissingColumnsError naming every mapped column
// the table lacks, plus an empty source or target role.
func CheckMapping(table *model.ParsedTable, mapping model.ColumnMapping) error {
	var missing []string
	for _, col := range []string{mapping.Source, mapping.Target, mapping.Relationship, mapping.Weight} {
		if col != "" && !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	if mapping.Source == "" {
		missing = append(missing, "<source>")
	}
	if mapping.Target == "" {
		missing = append(missing, "<target>")
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// BuildFromTable detects the column roles and builds the graph.
func BuildFromTable(table *model.ParsedTable, opts ...Option) (*model.LinkGraph, detect.Result) {
	res := detect.DetectColumns(table.Columns, table.Rows)
	return Build(table.Rows, res.Mapping(), opts...), res
}

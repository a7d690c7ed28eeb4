// Package output prints colored console summaries of analysis results.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/document"
	"github.com/ritzau/link-analyzer/pkg/intel"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/rif"
	"github.com/ritzau/link-analyzer/pkg/watcher"
)

// Rows of a list printed before it is cut short.
const listLimit = 10

var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

// PrintResult prints the summary matching the result's kind.
func PrintResult(w io.Writer, res *analysis.Result) {
	bold.Fprintln(w, "Link Analyzer - "+kindTitle(res.Kind))
	bold.Fprintln(w, strings.Repeat("=", 16+len(kindTitle(res.Kind))))
	fmt.Fprintf(w, "File: %s (%d bytes)\n", res.File.Name, res.File.Size)

	if res.Table != nil {
		fmt.Fprintf(w, "Parsed: %d rows, %d columns\n", res.Table.RowCount, len(res.Table.Columns))
	}
	if d := res.Detection; d != nil {
		cyan.Fprintf(w, "Columns: %s -> %s", d.Source, d.Target)
		if d.Relationship != "" {
			cyan.Fprintf(w, " [%s]", d.Relationship)
		}
		if d.Weight != "" {
			cyan.Fprintf(w, " weight=%s", d.Weight)
		}
		fmt.Fprintf(w, " (confidence %.0f%%)\n", d.Confidence*100)
	}
	if res.RIF != nil {
		printRIF(w, res.RIF)
	}
	if res.Intel != nil {
		printIntel(w, res.Intel)
	}
	if res.Document != nil {
		printDocument(w, res.Document)
	}
	if res.Graph != nil {
		fmt.Fprintln(w)
		PrintGraph(w, res.Graph)
	}
	if res.Stats != nil && res.Stats.SkippedTotal() > 0 {
		yellow.Fprintf(w, "Skipped: %d of %d rows\n", res.Stats.SkippedTotal(), res.Stats.Rows)
		reasons := make([]string, 0, len(res.Stats.Skipped))
		for reason := range res.Stats.Skipped {
			reasons = append(reasons, string(reason))
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(w, "  %s: %d\n", reason, res.Stats.Skipped[model.SkipReason(reason)])
		}
	}
	if ins := res.Insights; ins != nil {
		fmt.Fprintf(w, "Clusters: %d\n", len(ins.Components))
		if len(ins.CircularFlows) == 0 {
			green.Fprintln(w, "Circular flows: none")
		} else {
			red.Fprintf(w, "Circular flows: %d\n", len(ins.CircularFlows))
			for _, f := range limit(ins.CircularFlows) {
				fmt.Fprintf(w, "  %s (%d edges, %s)\n", strings.Join(f.Nodes, " <-> "), f.Edges, model.FormatBRL(f.Volume))
			}
		}
		if len(ins.TopNodes) > 0 {
			bold.Fprintln(w, "Top entities:")
			for _, n := range ins.TopNodes {
				fmt.Fprintf(w, "  %-30s %-10s degree %d, pagerank %.3f\n", n.Label, n.Type, n.Degree, n.PageRank)
			}
		}
	}
}

// PrintTable prints the columns and preview rows of a parsed table.
func PrintTable(w io.Writer, t *model.ParsedTable) {
	bold.Fprintln(w, "Link Analyzer - Parsed Table")
	bold.Fprintln(w, "============================")
	fmt.Fprintf(w, "File: %s (%d bytes)\n", t.File.Name, t.File.Size)
	green.Fprintf(w, "Rows: %d\n", t.RowCount)
	cyan.Fprintf(w, "Columns: %s\n", strings.Join(t.Columns, ", "))
	if len(t.Preview) == 0 {
		return
	}
	fmt.Fprintln(w)
	bold.Fprintln(w, "Preview:")
	for i, row := range t.Preview {
		cells := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			cells[j] = row.Text(c)
		}
		fmt.Fprintf(w, "  %d: %s\n", i+1, strings.Join(cells, " | "))
	}
}

// PrintGraph prints the graph metrics.
func PrintGraph(w io.Writer, g *model.LinkGraph) {
	m := g.Metadata
	if m.TotalEdges == 0 {
		yellow.Fprintln(w, "Graph: empty, no valid relationships found")
		return
	}
	green.Fprintf(w, "Graph: %d nodes, %d edges\n", m.TotalNodes, m.TotalEdges)
	fmt.Fprintf(w, "Density: %.4f  Average degree: %.2f\n", m.Density, m.AverageDegree)
	fmt.Fprintf(w, "Node types: %s\n", strings.Join(m.NodeTypes, ", "))
	fmt.Fprintf(w, "Edge types: %s\n", strings.Join(m.EdgeTypes, ", "))
}

func printRIF(w io.Writer, r *rif.Report) {
	fmt.Fprintf(w, "Entities: %d  Holders: %d  Total: %s\n", len(r.Entities), len(r.Holders), model.FormatBRL(r.TotalValue))
	for _, h := range limit(r.Holders) {
		fmt.Fprintf(w, "  %-30s in %s  out %s  (%d)\n", h.Name, model.FormatBRL(h.Inflow), model.FormatBRL(h.Outflow), h.Transactions)
	}
	printAlerts(w, len(r.Alerts), func(i int) string { return r.Alerts[i].Message })
}

func printIntel(w io.Writer, r *intel.Report) {
	fmt.Fprintf(w, "Subject: %s\n", r.Subject())
	fmt.Fprintf(w, "Sections: %d  Involved: %d\n", len(r.Sections), len(r.Involved))
	fmt.Fprintf(w, "Credits: %d (%s)  Debits: %d (%s)  Counterparties: %d\n",
		len(r.Credits), model.FormatBRL(r.TotalCredits), len(r.Debits), model.FormatBRL(r.TotalDebits), r.Counterparties)
	printAlerts(w, len(r.Alerts), func(i int) string { return r.Alerts[i].Message })
}

func printDocument(w io.Writer, d *document.Result) {
	if d.Fallback {
		yellow.Fprintf(w, "Text: not extracted (%s), placeholder used\n", d.Format)
		return
	}
	fmt.Fprintf(w, "Text: %d characters from %s via %s\n", len([]rune(d.Text)), d.Format, d.Strategy)
}

func printAlerts(w io.Writer, n int, message func(int) string) {
	if n == 0 {
		green.Fprintln(w, "Alerts: none")
		return
	}
	red.Fprintf(w, "Alerts: %d\n", n)
	for i := 0; i < n && i < listLimit; i++ {
		yellow.Fprintf(w, "  %s\n", message(i))
	}
	if n > listLimit {
		fmt.Fprintf(w, "  ... %d more\n", n-listLimit)
	}
}

// PrintInboxItem prints one line per handled inbox file.
func PrintInboxItem(w io.Writer, it watcher.Item) {
	switch it.State {
	case watcher.ItemDone:
		green.Fprintf(w, "✓ %s", it.Path)
		fmt.Fprintf(w, " [%s] %d nodes, %d edges", it.Kind, it.Nodes, it.Edges)
		if c := it.Changes; c != nil && !c.Full {
			fmt.Fprintf(w, " (+%d/-%d nodes, +%d/-%d edges)", c.AddedNodes, c.RemovedNodes, c.AddedEdges, c.RemovedEdges)
		}
		fmt.Fprintln(w)
	case watcher.ItemFailed:
		red.Fprintf(w, "✗ %s", it.Path)
		fmt.Fprintf(w, " %s\n", it.Error)
	default:
		yellow.Fprintf(w, "- %s %s\n", it.Path, it.State)
	}
}

func kindTitle(k analysis.Kind) string {
	switch k {
	case analysis.KindRIF:
		return "RIF Report"
	case analysis.KindIntel:
		return "Intelligence Report"
	case analysis.KindDocument:
		return "Document"
	}
	return "Link Graph"
}

func limit[T any](s []T) []T {
	if len(s) > listLimit {
		return s[:listLimit]
	}
	return s
}

package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/cycles"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/lens"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/watcher"
)

func TestPrintResult(t *testing.T) {
	color.NoColor = true

	res := &analysis.Result{
		Kind: analysis.KindTable,
		File: model.FileInfo{Name: "rede.csv", Size: 42},
		Graph: &model.LinkGraph{Metadata: model.GraphMetadata{
			TotalNodes: 3, TotalEdges: 3, Density: 0.5, AverageDegree: 2,
			NodeTypes: []string{"person"}, EdgeTypes: []string{"transfer"},
		}},
		Stats: &graph.Stats{Rows: 4, Edges: 3, Skipped: map[model.SkipReason]int{model.SkipSelfLoop: 1}},
		Insights: &analysis.Insights{
			CircularFlows: []cycles.Flow{{Nodes: []string{"A", "B"}, Edges: 2, Volume: 1500}},
		},
	}

	var buf bytes.Buffer
	PrintResult(&buf, res)
	out := buf.String()

	for _, want := range []string{
		"Link Analyzer - Link Graph",
		"File: rede.csv (42 bytes)",
		"Graph: 3 nodes, 3 edges",
		"Skipped: 1 of 4 rows",
		"Circular flows: 1",
		"A <-> B",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintEmptyGraph(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintGraph(&buf, model.NewLinkGraph())
	if !strings.Contains(buf.String(), "empty") {
		t.Errorf("PrintGraph() = %q", buf.String())
	}
}

func TestPrintInboxItem(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	PrintInboxItem(&buf, watcher.Item{Path: "in/a.csv", State: watcher.ItemDone, Kind: analysis.KindTable, Nodes: 2, Edges: 1})
	PrintInboxItem(&buf, watcher.Item{Path: "in/b.pdf", State: watcher.ItemFailed, Error: "boom"})
	PrintInboxItem(&buf, watcher.Item{Path: "in/c.csv", State: watcher.ItemDone, Kind: analysis.KindTable, Nodes: 3, Edges: 2,
		Changes: &lens.Summary{AddedNodes: 1, AddedEdges: 1}})
	out := buf.String()
	if !strings.Contains(out, "in/a.csv [table] 2 nodes, 1 edges") || !strings.Contains(out, "in/b.pdf boom") ||
		!strings.Contains(out, "(+1/-0 nodes, +1/-0 edges)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintTable(t *testing.T) {
	color.NoColor = true
	rows := []model.Row{
		{"origem": model.String("Ana"), "destino": model.String("Bruno")},
	}
	table := model.NewParsedTable([]string{"origem", "destino"}, rows, model.FileInfo{Name: "rede.csv", Size: 30})

	var buf bytes.Buffer
	PrintTable(&buf, table)
	out := buf.String()
	for _, want := range []string{"Rows: 1", "Columns: origem, destino", "1: Ana | Bruno"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

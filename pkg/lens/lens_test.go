package lens

import (
	"reflect"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/model"
)

func chain() *model.LinkGraph {
	g := model.NewLinkGraph()
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		g.Nodes = append(g.Nodes, &model.LinkNode{ID: id, Label: id, Type: model.EntityGeneric})
	}
	g.Edges = append(g.Edges,
		&model.LinkEdge{ID: "e1", Source: "A", Target: "B", Type: "pix", Weight: 10},
		&model.LinkEdge{ID: "e2", Source: "C", Target: "B", Type: "pix", Weight: 10},
		&model.LinkEdge{ID: "e3", Source: "C", Target: "D", Type: "ted", Weight: 1},
	)
	return g
}

func TestComputeDistances(t *testing.T) {
	got := ComputeDistances(chain(), []string{"A", "missing"}, 0)
	want := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("distances = %v, want %v", got, want)
	}

	got = ComputeDistances(chain(), []string{"A"}, 5)
	want = map[string]int{"A": 0, "B": 1, "C": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("distances with minWeight = %v, want %v", got, want)
	}

	if got := ComputeDistances(chain(), nil, 0); len(got) != 0 {
		t.Errorf("empty selection gave %v", got)
	}
}

func TestFocus(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantNodes []string
		wantEdges int
	}{
		{"one hop", Config{Selected: []string{"B"}, MaxDistance: 1}, []string{"A", "B", "C"}, 2},
		{"default distance", Config{Selected: []string{"A"}}, []string{"A", "B", "C"}, 2},
		{"two seeds", Config{Selected: []string{"A", "D"}, MaxDistance: 1}, []string{"A", "B", "C", "D"}, 3},
		{"isolated", Config{Selected: []string{"E"}, MaxDistance: 3}, []string{"E"}, 0},
		{"unknown", Config{Selected: []string{"Z"}}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Focus(chain(), tt.cfg)
			var ids []string
			for _, n := range g.Nodes {
				ids = append(ids, n.ID)
			}
			if !reflect.DeepEqual(ids, tt.wantNodes) {
				t.Errorf("nodes = %v, want %v", ids, tt.wantNodes)
			}
			if len(g.Edges) != tt.wantEdges {
				t.Errorf("edges = %d, want %d", len(g.Edges), tt.wantEdges)
			}
			if g.Metadata.TotalNodes != len(tt.wantNodes) {
				t.Errorf("metadata nodes = %d", g.Metadata.TotalNodes)
			}
		})
	}
}

func TestFocusAnnotatesDistance(t *testing.T) {
	src := chain()
	g := Focus(src, Config{Selected: []string{"B"}, MaxDistance: 1})
	for _, n := range g.Nodes {
		want := 1
		if n.ID == "B" {
			want = 0
		}
		if n.Properties["distance"] != want {
			t.Errorf("%s distance = %v, want %d", n.ID, n.Properties["distance"], want)
		}
	}
	b, _ := g.Node("B")
	if b.Degree != 2 {
		t.Errorf("B degree = %d, want 2", b.Degree)
	}
	if _, ok := src.Nodes[0].Properties["distance"]; ok {
		t.Error("Focus modified the source graph")
	}
}

func TestComputeDiff(t *testing.T) {
	before := chain()
	snap := CreateSnapshot(before)

	if d := ComputeDiff(snap, chain()); !d.Summary().Empty() {
		t.Errorf("unchanged graph diff = %+v", d.Summary())
	}

	after := chain()
	after.Nodes = after.Nodes[:4] // drop E
	after.Nodes[0] = &model.LinkNode{ID: "A", Label: "A", Type: model.EntityCPF}
	after.Nodes = append(after.Nodes, &model.LinkNode{ID: "F", Label: "F", Type: model.EntityGeneric})
	after.Edges = append(after.Edges[1:], &model.LinkEdge{ID: "e4", Source: "D", Target: "F", Type: "pix"})

	d := ComputeDiff(snap, after)
	want := Summary{AddedNodes: 1, RemovedNodes: 1, ModifiedNodes: 1, AddedEdges: 1, RemovedEdges: 1}
	if d.Summary() != want {
		t.Errorf("summary = %+v, want %+v", d.Summary(), want)
	}
	if d.RemovedNodes[0] != "E" || d.ModifiedNodes[0].ID != "A" || d.AddedNodes[0].ID != "F" {
		t.Errorf("unexpected diff %+v", d)
	}
	if d.RemovedEdges[0] != "A|B|pix" {
		t.Errorf("removed edge = %q", d.RemovedEdges[0])
	}
}

func TestComputeDiffWithoutSnapshot(t *testing.T) {
	d := ComputeDiff(nil, chain())
	if !d.Full || len(d.AddedNodes) != 5 || len(d.AddedEdges) != 3 {
		t.Errorf("full diff = %+v", d.Summary())
	}
	if d.Summary().Empty() {
		t.Error("full diff reported as empty")
	}
}

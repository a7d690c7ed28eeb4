package graph

import (
	"reflect"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/model"
)

func sampleGraph() *model.LinkGraph {
	rows := table([]string{"s", "t", "r"},
		[]string{"joao@x.com", "Maria Silva", "email"},
		[]string{"Maria Silva", "Rua das Flores, 123", "mora"},
		[]string{"José Souza", "Maria Silva", "amigo"},
	)
	return Build(rows, model.ColumnMapping{Source: "s", Target: "t", Relationship: "r"})
}

func TestFilter(t *testing.T) {
	g := sampleGraph()

	onlyPeople := Filter(g, []string{string(model.EntityGeneric)}, nil)
	if onlyPeople.Metadata.TotalNodes != 2 || onlyPeople.Metadata.TotalEdges != 1 {
		t.Errorf("got %d nodes %d edges, want 2 and 1", onlyPeople.Metadata.TotalNodes, onlyPeople.Metadata.TotalEdges)
	}
	maria, _ := onlyPeople.Node("Maria Silva")
	if maria.Degree != 1 {
		t.Errorf("filtered degree = %d, want 1", maria.Degree)
	}
	if orig, _ := g.Node("Maria Silva"); orig.Degree != 3 {
		t.Errorf("Filter mutated the source graph: degree %d", orig.Degree)
	}

	byEdge := Filter(g, nil, []string{"mora"})
	if byEdge.Metadata.TotalEdges != 1 || byEdge.Metadata.TotalNodes != 4 {
		t.Errorf("edge filter got %d nodes %d edges", byEdge.Metadata.TotalNodes, byEdge.Metadata.TotalEdges)
	}

	all := Filter(g, nil, nil)
	if !reflect.DeepEqual(all.Metadata, g.Metadata) {
		t.Errorf("unfiltered metadata differs: %+v vs %+v", all.Metadata, g.Metadata)
	}
}

func TestSearch(t *testing.T) {
	g := sampleGraph()
	if got := Search(g, "jose"); !reflect.DeepEqual(got, []string{"José Souza"}) {
		t.Errorf("Search(jose) = %v", got)
	}
	if got := Search(g, "SILVA"); !reflect.DeepEqual(got, []string{"Maria Silva"}) {
		t.Errorf("Search(SILVA) = %v", got)
	}
	if got := Search(g, " "); len(got) != 0 {
		t.Errorf("blank search matched %v", got)
	}
}

func TestIndex(t *testing.T) {
	g := sampleGraph()
	idx := NewIndex(g)
	if idx.Directed().Nodes().Len() != len(g.Nodes) {
		t.Errorf("directed view has %d nodes", idx.Directed().Nodes().Len())
	}
	id, ok := idx.ID("Maria Silva")
	if !ok || idx.Name(id) != "Maria Silva" {
		t.Errorf("ID/Name mismatch for Maria Silva")
	}
	if got := idx.Successors("Maria Silva"); !reflect.DeepEqual(got, []string{"Rua das Flores, 123"}) {
		t.Errorf("Successors = %v", got)
	}
}

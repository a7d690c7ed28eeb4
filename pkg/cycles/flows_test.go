package cycles

import (
	"reflect"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
)

func build(edges [][3]string) *model.LinkGraph {
	rows := make([]model.Row, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, model.Row{
			"s": model.String(e[0]),
			"t": model.String(e[1]),
			"v": model.ParseValue(e[2]),
		})
	}
	return graph.Build(rows, model.ColumnMapping{Source: "s", Target: "t", Weight: "v"})
}

func TestFindCircularFlows(t *testing.T) {
	g := build([][3]string{
		{"Ana", "Bruno", "10"},
		{"Bruno", "Carla", "20"},
		{"Carla", "Ana", "30"},
		{"Carla", "Davi", "5"},
		{"Eva", "Fabio", "100"},
		{"Fabio", "Eva", "200"},
		{"Fabio", "Eva", "1"},
	})

	flows := FindCircularFlows(g)
	if len(flows) != 2 {
		t.Fatalf("got %d flows, want 2: %+v", len(flows), flows)
	}

	if !reflect.DeepEqual(flows[0].Nodes, []string{"Eva", "Fabio"}) {
		t.Errorf("first flow = %v, want the larger volume Eva/Fabio", flows[0].Nodes)
	}
	if flows[0].Edges != 3 || flows[0].Volume != 301 {
		t.Errorf("first flow edges %d volume %v, want 3 and 301", flows[0].Edges, flows[0].Volume)
	}
	if !reflect.DeepEqual(flows[1].Nodes, []string{"Ana", "Bruno", "Carla"}) {
		t.Errorf("second flow = %v", flows[1].Nodes)
	}
	if flows[1].Volume != 60 {
		t.Errorf("second flow volume = %v, want 60 (Davi edge excluded)", flows[1].Volume)
	}
}

func TestFindCircularFlowsAcyclic(t *testing.T) {
	g := build([][3]string{{"Ana", "Bruno", "1"}, {"Bruno", "Carla", "1"}})
	if flows := FindCircularFlows(g); len(flows) != 0 {
		t.Errorf("acyclic graph gave flows %+v", flows)
	}
}

func TestTarjanDeterministic(t *testing.T) {
	g := build([][3]string{
		{"Ana", "Bruno", "1"}, {"Bruno", "Ana", "1"},
		{"Carla", "Davi", "1"}, {"Davi", "Carla", "1"},
	})
	idx := graph.NewIndex(g)
	first := NewTarjanSCC(idx.Directed()).FindSCCs()
	second := NewTarjanSCC(idx.Directed()).FindSCCs()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("SCCs differ between runs: %v vs %v", first, second)
	}
	if len(first) != 2 {
		t.Errorf("got %d SCCs, want 2", len(first))
	}
}

package neo4jsink

import (
	"context"
	"fmt"
	"testing"

	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
)

func TestParams(t *testing.T) {
	g := graph.Build([]model.Row{
		{"de": model.String("123.456.789-01"), "para": model.String("Empresa X"), "valor": model.Number(10)},
	}, model.ColumnMapping{Source: "de", Target: "para", Weight: "valor"})

	nodes := NodeParams(g)
	if len(nodes) != 2 {
		t.Fatalf("got %d node params, want 2", len(nodes))
	}
	if nodes[0]["id"] != "123.456.789-01" || nodes[0]["type"] != "cpf" || nodes[0]["degree"] != int64(1) {
		t.Errorf("node params = %v", nodes[0])
	}

	edges := EdgeParams(g)
	if len(edges) != 1 {
		t.Fatalf("got %d edge params, want 1", len(edges))
	}
	if edges[0]["source"] != "123.456.789-01" || edges[0]["target"] != "Empresa X" || edges[0]["weight"] != 10.0 {
		t.Errorf("edge params = %v", edges[0])
	}
}

func TestBatches(t *testing.T) {
	tests := []struct {
		rows int
		want []int
	}{
		{0, nil},
		{1, []int{1}},
		{BatchSize, []int{BatchSize}},
		{BatchSize + 1, []int{BatchSize, 1}},
		{2*BatchSize + 7, []int{BatchSize, BatchSize, 7}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.rows), func(t *testing.T) {
			rows := make([]map[string]any, tt.rows)
			got := batches(rows)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d batches, want %d", len(got), len(tt.want))
			}
			for i, b := range got {
				if len(b) != tt.want[i] {
					t.Errorf("batch %d has %d rows, want %d", i, len(b), tt.want[i])
				}
			}
		})
	}
}

func TestConnectUnconfigured(t *testing.T) {
	s, err := Connect(context.Background(), Config{})
	if s != nil || err != nil {
		t.Errorf("Connect(empty) = %v, %v; want nil, nil", s, err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Errorf("Close on nil sink: %v", err)
	}
}

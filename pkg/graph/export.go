package graph

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ritzau/link-analyzer/pkg/model"
)

// Export writes the graph verbatim as indented JSON.
func Export(w io.Writer, g *model.LinkGraph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("failed to encode graph: %w", err)
	}
	return nil
}

// Import reads a graph written by Export. Nil collections are replaced by
// empty ones so re-exported graphs never carry nulls.
func Import(r io.Reader) (*model.LinkGraph, error) {
	g := model.NewLinkGraph()
	if err := json.NewDecoder(r).Decode(g); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	if g.Nodes == nil {
		g.Nodes = make([]*model.LinkNode, 0)
	}
	if g.Edges == nil {
		g.Edges = make([]*model.LinkEdge, 0)
	}
	if g.Metadata.NodeTypes == nil {
		g.Metadata.NodeTypes = make([]string, 0)
	}
	if g.Metadata.EdgeTypes == nil {
		g.Metadata.EdgeTypes = make([]string, 0)
	}
	return g, nil
}

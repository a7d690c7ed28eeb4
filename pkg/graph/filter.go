package graph

import (
	"strings"

	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/textutil"
)

// Filter returns a copy of g restricted to the given node and edge types.
// An empty type list keeps everything of that kind. Edges are dropped when
// either endpoint is filtered out; degrees and metadata are recomputed for
// the visible subgraph.
func Filter(g *model.LinkGraph, nodeTypes, edgeTypes []string) *model.LinkGraph {
	keepNode := typeSet(nodeTypes)
	keepEdge := typeSet(edgeTypes)

	out := model.NewLinkGraph()
	index := make(map[string]*model.LinkNode)
	for _, n := range g.Nodes {
		if keepNode != nil && !keepNode[string(n.Type)] {
			continue
		}
		cp := *n
		cp.Degree = 0
		cp.Properties = copyProps(n.Properties)
		index[n.ID] = &cp
		out.Nodes = append(out.Nodes, &cp)
	}
	for _, e := range g.Edges {
		if keepEdge != nil && !keepEdge[e.Type] {
			continue
		}
		src, ok1 := index[e.Source]
		dst, ok2 := index[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		src.Degree++
		dst.Degree++
		cp := *e
		cp.Properties = copyProps(e.Properties)
		out.Edges = append(out.Edges, &cp)
	}
	out.Recompute()
	return out
}

func typeSet(types []string) map[string]bool {
	if len(types) == 0 {
		return nil
	}
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

func copyProps(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Search returns the ids of nodes whose label contains term, ignoring case
// and accents, in node order.
func Search(g *model.LinkGraph, term string) []string {
	needle := textutil.Fold(term)
	matches := make([]string, 0)
	if needle == "" {
		return matches
	}
	for _, n := range g.Nodes {
		if strings.Contains(textutil.Fold(n.Label), needle) {
			matches = append(matches, n.ID)
		}
	}
	return matches
}

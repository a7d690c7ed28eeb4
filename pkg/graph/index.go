package graph

import (
	"sort"

	"github.com/ritzau/link-analyzer/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// Index maps a LinkGraph onto gonum graphs for analytics. Node ids are
// assigned in node order, so the mapping is deterministic.
type Index struct {
	directed   *simple.DirectedGraph
	undirected *simple.UndirectedGraph
	ids        map[string]int64
	names      []string
}

// NewIndex builds directed and undirected gonum views of g. Parallel edges
// collapse into one gonum edge.
func NewIndex(g *model.LinkGraph) *Index {
	idx := &Index{
		directed:   simple.NewDirectedGraph(),
		undirected: simple.NewUndirectedGraph(),
		ids:        make(map[string]int64, len(g.Nodes)),
		names:      make([]string, 0, len(g.Nodes)),
	}
	for _, n := range g.Nodes {
		idx.add(n.ID)
	}
	for _, e := range g.Edges {
		from, to := idx.add(e.Source), idx.add(e.Target)
		if from == to {
			continue
		}
		if !idx.directed.HasEdgeFromTo(from, to) {
			idx.directed.SetEdge(idx.directed.NewEdge(simple.Node(from), simple.Node(to)))
		}
		if !idx.undirected.HasEdgeBetween(from, to) {
			idx.undirected.SetEdge(idx.undirected.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	return idx
}

func (idx *Index) add(name string) int64 {
	if id, ok := idx.ids[name]; ok {
		return id
	}
	id := int64(len(idx.names))
	idx.ids[name] = id
	idx.names = append(idx.names, name)
	idx.directed.AddNode(simple.Node(id))
	idx.undirected.AddNode(simple.Node(id))
	return id
}

// Directed returns the directed view
func (idx *Index) Directed() *simple.DirectedGraph {
	return idx.directed
}

// Undirected returns the undirected view
func (idx *Index) Undirected() *simple.UndirectedGraph {
	return idx.undirected
}

// ID returns the gonum id of a node
func (idx *Index) ID(name string) (int64, bool) {
	id, ok := idx.ids[name]
	return id, ok
}

// Name returns the node id for a gonum id
func (idx *Index) Name(id int64) string {
	if id < 0 || int(id) >= len(idx.names) {
		return ""
	}
	return idx.names[id]
}

// Successors returns the sorted nodes the given node links to
func (idx *Index) Successors(name string) []string {
	id, ok := idx.ids[name]
	if !ok {
		return nil
	}
	var out []string
	iter := idx.directed.From(id)
	for iter.Next() {
		out = append(out, idx.Name(iter.Node().ID()))
	}
	sort.Strings(out)
	return out
}

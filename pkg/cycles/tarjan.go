package cycles

import (
	"slices"

	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds strongly connected components with Tarjan's algorithm.
// Only components with more than one node are kept: in a graph without
// self loops those are exactly the nodes that lie on a cycle.
type TarjanSCC struct {
	graph   graph.Directed
	index   int
	stack   []int64
	onStack map[int64]bool
	indices map[int64]int
	lowLink map[int64]int
	sccs    [][]int64
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:   g,
		onStack: make(map[int64]bool),
		indices: make(map[int64]int),
		lowLink: make(map[int64]int),
		sccs:    make([][]int64, 0),
	}
}

// FindSCCs returns the cyclic components. Nodes are visited in id order so
// the result is deterministic for a given graph.
func (t *TarjanSCC) FindSCCs() [][]int64 {
	ids := make([]int64, 0)
	nodes := t.graph.Nodes()
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	slices.Sort(ids)

	for _, id := range ids {
		if _, visited := t.indices[id]; !visited {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

func (t *TarjanSCC) strongConnect(nodeID int64) {
	t.indices[nodeID] = t.index
	t.lowLink[nodeID] = t.index
	t.index++

	t.stack = append(t.stack, nodeID)
	t.onStack[nodeID] = true

	successors := make([]int64, 0)
	iter := t.graph.From(nodeID)
	for iter.Next() {
		successors = append(successors, iter.Node().ID())
	}
	slices.Sort(successors)

	for _, next := range successors {
		if _, visited := t.indices[next]; !visited {
			t.strongConnect(next)
			t.lowLink[nodeID] = min(t.lowLink[nodeID], t.lowLink[next])
		} else if t.onStack[next] {
			t.lowLink[nodeID] = min(t.lowLink[nodeID], t.indices[next])
		}
	}

	// Root of a component: pop it off the stack
	if t.lowLink[nodeID] != t.indices[nodeID] {
		return
	}
	scc := make([]int64, 0)
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.onStack[w] = false
		scc = append(scc, w)
		if w == nodeID {
			break
		}
	}
	if len(scc) > 1 {
		slices.Sort(scc)
		t.sccs = append(t.sccs, scc)
	}
}

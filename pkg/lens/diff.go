package lens

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/ritzau/link-analyzer/pkg/model"
)

// Diff is the difference between two analyses of the same input
type Diff struct {
	AddedNodes    []*model.LinkNode `json:"addedNodes"`
	RemovedNodes  []string          `json:"removedNodes"`  // node IDs
	ModifiedNodes []*model.LinkNode `json:"modifiedNodes"` // label or type changed
	AddedEdges    []*model.LinkEdge `json:"addedEdges"`
	RemovedEdges  []string          `json:"removedEdges"` // source|target|type
	Full          bool              `json:"full"`         // no earlier snapshot
}

// Summary counts a Diff
type Summary struct {
	AddedNodes    int  `json:"addedNodes"`
	RemovedNodes  int  `json:"removedNodes"`
	ModifiedNodes int  `json:"modifiedNodes"`
	AddedEdges    int  `json:"addedEdges"`
	RemovedEdges  int  `json:"removedEdges"`
	Full          bool `json:"full,omitempty"`
}

// Summary counts d
func (d *Diff) Summary() Summary {
	return Summary{
		AddedNodes:    len(d.AddedNodes),
		RemovedNodes:  len(d.RemovedNodes),
		ModifiedNodes: len(d.ModifiedNodes),
		AddedEdges:    len(d.AddedEdges),
		RemovedEdges:  len(d.RemovedEdges),
		Full:          d.Full,
	}
}

// Empty reports whether nothing changed
func (s Summary) Empty() bool {
	return !s.Full && s.AddedNodes+s.RemovedNodes+s.ModifiedNodes+s.AddedEdges+s.RemovedEdges == 0
}

// Snapshot is the structural state of a graph kept for later diffing.
// Parallel edges with the same type collapse into one key.
type Snapshot struct {
	Hash  string
	Nodes map[string]*model.LinkNode
	Edges map[string]*model.LinkEdge
}

// CreateSnapshot indexes g. The hash covers node IDs, labels and types and
// edge keys, so two snapshots with the same hash have an empty diff.
func CreateSnapshot(g *model.LinkGraph) *Snapshot {
	s := &Snapshot{
		Nodes: make(map[string]*model.LinkNode, len(g.Nodes)),
		Edges: make(map[string]*model.LinkEdge, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		s.Nodes[n.ID] = n
	}
	for _, e := range g.Edges {
		s.Edges[edgeKey(e)] = e
	}

	h := sha256.New()
	for _, id := range sortedKeys(s.Nodes) {
		n := s.Nodes[id]
		fmt.Fprintf(h, "n\x00%s\x00%s\x00%s\n", n.ID, n.Label, n.Type)
	}
	for _, key := range sortedKeys(s.Edges) {
		fmt.Fprintf(h, "e\x00%s\n", key)
	}
	s.Hash = fmt.Sprintf("%x", h.Sum(nil))
	return s
}

// ComputeDiff compares g with an earlier snapshot. A nil snapshot yields a
// full diff listing everything in g as added. Results are sorted by ID.
func ComputeDiff(old *Snapshot, g *model.LinkGraph) *Diff {
	cur := CreateSnapshot(g)
	if old == nil {
		return &Diff{
			AddedNodes: sortedValues(cur.Nodes),
			AddedEdges: sortedValues(cur.Edges),
			Full:       true,
		}
	}

	d := &Diff{
		AddedNodes:    make([]*model.LinkNode, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]*model.LinkNode, 0),
		AddedEdges:    make([]*model.LinkEdge, 0),
		RemovedEdges:  make([]string, 0),
	}
	if old.Hash == cur.Hash {
		return d
	}

	for _, id := range sortedKeys(cur.Nodes) {
		n := cur.Nodes[id]
		prev, ok := old.Nodes[id]
		switch {
		case !ok:
			d.AddedNodes = append(d.AddedNodes, n)
		case prev.Label != n.Label || prev.Type != n.Type:
			d.ModifiedNodes = append(d.ModifiedNodes, n)
		}
	}
	for _, id := range sortedKeys(old.Nodes) {
		if _, ok := cur.Nodes[id]; !ok {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}
	for _, key := range sortedKeys(cur.Edges) {
		if _, ok := old.Edges[key]; !ok {
			d.AddedEdges = append(d.AddedEdges, cur.Edges[key])
		}
	}
	for _, key := range sortedKeys(old.Edges) {
		if _, ok := cur.Edges[key]; !ok {
			d.RemovedEdges = append(d.RemovedEdges, key)
		}
	}
	return d
}

func edgeKey(e *model.LinkEdge) string {
	return e.Source + "|" + e.Target + "|" + e.Type
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedValues[V any](m map[string]V) []V {
	out := make([]V, 0, len(m))
	for _, k := range sortedKeys(m) {
		out = append(out, m[k])
	}
	return out
}

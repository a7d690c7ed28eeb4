// Package cycles finds circular flows: groups of entities where money or
// contact leaves a node and eventually comes back to it.
package cycles

import (
	"sort"

	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// Flow is one strongly connected group of entities
type Flow struct {
	Nodes  []string `json:"nodes"`  // sorted entity ids
	Edges  int      `json:"edges"`  // link graph edges inside the group
	Volume float64  `json:"volume"` // summed weight of those edges
}

// FindCircularFlows returns every cyclic group in g, largest volume first.
func FindCircularFlows(g *model.LinkGraph) []Flow {
	idx := graph.NewIndex(g)
	sccs := NewTarjanSCC(idx.Directed()).FindSCCs()

	group := make(map[string]int)
	flows := make([]Flow, 0, len(sccs))
	for i, scc := range sccs {
		names := make([]string, 0, len(scc))
		for _, id := range scc {
			name := idx.Name(id)
			names = append(names, name)
			group[name] = i
		}
		sort.Strings(names)
		flows = append(flows, Flow{Nodes: names})
	}

	for _, e := range g.Edges {
		gs, ok1 := group[e.Source]
		gt, ok2 := group[e.Target]
		if ok1 && ok2 && gs == gt {
			flows[gs].Edges++
			flows[gs].Volume += e.Weight
		}
	}

	sort.SliceStable(flows, func(i, j int) bool {
		return flows[i].Volume > flows[j].Volume
	})
	return flows
}

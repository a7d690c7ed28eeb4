package analysis

import (
	"sort"

	"github.com/ritzau/link-analyzer/pkg/cycles"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/model"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/topo"
)

const (
	// TopNodeCount is how many nodes are ranked in Insights.
	TopNodeCount = 10

	pageRankDamping   = 0.85
	pageRankTolerance = 1e-6
)

// Component is a connected group of entities: an investigation cluster.
type Component struct {
	Nodes []string `json:"nodes"`
	Size  int      `json:"size"`
}

// RankedNode is a node with its influence scores
type RankedNode struct {
	ID         string           `json:"id"`
	Label      string           `json:"label"`
	Type       model.EntityType `json:"type"`
	Degree     int              `json:"degree"`
	Centrality float64          `json:"centrality"`
	PageRank   float64          `json:"pageRank"`
}

// Insights are graph analytics beyond the builder's metrics.
type Insights struct {
	Components    []Component   `json:"components"`
	CircularFlows []cycles.Flow `json:"circularFlows"`
	TopNodes      []RankedNode  `json:"topNodes"`
}

// Analyze computes clusters, circular flows and node rankings.
func Analyze(g *model.LinkGraph) *Insights {
	idx := graph.NewIndex(g)

	comps := topo.ConnectedComponents(idx.Undirected())
	components := make([]Component, 0, len(comps))
	for _, c := range comps {
		names := make([]string, 0, len(c))
		for _, n := range c {
			names = append(names, idx.Name(n.ID()))
		}
		sort.Strings(names)
		components = append(components, Component{Nodes: names, Size: len(names)})
	}
	sort.SliceStable(components, func(i, j int) bool {
		if components[i].Size != components[j].Size {
			return components[i].Size > components[j].Size
		}
		return components[i].Nodes[0] < components[j].Nodes[0]
	})

	var ranks map[int64]float64
	if len(g.Nodes) > 0 {
		ranks = network.PageRank(idx.Directed(), pageRankDamping, pageRankTolerance)
	}
	ranked := make([]RankedNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		id, _ := idx.ID(n.ID)
		ranked = append(ranked, RankedNode{
			ID:         n.ID,
			Label:      n.Label,
			Type:       n.Type,
			Degree:     n.Degree,
			Centrality: n.Centrality,
			PageRank:   ranks[id],
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Degree != ranked[j].Degree {
			return ranked[i].Degree > ranked[j].Degree
		}
		return ranked[i].PageRank > ranked[j].PageRank
	})
	if len(ranked) > TopNodeCount {
		ranked = ranked[:TopNodeCount]
	}

	return &Insights{
		Components:    components,
		CircularFlows: cycles.FindCircularFlows(g),
		TopNodes:      ranked,
	}
}

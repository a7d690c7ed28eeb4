// Package lens narrows a link graph to the neighborhood of selected
// entities and tracks how a graph changes between analyses.
package lens

import (
	"github.com/ritzau/link-analyzer/pkg/model"
)

// DefaultMaxDistance applies when a Config leaves MaxDistance unset.
const DefaultMaxDistance = 2

// Config describes a focused view
type Config struct {
	Selected    []string `json:"selected"`
	MaxDistance int      `json:"maxDistance"`
	MinWeight   float64  `json:"minWeight,omitempty"` // edges lighter than this are not followed
}

// Focus returns the part of g within cfg.MaxDistance hops of any selected
// node, following edges in both directions. Every kept node carries its
// hop count in Properties["distance"]. Unknown selections are ignored, so
// a selection matching nothing yields an empty graph.
func Focus(g *model.LinkGraph, cfg Config) *model.LinkGraph {
	maxDist := cfg.MaxDistance
	if maxDist <= 0 {
		maxDist = DefaultMaxDistance
	}
	dist := ComputeDistances(g, cfg.Selected, cfg.MinWeight)

	out := model.NewLinkGraph()
	index := make(map[string]*model.LinkNode)
	for _, n := range g.Nodes {
		d, ok := dist[n.ID]
		if !ok || d > maxDist {
			continue
		}
		cp := *n
		cp.Degree = 0
		cp.Properties = make(map[string]any, len(n.Properties)+1)
		for k, v := range n.Properties {
			cp.Properties[k] = v
		}
		cp.Properties["distance"] = d
		index[n.ID] = &cp
		out.Nodes = append(out.Nodes, &cp)
	}
	for _, e := range g.Edges {
		if e.Weight < cfg.MinWeight {
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
		out.Edges = append(out.Edges, &cp)
	}
	out.Recompute()
	return out
}

package lens

import (
	"github.com/ritzau/link-analyzer/pkg/model"
)

type queued struct {
	id       string
	distance int
}

// ComputeDistances returns the hop count from the nearest selected node to
// every node reachable from the selection. Edges are treated as undirected
// and those with a weight below minWeight are ignored. Nodes that cannot be
// reached are absent from the result.
func ComputeDistances(g *model.LinkGraph, selected []string, minWeight float64) map[string]int {
	distances := make(map[string]int)
	if len(selected) == 0 {
		return distances
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	adjacency := buildAdjacencyList(g, minWeight)

	queue := make([]queued, 0, len(selected))
	for _, id := range selected {
		if !known[id] {
			continue
		}
		if _, seen := distances[id]; seen {
			continue
		}
		distances[id] = 0
		queue = append(queue, queued{id: id})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, neighbor := range adjacency[current.id] {
			if _, seen := distances[neighbor]; seen {
				continue
			}
			distances[neighbor] = current.distance + 1
			queue = append(queue, queued{id: neighbor, distance: current.distance + 1})
		}
	}
	return distances
}

// buildAdjacencyList creates an undirected adjacency list from graph edges
func buildAdjacencyList(g *model.LinkGraph, minWeight float64) map[string][]string {
	adjacency := make(map[string][]string)
	for _, e := range g.Edges {
		if e.Weight < minWeight {
			continue
		}
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}
	return adjacency
}

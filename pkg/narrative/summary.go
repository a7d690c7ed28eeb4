// Package narrative turns a link graph into an investigative summary text,
// written by a language model when one is configured and by local rules
// otherwise.
package narrative

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/ritzau/link-analyzer/pkg/model"
)

const (
	TopNodeCount    = 10
	SampleEdgeCount = 20
)

// NodeSummary is a node as handed to the narrator
type NodeSummary struct {
	ID     string           `json:"id"`
	Label  string           `json:"label"`
	Type   model.EntityType `json:"type"`
	Degree int              `json:"degree"`
}

// EdgeSummary is an edge as handed to the narrator
type EdgeSummary struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Type   string  `json:"type"`
	Weight float64 `json:"weight"`
}

// Summary is the slice of a graph the narrative is written from.
type Summary struct {
	TotalNodes    int           `json:"totalNodes"`
	TotalEdges    int           `json:"totalEdges"`
	Density       float64       `json:"density"`
	AverageDegree float64       `json:"averageDegree"`
	NodeTypes     []string      `json:"nodeTypes"`
	EdgeTypes     []string      `json:"edgeTypes"`
	TopNodes      []NodeSummary `json:"topNodes"`
	SampleEdges   []EdgeSummary `json:"sampleEdges"`
}

// Summarize takes the metadata, the top nodes by degree (ties keep graph
// order) and the first edges of g.
func Summarize(g *model.LinkGraph) Summary {
	s := Summary{
		TotalNodes:    g.Metadata.TotalNodes,
		TotalEdges:    g.Metadata.TotalEdges,
		Density:       g.Metadata.Density,
		AverageDegree: g.Metadata.AverageDegree,
		NodeTypes:     append(make([]string, 0, len(g.Metadata.NodeTypes)), g.Metadata.NodeTypes...),
		EdgeTypes:     append(make([]string, 0, len(g.Metadata.EdgeTypes)), g.Metadata.EdgeTypes...),
		TopNodes:      make([]NodeSummary, 0, TopNodeCount),
		SampleEdges:   make([]EdgeSummary, 0, SampleEdgeCount),
	}

	nodes := append([]*model.LinkNode(nil), g.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Degree > nodes[j].Degree })
	for _, n := range nodes[:min(TopNodeCount, len(nodes))] {
		s.TopNodes = append(s.TopNodes, NodeSummary{ID: n.ID, Label: n.Label, Type: n.Type, Degree: n.Degree})
	}
	for _, e := range g.Edges[:min(SampleEdgeCount, len(g.Edges))] {
		s.SampleEdges = append(s.SampleEdges, EdgeSummary{Source: e.Source, Target: e.Target, Type: e.Type, Weight: e.Weight})
	}
	return s
}

// Key identifies the summary's content, for caching narratives.
func (s Summary) Key() string {
	raw, _ := json.Marshal(s)
	sum := sha256.Sum256(raw)
	return "narrative:" + hex.EncodeToString(sum[:16])
}

package model

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// EntityType is the inferred domain type of a node
type EntityType string

const (
	EntityCPF     EntityType = "cpf"      // 11-digit individual tax ID
	EntityCNPJ    EntityType = "cnpj"     // 14-digit company tax ID
	EntityPhone   EntityType = "telefone" // 10-11 digit phone number
	EntityEmail   EntityType = "email"
	EntityPlate   EntityType = "placa"    // vehicle license plate
	EntityAddress EntityType = "endereco" // street address
	EntityGeneric EntityType = "entidade"
)

// DefaultRelationship labels edges whose relationship column is absent or empty.
const DefaultRelationship = "relacionamento"

// LinkGraph is the entity-relationship graph handed to renderers.
type LinkGraph struct {
	Nodes    []*LinkNode   `json:"nodes"`
	Edges    []*LinkEdge   `json:"edges"`
	Metadata GraphMetadata `json:"metadata"`
}

// NewLinkGraph creates an empty graph with empty (non-nil) collections.
func NewLinkGraph() *LinkGraph {
	return &LinkGraph{
		Nodes: make([]*LinkNode, 0),
		Edges: make([]*LinkEdge, 0),
		Metadata: GraphMetadata{
			NodeTypes: make([]string, 0),
			EdgeTypes: make([]string, 0),
		},
	}
}

// LinkNode is one entity. ID is the raw entity value.
type LinkNode struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Type       EntityType     `json:"type"`
	Properties map[string]any `json:"properties"`
	Degree     int            `json:"degree"`
	Centrality float64        `json:"centrality"`
}

// LinkEdge is one directed relationship derived from one input row.
type LinkEdge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Label      string         `json:"label"`
	Type       string         `json:"type"`
	Weight     float64        `json:"weight"`
	Properties map[string]any `json:"properties"`
}

// GraphMetadata holds aggregate metrics of a LinkGraph.
type GraphMetadata struct {
	TotalNodes    int      `json:"totalNodes"`
	TotalEdges    int      `json:"totalEdges"`
	NodeTypes     []string `json:"nodeTypes"`
	EdgeTypes     []string `json:"edgeTypes"`
	Density       float64  `json:"density"`
	AverageDegree float64  `json:"averageDegree"`
}

// Node returns the node with the given id.
func (g *LinkGraph) Node(id string) (*LinkNode, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Recompute refreshes the metadata and every node's centrality from the
// current node and edge lists. Degrees are taken as stored on the nodes.
func (g *LinkGraph) Recompute() {
	nodeTypes := make(map[string]bool)
	edgeTypes := make(map[string]bool)
	degreeSum := 0
	for _, n := range g.Nodes {
		nodeTypes[string(n.Type)] = true
		degreeSum += n.Degree
	}
	for _, e := range g.Edges {
		edgeTypes[e.Type] = true
	}

	total := len(g.Nodes)
	g.Metadata = GraphMetadata{
		TotalNodes:    total,
		TotalEdges:    len(g.Edges),
		NodeTypes:     sortedKeys(nodeTypes),
		EdgeTypes:     sortedKeys(edgeTypes),
		Density:       Density(len(g.Edges), total),
		AverageDegree: 0,
	}
	if total > 0 {
		g.Metadata.AverageDegree = float64(degreeSum) / float64(total)
	}
	for _, n := range g.Nodes {
		n.Centrality = Centrality(n.Degree, total)
	}
}

// Density is edges / (nodes * (nodes-1)), the directed-graph convention
// without self loops. Graphs with fewer than two nodes have density 0.
func Density(edges, nodes int) float64 {
	if nodes <= 1 {
		return 0
	}
	return float64(edges) / float64(nodes*(nodes-1))
}

// Centrality normalizes a degree by the largest possible degree (nodes-1).
func Centrality(degree, nodes int) float64 {
	if nodes <= 1 {
		return 0
	}
	return float64(degree) / float64(nodes-1)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SkipReason explains why a row did not produce an edge. The empty reason
// means the row is valid.
type SkipReason string

const (
	SkipNone        SkipReason = ""
	SkipEmpty       SkipReason = "empty endpoint"
	SkipSelfLoop    SkipReason = "source equals target"
	SkipTooShort    SkipReason = "endpoint too short"
	SkipTooLong     SkipReason = "endpoint too long"
	SkipPlaceholder SkipReason = "placeholder endpoint"
)

const (
	MinEndpointLength = 2
	MaxEndpointLength = 100
)

var placeholders = map[string]bool{
	"-":         true,
	"n/a":       true,
	"null":      true,
	"undefined": true,
	"nan":       true,
	"none":      true,
}

// IsPlaceholder reports whether a value is a blank or a known "no value" marker.
func IsPlaceholder(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || placeholders[strings.ToLower(v)]
}

// CheckEndpoints validates a source/target pair. Both values are expected
// to be trimmed already.
func CheckEndpoints(source, target string) SkipReason {
	return CheckEndpointsWithin(source, target, MinEndpointLength, MaxEndpointLength)
}

// CheckEndpointsWithin is CheckEndpoints with explicit rune length bounds.
func CheckEndpointsWithin(source, target string, minLen, maxLen int) SkipReason {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
		return SkipEmpty
	}
	if IsPlaceholder(source) || IsPlaceholder(target) {
		return SkipPlaceholder
	}
	if source == target {
		return SkipSelfLoop
	}
	for _, v := range []string{source, target} {
		n := utf8.RuneCountInString(v)
		if n < minLen {
			return SkipTooShort
		}
		if n > maxLen {
			return SkipTooLong
		}
	}
	return SkipNone
}

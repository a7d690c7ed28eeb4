// Package neo4jsink exports link graphs to a Neo4j database so analysts
// can keep querying them with Cypher.
package neo4jsink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
)

// BatchSize bounds the rows sent per UNWIND statement.
const BatchSize = 500

type Config struct {
	URI      string
	User     string
	Password string
	Database string
	Timeout  time.Duration
}

// Sink writes graphs to Neo4j
type Sink struct {
	driver   neo4j.DriverWithContext
	database string
	log      *slog.Logger
}

// Stats counts what an export wrote
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Connect opens a driver and verifies connectivity. It returns nil, nil
// when no URI is configured.
func Connect(ctx context.Context, cfg Config) (*Sink, error) {
	if cfg.URI == "" {
		return nil, nil
	}
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Sink{driver: driver, database: cfg.Database, log: logging.New("neo4j")}, nil
}

func (s *Sink) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

const (
	constraintQuery = `CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`

	nodesQuery = `
UNWIND $nodes AS n
MERGE (e:Entity {id: n.id})
SET e.label = n.label, e.type = n.type, e.synced_at = $synced_at
WITH e, n
MERGE (a:Analysis {id: $analysis})
MERGE (a)-[m:MENTIONS]->(e)
SET m.degree = n.degree, m.centrality = n.centrality
`

	edgesQuery = `
UNWIND $edges AS r
MATCH (s:Entity {id: r.source}), (t:Entity {id: r.target})
MERGE (s)-[l:LINK {id: r.id, analysis: $analysis}]->(t)
SET l.type = r.type, l.weight = r.weight, l.synced_at = $synced_at
`
)

// Export merges the graph's entities and links under analysisID. Entities
// are shared across analyses; links and per-analysis metrics are not.
func (s *Sink) Export(ctx context.Context, analysisID string, g *model.LinkGraph) (Stats, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	if res, err := session.Run(ctx, constraintQuery, nil); err != nil {
		s.log.Warn("neo4j schema init failed (continuing)", "error", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	now := time.Now().UTC()
	nodes := NodeParams(g)
	edges := EdgeParams(g)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, batch := range batches(nodes) {
			if err := run(ctx, tx, nodesQuery, map[string]any{"nodes": batch, "analysis": analysisID, "synced_at": now}); err != nil {
				return nil, err
			}
		}
		for _, batch := range batches(edges) {
			if err := run(ctx, tx, edgesQuery, map[string]any{"edges": batch, "analysis": analysisID, "synced_at": now}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("neo4j: export %s: %w", analysisID, err)
	}

	s.log.Info("exported graph", "analysis", analysisID, "nodes", len(nodes), "edges", len(edges))
	return Stats{Nodes: len(nodes), Edges: len(edges)}, nil
}

func run(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) error {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

// NodeParams converts nodes to Cypher parameter maps.
func NodeParams(g *model.LinkGraph) []map[string]any {
	out := make([]map[string]any, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		out = append(out, map[string]any{
			"id":         n.ID,
			"label":      n.Label,
			"type":       string(n.Type),
			"degree":     int64(n.Degree),
			"centrality": n.Centrality,
		})
	}
	return out
}

// EdgeParams converts edges to Cypher parameter maps.
func EdgeParams(g *model.LinkGraph) []map[string]any {
	out := make([]map[string]any, 0, len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, map[string]any{
			"id":     e.ID,
			"source": e.Source,
			"target": e.Target,
			"type":   e.Type,
			"weight": e.Weight,
		})
	}
	return out
}

func batches(rows []map[string]any) [][]map[string]any {
	var out [][]map[string]any
	for start := 0; start < len(rows); start += BatchSize {
		out = append(out, rows[start:min(start+BatchSize, len(rows))])
	}
	return out
}

package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/kvstore"
	"github.com/ritzau/link-analyzer/pkg/lens"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

// exportInfo reports where a built graph was persisted.
type exportInfo struct {
	AnalysisID string `json:"analysisId"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Error      string `json:"error,omitempty"`
}

// analysisResponse is an analysis result plus the view options applied to it.
type analysisResponse struct {
	*analysis.Result
	Matches []string    `json:"matches,omitempty"`
	Export  *exportInfo `json:"export,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if _, err := s.store.Get(ctx, "health"); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		s.logger.Warn("store health check failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"jobs":   len(s.jobs.List()),
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	f, err := readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	table, err := tabular.ParseFile(r.Context(), f)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	f, err := readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	s.analyze(w, r, analysis.Request{File: f, Kind: analysis.KindTable})
}

func (s *Server) handleGraphCustom(w http.ResponseWriter, r *http.Request) {
	f, err := readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	mapping := model.ColumnMapping{
		Source:       r.FormValue("sourceColumn"),
		Target:       r.FormValue("targetColumn"),
		Relationship: r.FormValue("relationshipColumn"),
		Weight:       r.FormValue("weightColumn"),
	}
	if err := s.validate.Struct(mapping); err != nil {
		writeError(w, r, http.StatusBadRequest, validationMessage(err))
		return
	}
	s.analyze(w, r, analysis.Request{File: f, Kind: analysis.KindTable, Mapping: &mapping})
}

// handleKind serves the endpoints that force one analysis kind.
func (s *Server) handleKind(kind analysis.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := readUpload(w, r)
		if err != nil {
			fail(w, r, err)
			return
		}
		s.analyze(w, r, analysis.Request{File: f, Kind: kind})
	}
}

// analyze runs req synchronously. The query parameters nodeType and
// edgeType (repeatable) filter the returned graph, focus (repeatable)
// narrows it to the neighborhood of those entities, and q lists the nodes
// whose label matches.
func (s *Server) analyze(w http.ResponseWriter, r *http.Request, req analysis.Request) {
	focus, err := focusConfig(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	res, err := s.analyzer.Run(r.Context(), req, analysis.NopReporter{})
	if err != nil {
		fail(w, r, err)
		return
	}

	resp := analysisResponse{Result: res}
	if res.Graph != nil {
		resp.Export = s.export(r.Context(), res.Graph)

		q := r.URL.Query()
		if nodeTypes, edgeTypes := q["nodeType"], q["edgeType"]; len(nodeTypes) > 0 || len(edgeTypes) > 0 {
			res.Graph = graph.Filter(res.Graph, nodeTypes, edgeTypes)
		}
		if focus != nil {
			res.Graph = lens.Focus(res.Graph, *focus)
		}
		if term := q.Get("q"); term != "" {
			resp.Matches = graph.Search(res.Graph, term)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// focusConfig reads the focus, hops and minWeight query parameters. It
// returns nil when no focus entity is given.
func focusConfig(r *http.Request) (*lens.Config, error) {
	q := r.URL.Query()
	selected := q["focus"]
	if len(selected) == 0 {
		return nil, nil
	}
	cfg := &lens.Config{Selected: selected}
	if v := q.Get("hops"); v != "" {
		hops, err := strconv.Atoi(v)
		if err != nil || hops < 1 || hops > maxHops {
			return nil, badRequestf("hops must be between 1 and %d", maxHops)
		}
		cfg.MaxDistance = hops
	}
	if v := q.Get("minWeight"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, badRequestf("minWeight is not a number: %q", v)
		}
		cfg.MinWeight = w
	}
	return cfg, nil
}

const maxHops = 6

// export hands the graph to the configured sink. Sink failures are reported
// in the response, not as request errors.
func (s *Server) export(ctx context.Context, g *model.LinkGraph) *exportInfo {
	if s.sink == nil {
		return nil
	}
	id, err := gonanoid.New()
	if err != nil {
		s.logger.Warn("failed to generate analysis id", "error", err)
		return nil
	}
	info := &exportInfo{AnalysisID: id}
	stats, err := s.sink.Export(ctx, id, g)
	if err != nil {
		s.logger.Warn("graph export failed", "analysis", id, "error", err)
		info.Error = err.Error()
		return info
	}
	info.Nodes, info.Edges = stats.Nodes, stats.Edges
	return info
}

func (s *Server) handleNarrative(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	g, err := graph.Import(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, r, err)
			return
		}
		writeError(w, r, http.StatusBadRequest, "expected a link graph: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.narrator.Narrate(r.Context(), g))
}

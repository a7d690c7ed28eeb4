package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ritzau/link-analyzer/pkg/detect"
	"github.com/ritzau/link-analyzer/pkg/document"
	"github.com/ritzau/link-analyzer/pkg/graph"
	"github.com/ritzau/link-analyzer/pkg/intel"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/rif"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

// Kind selects the pipeline a file runs through
type Kind string

const (
	KindAuto     Kind = "auto"
	KindTable    Kind = "table"
	KindRIF      Kind = "rif"
	KindIntel    Kind = "intel"
	KindDocument Kind = "document"
)

var ErrUnknownKind = errors.New("unknown analysis kind")

// ParseKind accepts the kind names used on the command line and in the API.
// The empty string means KindAuto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return KindAuto, nil
	case KindAuto, KindTable, KindRIF, KindIntel, KindDocument:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Pipeline states reported through Reporter.PublishStatus
const (
	StateParsing   = "parsing"
	StateDetecting = "detecting"
	StateBuilding  = "building"
	StateAnalyzing = "analyzing"
	StateReady     = "ready"
	StateError     = "error"

	totalSteps = 4
)

// Reporter receives pipeline status and row progress.
type Reporter interface {
	PublishStatus(state, message string, step, total int)
	PublishProgress(p tabular.Progress)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) PublishStatus(string, string, int, int) {}
func (NopReporter) PublishProgress(tabular.Progress) {}

// Request is one file to analyze
type Request struct {
	File    model.File
	Kind    Kind
	Mapping *model.ColumnMapping // tables only; nil runs column detection
}

// Result holds whatever the pipeline produced for the request's kind.
type Result struct {
	Kind      Kind               `json:"kind"`
	File      model.FileInfo     `json:"file"`
	Table     *model.ParsedTable `json:"table,omitempty"`
	Detection *detect.Result     `json:"detection,omitempty"`
	Graph     *model.LinkGraph   `json:"graph,omitempty"`
	Stats     *graph.Stats       `json:"stats,omitempty"`
	Insights  *Insights          `json:"insights,omitempty"`
	RIF       *rif.Report        `json:"rif,omitempty"`
	Intel     *intel.Report      `json:"intel,omitempty"`
	Document  *document.Result   `json:"document,omitempty"`
}

// Runner orchestrates parse → detect → build → analyze
type Runner struct {
	extractor *document.Extractor
	graphOpts []graph.Option
	logger    *slog.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithExtractor replaces the document extractor.
func WithExtractor(e *document.Extractor) RunnerOption {
	return func(r *Runner) { r.extractor = e }
}

// WithGraphOptions passes options to every graph build.
func WithGraphOptions(opts ...graph.Option) RunnerOption {
	return func(r *Runner) { r.graphOpts = append(r.graphOpts, opts...) }
}

// NewRunner creates a new analysis runner
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		extractor: document.NewExtractor(document.NewExecutor()),
		logger:    logging.New("analysis"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the pipeline for one request. The reporter may be nil.
func (r *Runner) Run(ctx context.Context, req Request, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = NopReporter{}
	}
	kind := req.Kind
	if kind == "" || kind == KindAuto {
		kind = r.resolveKind(ctx, req.File)
	}
	log := r.logger.With("file", req.File.Name, "kind", kind)
	log.Info("starting analysis")

	res := &Result{Kind: kind, File: req.File.Info()}
	var err error
	switch kind {
	case KindTable:
		err = r.runTable(ctx, req, res, rep)
	case KindRIF:
		err = r.runRIF(ctx, req.File, res, rep)
	case KindIntel:
		err = r.runIntel(ctx, req.File, res, rep)
	case KindDocument:
		err = r.runDocument(ctx, req.File, res, rep)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		log.Warn("analysis failed", "error", err)
		rep.PublishStatus(StateError, err.Error(), 0, totalSteps)
		return nil, err
	}

	if res.Graph != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rep.PublishStatus(StateAnalyzing, "Computing clusters and rankings...", 4, totalSteps)
		res.Insights = Analyze(res.Graph)
		log.Info("analysis complete", "nodes", res.Graph.Metadata.TotalNodes, "edges", res.Graph.Metadata.TotalEdges,
			"clusters", len(res.Insights.Components), "circularFlows", len(res.Insights.CircularFlows))
	} else {
		log.Info("analysis complete")
	}
	rep.PublishStatus(StateReady, "Analysis complete", totalSteps, totalSteps)
	return res, nil
}

// resolveKind picks a pipeline from the file: spreadsheets with a
// recognizable RIF header are RIF, other tabular files are tables, text
// laid out in intelligence-report sections is intel, and anything else is
// a document.
func (r *Runner) resolveKind(ctx context.Context, f model.File) Kind {
	switch tabular.Detect(f) {
	case tabular.FormatCSV, tabular.FormatXLSX, tabular.FormatXLS:
		if report, err := rif.ParseFile(ctx, f); err == nil && report.HasMovementColumns() {
			return KindRIF
		}
		return KindTable
	case tabular.FormatJSON:
		return KindTable
	case tabular.FormatTXT:
		if intel.Recognized(string(f.Data)) {
			return KindIntel
		}
		return KindTable
	}
	if intel.Recognized(r.extractor.Extract(ctx, f).Text) {
		return KindIntel
	}
	return KindDocument
}

func (r *Runner) runTable(ctx context.Context, req Request, res *Result, rep Reporter) error {
	rep.PublishStatus(StateParsing, "Parsing table...", 1, totalSteps)
	table, err := tabular.ParseFile(ctx, req.File, tabular.WithProgress(rep.PublishProgress))
	if err != nil {
		return err
	}
	res.Table = table

	mapping := req.Mapping
	if mapping == nil {
		rep.PublishStatus(StateDetecting, "Detecting source and target columns...", 2, totalSteps)
		d := detect.DetectColumns(table.Columns, table.Rows)
		res.Detection = &d
		m := d.Mapping()
		mapping = &m
	} else if err := graph.CheckMapping(table, *mapping); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rep.PublishStatus(StateBuilding, "Building link graph...", 3, totalSteps)
	g, stats := graph.BuildStats(table.Rows, *mapping, r.graphOpts...)
	res.Graph = g
	res.Stats = &stats
	return nil
}

func (r *Runner) runRIF(ctx context.Context, f model.File, res *Result, rep Reporter) error {
	rep.PublishStatus(StateParsing, "Parsing financial-intelligence sheet...", 1, totalSteps)
	report, err := rif.ParseFile(ctx, f)
	if err != nil {
		return err
	}
	res.RIF = report

	rep.PublishStatus(StateBuilding, "Building link graph...", 3, totalSteps)
	res.Graph = report.Graph(r.graphOpts...)
	return nil
}

func (r *Runner) runIntel(ctx context.Context, f model.File, res *Result, rep Reporter) error {
	rep.PublishStatus(StateParsing, "Extracting report text...", 1, totalSteps)
	doc := r.extractor.Extract(ctx, f)
	if doc.Fallback {
		return fmt.Errorf("extracting %s: %w", f.Name, intel.ErrEmptyReport)
	}
	res.Document = &doc

	report, err := intel.Parse(doc.Text)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", f.Name, err)
	}
	res.Intel = report

	rep.PublishStatus(StateBuilding, "Building link graph...", 3, totalSteps)
	res.Graph = report.Graph(r.graphOpts...)
	return nil
}

func (r *Runner) runDocument(ctx context.Context, f model.File, res *Result, rep Reporter) error {
	rep.PublishStatus(StateParsing, "Extracting document text...", 1, totalSteps)
	doc := r.extractor.Extract(ctx, f)
	res.Document = &doc
	return ctx.Err()
}

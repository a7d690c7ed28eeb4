// Package web serves the analysis pipeline over HTTP.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/jobs"
	"github.com/ritzau/link-analyzer/pkg/kvstore"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/narrative"
	"github.com/ritzau/link-analyzer/pkg/neo4jsink"
	"github.com/ritzau/link-analyzer/pkg/pubsub"
)

// MaxUploadSize caps request bodies.
const MaxUploadSize = 64 << 20

const shutdownTimeout = 10 * time.Second

// GraphSink receives every graph the server builds; *neo4jsink.Sink
// implements it.
type GraphSink interface {
	Export(ctx context.Context, analysisID string, g *model.LinkGraph) (neo4jsink.Stats, error)
}

// Options wires the server's collaborators. Zero fields get in-process
// defaults. When Jobs is set it must mirror its events to Publisher.
type Options struct {
	Publisher *pubsub.SSEPublisher
	Analyzer  *analysis.Runner
	Jobs      *jobs.Runner
	Narrator  *narrative.Narrator
	Store     kvstore.Store
	Sink      GraphSink
	SavedTTL  time.Duration // expiry of saved analyses, 0 keeps them
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	analyzer  *analysis.Runner
	jobs      *jobs.Runner
	narrator  *narrative.Narrator
	store     kvstore.Store
	sink      GraphSink
	savedTTL  time.Duration
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewServer creates a new web server
func NewServer(opts Options) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		publisher: opts.Publisher,
		analyzer:  opts.Analyzer,
		jobs:      opts.Jobs,
		narrator:  opts.Narrator,
		store:     opts.Store,
		sink:      opts.Sink,
		savedTTL:  opts.SavedTTL,
		validate:  newValidator(),
		logger:    logging.New("web"),
	}
	if s.publisher == nil {
		s.publisher = pubsub.NewSSEPublisher()
	}
	ConfigureTopics(s.publisher)
	if s.analyzer == nil {
		s.analyzer = analysis.NewRunner()
	}
	if s.jobs == nil {
		s.jobs = jobs.NewRunner(s.analyzer, jobs.WithPublisher(s.publisher))
	}
	if s.narrator == nil {
		s.narrator = narrative.NewNarrator(nil)
	}
	if s.store == nil {
		s.store = kvstore.NewMemoryStore()
	}
	s.setupRoutes()
	return s
}

// ConfigureTopics sets the replay buffers the SSE endpoints rely on.
func ConfigureTopics(p *pubsub.SSEPublisher) {
	// A job's subscriber may connect after the job started; replay it all.
	p.ConfigurePrefix(pubsub.JobTopicPrefix, pubsub.TopicConfig{
		BufferSize: 128,
		ReplayAll:  true,
	})
	p.ConfigureTopic(pubsub.InboxTopic, pubsub.TopicConfig{
		BufferSize: 50,
		ReplayAll:  true,
	})
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Synchronous analysis of one uploaded file
	api.HandleFunc("/parse", s.handleParse).Methods("POST")
	api.HandleFunc("/graph", s.handleGraph).Methods("POST")
	api.HandleFunc("/graph/custom", s.handleGraphCustom).Methods("POST")
	api.HandleFunc("/rif", s.handleKind(analysis.KindRIF)).Methods("POST")
	api.HandleFunc("/intel", s.handleKind(analysis.KindIntel)).Methods("POST")
	api.HandleFunc("/document", s.handleKind(analysis.KindDocument)).Methods("POST")
	api.HandleFunc("/narrative", s.handleNarrative).Methods("POST")

	// Background jobs
	api.HandleFunc("/jobs", s.handleSubmitJob).Methods("POST")
	api.HandleFunc("/jobs", s.handleListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.handleCancelJob).Methods("DELETE")
	api.HandleFunc("/jobs/{id}/events", s.handleJobEvents).Methods("GET")
	api.HandleFunc("/inbox/events", s.handleInboxEvents).Methods("GET")

	// Saved analyses
	api.HandleFunc("/analyses", s.handleCreateAnalysis).Methods("POST")
	api.HandleFunc("/analyses/{key:[A-Za-z0-9_-]+}", s.handleGetAnalysis).Methods("GET")
	api.HandleFunc("/analyses/{key:[A-Za-z0-9_-]+}", s.handlePutAnalysis).Methods("PUT")
	api.HandleFunc("/analyses/{key:[A-Za-z0-9_-]+}", s.handleDeleteAnalysis).Methods("DELETE")

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "no such endpoint")
	})
}

// Handler returns the routes wrapped in the request logging middleware.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

// Publisher returns the SSE publisher the server streams from.
func (s *Server) Publisher() *pubsub.SSEPublisher {
	return s.publisher
}

// Start serves on port until ctx is done, then drains requests and jobs.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Close subscriptions first so open SSE streams end.
	s.publisher.Close()
	err := srv.Shutdown(shutdownCtx)
	if jerr := s.jobs.Shutdown(shutdownCtx); jerr != nil {
		s.logger.Warn("jobs did not stop in time", "error", jerr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

package main

import (
	"context"

	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/events"
	"github.com/ritzau/link-analyzer/pkg/jobs"
	"github.com/ritzau/link-analyzer/pkg/kvstore"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/narrative"
	"github.com/ritzau/link-analyzer/pkg/neo4jsink"
	"github.com/ritzau/link-analyzer/pkg/pubsub"
)

// services are the long-running collaborators of serve and watch. Each
// external system is optional and falls back to an in-process stand-in.
type services struct {
	store     kvstore.Store
	bus       events.Publisher
	sink      *neo4jsink.Sink
	narrator  *narrative.Narrator
	publisher *pubsub.SSEPublisher
	analyzer  *analysis.Runner
	jobs      *jobs.Runner
	closers   []func()
}

func newServices(ctx context.Context) (*services, error) {
	s := &services{publisher: pubsub.NewSSEPublisher()}

	if cfg.Redis.Addr != "" {
		rs, err := kvstore.NewRedisStore(ctx, cfg.Redis.Addr)
		if err != nil {
			return nil, err
		}
		s.store = rs
		s.closers = append(s.closers, func() { rs.Close() })
		logging.Info("using redis store", "addr", cfg.Redis.Addr)
	} else {
		s.store = kvstore.NewMemoryStore()
	}

	bus, err := events.New(cfg.NATS.URL)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.bus = bus
	s.closers = append(s.closers, func() { bus.Close() })

	sink, err := neo4jsink.Connect(ctx, neo4jConfig())
	if err != nil {
		// Export is optional; analysis works without it.
		logging.Warn("neo4j unavailable, graph export disabled", "error", err)
	}
	if sink != nil {
		s.sink = sink
		s.closers = append(s.closers, func() { sink.Close(context.Background()) })
	}

	completer := narrative.NewOpenAICompleter(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	s.narrator = narrative.NewNarrator(completer, narrative.WithCache(kvstore.NewCache(s.store, cfg.Cache.TTL)))

	s.analyzer = analysis.NewRunner()
	s.jobs = jobs.NewRunner(s.analyzer,
		jobs.WithPublisher(s.publisher),
		jobs.WithEventBus(s.bus),
		jobs.WithRetain(cfg.Jobs.Retain),
	)
	s.closers = append(s.closers, func() { s.publisher.Close() })
	return s, nil
}

// Close releases the services in reverse order of creation.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

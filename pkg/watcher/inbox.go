package watcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/finder"
	"github.com/ritzau/link-analyzer/pkg/jobs"
	"github.com/ritzau/link-analyzer/pkg/lens"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/pubsub"
	"github.com/ritzau/link-analyzer/pkg/source"
	"golang.org/x/sync/errgroup"
)

// Defaults for NewInbox
const (
	DefaultQuietPeriod = 500 * time.Millisecond
	DefaultMaxWait     = 5 * time.Second
	DefaultConcurrency = 4
)

// ItemState is where an inbox file stands
type ItemState string

const (
	ItemQueued   ItemState = "queued"
	ItemDone     ItemState = "done"
	ItemFailed   ItemState = "failed"
	ItemCanceled ItemState = "canceled"
	ItemRemoved  ItemState = "removed"
)

// Item is published on the inbox topic for every file the inbox handles.
type Item struct {
	Path  string        `json:"path"`
	JobID string        `json:"jobId,omitempty"`
	State ItemState     `json:"state"`
	Kind  analysis.Kind `json:"kind,omitempty"`
	Nodes int           `json:"nodes,omitempty"`
	Edges int           `json:"edges,omitempty"`
	Error string        `json:"error,omitempty"`

	// Changes compares the graph with the previous analysis of the same path.
	Changes *lens.Summary `json:"changes,omitempty"`
}

// Inbox submits every input file that appears in a directory to the job
// runner. Files present at start are analyzed too.
type Inbox struct {
	dir         string
	jobs        *jobs.Runner
	pub         pubsub.Publisher
	notify      func(Item)
	load        func(path string) (model.File, error)
	quiet       time.Duration
	maxWait     time.Duration
	concurrency int
	logger      *slog.Logger

	mu        sync.Mutex
	seq       uint64
	latest    map[string]uint64
	inflight  map[string]*jobs.Job
	snapshots map[string]*lens.Snapshot
}

// InboxOption configures an Inbox
type InboxOption func(*Inbox)

// WithInboxPublisher publishes an Item on pubsub.InboxTopic per change.
func WithInboxPublisher(p pubsub.Publisher) InboxOption {
	return func(in *Inbox) { in.pub = p }
}

// WithNotify calls fn with each finished item.
func WithNotify(fn func(Item)) InboxOption {
	return func(in *Inbox) { in.notify = fn }
}

// WithDebounce sets the quiet period and the longest wait before a batch of
// changes is handled.
func WithDebounce(quiet, maxWait time.Duration) InboxOption {
	return func(in *Inbox) {
		in.quiet = quiet
		in.maxWait = maxWait
	}
}

// WithConcurrency bounds how many files are analyzed at once.
func WithConcurrency(n int) InboxOption {
	return func(in *Inbox) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

func NewInbox(dir string, runner *jobs.Runner, opts ...InboxOption) *Inbox {
	in := &Inbox{
		dir:         dir,
		jobs:        runner,
		load:        source.LoadLocal,
		quiet:       DefaultQuietPeriod,
		maxWait:     DefaultMaxWait,
		concurrency: DefaultConcurrency,
		logger:      logging.New("inbox"),
		latest:      make(map[string]uint64),
		inflight:    make(map[string]*jobs.Job),
		snapshots:   make(map[string]*lens.Snapshot),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run watches the inbox until ctx is done, then waits for the files in
// progress.
func (in *Inbox) Run(ctx context.Context) error {
	fw, err := NewFileWatcher(in.dir)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}
	deb := NewDebouncer(fw.Events(), in.quiet, in.maxWait)
	deb.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	// g.Go blocks while every slot is busy, so the stale job for a path is
	// canceled first.
	submit := func(path string) {
		gen := in.supersede(path)
		g.Go(func() error {
			in.process(gctx, path, gen)
			return nil
		})
	}

	existing, err := finder.FindInputFiles(in.dir)
	if err != nil {
		in.logger.Warn("failed to scan inbox", "path", in.dir, "error", err)
	}
	in.logger.Info("scanned inbox", "path", in.dir, "files", len(existing))
	for _, p := range existing {
		submit(p)
	}

	for event := range deb.Output() {
		changes := AnalyzeChanges(event)
		for _, p := range changes.Removed {
			in.supersede(p)
			in.forget(p)
			in.publish(Item{Path: p, State: ItemRemoved})
		}
		for _, p := range changes.Skipped {
			in.logger.Debug("skipping empty file", "path", p)
		}
		for _, p := range changes.Analyze {
			submit(p)
		}
	}

	return g.Wait()
}

// process analyzes one file. A newer change to the same path cancels the
// job still running for it, and a run superseded before it starts is
// dropped.
func (in *Inbox) process(ctx context.Context, path string, gen uint64) {
	if !in.current(path, gen) {
		in.logger.Debug("dropping superseded change", "path", path)
		return
	}
	f, err := in.load(path)
	if err != nil {
		in.logger.Warn("failed to read inbox file", "path", path, "error", err)
		in.finish(Item{Path: path, State: ItemFailed, Error: err.Error()})
		return
	}

	job := in.start(ctx, path, gen, f)
	if job == nil {
		in.logger.Debug("dropping superseded change", "path", path)
		return
	}
	defer in.untrack(path, job)
	in.publish(Item{Path: path, JobID: job.ID, State: ItemQueued})

	res, err := job.Wait(ctx)
	if ctx.Err() != nil {
		job.Cancel()
		return
	}

	item := Item{Path: path, JobID: job.ID, State: ItemDone}
	switch {
	case job.State() == jobs.StateCanceled:
		item.State = ItemCanceled
	case err != nil:
		item.State = ItemFailed
		item.Error = err.Error()
	default:
		item.Kind = res.Kind
		if res.Graph != nil {
			item.Nodes = res.Graph.Metadata.TotalNodes
			item.Edges = res.Graph.Metadata.TotalEdges
			item.Changes = in.compare(path, res.Graph)
		}
	}
	in.logger.Info("inbox file analyzed", "path", path, "state", item.State, "kind", item.Kind,
		"nodes", item.Nodes, "edges", item.Edges)
	in.finish(item)
}

// supersede marks a new change to path and cancels the job running for it.
// It returns the generation the new change runs under.
func (in *Inbox) supersede(path string) uint64 {
	in.mu.Lock()
	in.seq++
	gen := in.seq
	in.latest[path] = gen
	prev := in.inflight[path]
	delete(in.inflight, path)
	in.mu.Unlock()
	if prev != nil {
		in.logger.Debug("superseding running job", "path", path, "jobID", prev.ID)
		prev.Cancel()
	}
	return gen
}

func (in *Inbox) current(path string, gen uint64) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.latest[path] == gen
}

// start submits f unless a newer change to path arrived meanwhile.
func (in *Inbox) start(ctx context.Context, path string, gen uint64, f model.File) *jobs.Job {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.latest[path] != gen {
		return nil
	}
	job := in.jobs.Submit(ctx, f, analysis.KindAuto)
	in.inflight[path] = job
	return job
}

func (in *Inbox) untrack(path string, job *jobs.Job) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.inflight[path] == job {
		delete(in.inflight, path)
	}
}

// compare diffs g against the last graph seen for path and remembers g.
func (in *Inbox) compare(path string, g *model.LinkGraph) *lens.Summary {
	in.mu.Lock()
	prev := in.snapshots[path]
	in.snapshots[path] = lens.CreateSnapshot(g)
	in.mu.Unlock()

	summary := lens.ComputeDiff(prev, g).Summary()
	return &summary
}

func (in *Inbox) forget(path string) {
	in.mu.Lock()
	delete(in.latest, path)
	delete(in.snapshots, path)
	in.mu.Unlock()
}

func (in *Inbox) finish(item Item) {
	in.publish(item)
	if in.notify != nil {
		in.notify(item)
	}
}

func (in *Inbox) publish(item Item) {
	if in.pub == nil {
		return
	}
	if err := in.pub.Publish(pubsub.InboxTopic, string(item.State), item); err != nil {
		in.logger.Warn("failed to publish inbox item", "path", item.Path, "error", err)
	}
}

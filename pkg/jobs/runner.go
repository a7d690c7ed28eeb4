package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/events"
	"github.com/ritzau/link-analyzer/pkg/logging"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/pubsub"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

// DefaultRetain is how many finished jobs are kept for lookup.
const DefaultRetain = 100

// Analyzer runs one analysis; *analysis.Runner implements it.
type Analyzer interface {
	Run(ctx context.Context, req analysis.Request, rep analysis.Reporter) (*analysis.Result, error)
}

// Runner executes submitted jobs, one goroutine each, and remembers the
// most recently finished ones.
type Runner struct {
	analyzer Analyzer
	pub      pubsub.Publisher
	bus      events.Publisher
	retain   int
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	jobs     map[string]*Job
	finished []string // IDs in finishing order
	wg       sync.WaitGroup
}

// Option configures a Runner
type Option func(*Runner)

// WithPublisher mirrors every job event on the job's pubsub topic.
func WithPublisher(p pubsub.Publisher) Option {
	return func(r *Runner) { r.pub = p }
}

// WithEventBus announces finished graphs and failures.
func WithEventBus(b events.Publisher) Option {
	return func(r *Runner) { r.bus = b }
}

// WithRetain sets how many finished jobs stay available.
func WithRetain(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.retain = n
		}
	}
}

// NewRunner creates a job runner over analyzer
func NewRunner(analyzer Analyzer, opts ...Option) *Runner {
	r := &Runner{
		analyzer: analyzer,
		bus:      &events.NoopPublisher{},
		retain:   DefaultRetain,
		logger:   logging.New("jobs"),
		now:      time.Now,
		jobs:     make(map[string]*Job),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Submit starts analyzing f in the background. The job outlives ctx; only
// ctx's values (such as the request ID) carry over. Use Job.Cancel to stop it.
func (r *Runner) Submit(ctx context.Context, f model.File, kind analysis.Kind) *Job {
	return r.SubmitRequest(ctx, analysis.Request{File: f, Kind: kind})
}

// SubmitRequest is Submit with a full analysis request.
func (r *Runner) SubmitRequest(ctx context.Context, req analysis.Request) *Job {
	if req.Kind == "" {
		req.Kind = analysis.KindAuto
	}
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &Job{
		ID:      uuid.New().String(),
		Kind:    req.Kind,
		File:    req.File.Info(),
		Created: r.now(),
		state:   StateQueued,
		events:  make(chan Event, eventBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	logging.InfoContext(ctx, "job submitted", "jobID", job.ID, "file", job.File.Name, "kind", job.Kind)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.run(jobCtx, job, req)
	}()
	return job
}

func (r *Runner) run(ctx context.Context, job *Job, req analysis.Request) {
	job.setState(StateRunning)
	rep := &reporter{runner: r, job: job}

	res, err := r.analyzer.Run(ctx, req, rep)
	if err == nil {
		// Cancellation after the last check still counts
		err = ctx.Err()
		if err != nil {
			res = nil
		}
	}

	terminal := job.finish(res, err, r.now())
	r.mirror(job.ID, terminal)
	r.announce(ctx, job, res, err)
	r.retire(job.ID)

	log := r.logger.With("jobID", job.ID, "state", job.State())
	if err != nil {
		log.Warn("job finished with error", "error", err)
	} else {
		log.Info("job finished")
	}
}

// mirror copies an event to the job's pubsub topic.
func (r *Runner) mirror(id string, e Event) {
	if r.pub == nil {
		return
	}
	if err := r.pub.Publish(pubsub.JobTopic(id), string(e.Type), e); err != nil {
		r.logger.Debug("could not mirror job event", "jobID", id, "error", err)
	}
}

func (r *Runner) announce(ctx context.Context, job *Job, res *analysis.Result, err error) {
	ctx = context.WithoutCancel(ctx)
	if err != nil {
		err = r.bus.Publish(ctx, events.TopicAnalysisFailed, events.AnalysisFailed{
			JobID: job.ID, Kind: string(job.Kind), File: job.File, Error: err.Error(), At: r.now(),
		})
	} else if res.Graph != nil {
		err = r.bus.Publish(ctx, events.TopicGraphBuilt, events.GraphBuilt{
			JobID: job.ID, Kind: string(res.Kind), File: job.File, Metadata: res.Graph.Metadata, At: r.now(),
		})
	}
	if err != nil {
		r.logger.Warn("could not publish job event", "jobID", job.ID, "error", err)
	}
}

// retire records a finished job and evicts the oldest finished jobs beyond
// the retention limit.
func (r *Runner) retire(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, id)
	for len(r.finished) > r.retain {
		old := r.finished[0]
		r.finished = r.finished[1:]
		delete(r.jobs, old)
		if r.pub != nil {
			r.pub.Forget(pubsub.JobTopic(old))
		}
		r.logger.Debug("evicted finished job", "jobID", old)
	}
}

// Get looks a job up by ID.
func (r *Runner) Get(id string) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// Cancel cancels a job by ID. It reports whether the job exists.
func (r *Runner) Cancel(id string) bool {
	j, ok := r.Get(id)
	if ok {
		j.Cancel()
	}
	return ok
}

// List returns snapshots of all known jobs, newest first.
func (r *Runner) List() []Snapshot {
	r.mu.Lock()
	all := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, j)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(all))
	for _, j := range all {
		s := j.Snapshot()
		s.Result = nil
		out = append(out, s)
	}
	sortSnapshots(out)
	return out
}

// Shutdown cancels running jobs and waits for them, or for ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, j := range r.jobs {
		if !j.State().Terminal() {
			j.Cancel()
		}
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reporter turns pipeline callbacks into job events.
type reporter struct {
	runner *Runner
	job    *Job
}

func (p *reporter) PublishStatus(state, message string, step, total int) {
	if state == analysis.StateError {
		// the terminal event carries the error
		return
	}
	p.send(Event{Type: EventProgress, JobID: p.job.ID, State: state, Message: message, Step: step, Total: total})
}

func (p *reporter) PublishProgress(pr tabular.Progress) {
	p.send(Event{Type: EventProgress, JobID: p.job.ID, State: analysis.StateParsing, Rows: &pr})
}

func (p *reporter) send(e Event) {
	if !p.job.emitProgress(e) {
		p.runner.logger.Debug("job event buffer full, dropping progress", "jobID", p.job.ID)
	}
	p.runner.mirror(p.job.ID, e)
}

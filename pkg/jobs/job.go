// Package jobs runs analyses in the background and streams their progress.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/tabular"
)

// State of a job
type State string

const (
	StateQueued   State = "queued"
	StateRunning  State = "running"
	StateDone     State = "done"
	StateFailed   State = "failed"
	StateCanceled State = "canceled"
)

// Terminal reports whether the job will not change state again.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCanceled
}

// EventType tags job events
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventError    EventType = "error"
)

// Event is one job update. A job emits progress events followed by exactly
// one result or error event.
type Event struct {
	Type    EventType         `json:"type"`
	JobID   string            `json:"jobId"`
	State   string            `json:"state,omitempty"`
	Message string            `json:"message,omitempty"`
	Step    int               `json:"step,omitempty"`
	Total   int               `json:"total,omitempty"`
	Rows    *tabular.Progress `json:"rows,omitempty"`
	Result  *analysis.Result  `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// eventBuffer bounds undelivered events per job; progress is dropped when
// the reader falls behind, the terminal event never is.
const eventBuffer = 64

// Job is one submitted analysis
type Job struct {
	ID      string
	Kind    analysis.Kind
	File    model.FileInfo
	Created time.Time

	mu       sync.Mutex
	state    State
	finished time.Time
	result   *analysis.Result
	err      error

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// Snapshot is the JSON view of a job
type Snapshot struct {
	ID       string           `json:"id"`
	Kind     analysis.Kind    `json:"kind"`
	File     model.FileInfo   `json:"file"`
	State    State            `json:"state"`
	Created  time.Time        `json:"created"`
	Finished *time.Time       `json:"finished,omitempty"`
	Error    string           `json:"error,omitempty"`
	Result   *analysis.Result `json:"result,omitempty"`
}

// Events streams the job's events. The channel closes after the terminal
// event.
func (j *Job) Events() <-chan Event { return j.events }

// Done closes when the job has finished.
func (j *Job) Done() <-chan struct{} { return j.done }

// Cancel stops the job at its next cancellation check.
func (j *Job) Cancel() { j.cancel() }

// State returns the current state
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (*analysis.Result, error) {
	select {
	case <-j.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.err
}

// Snapshot copies the job's current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	s := Snapshot{
		ID:      j.ID,
		Kind:    j.Kind,
		File:    j.File,
		State:   j.state,
		Created: j.Created,
		Result:  j.result,
	}
	if !j.finished.IsZero() {
		f := j.finished
		s.Finished = &f
	}
	if j.err != nil {
		s.Error = j.err.Error()
	}
	return s
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

func (j *Job) finishedAt() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

// emitProgress never blocks and keeps one slot free for the terminal event.
// Only the job's goroutine sends, so the length check cannot race with
// another sender.
func (j *Job) emitProgress(e Event) bool {
	if len(j.events) >= cap(j.events)-1 {
		return false
	}
	j.events <- e
	return true
}

func (j *Job) finish(res *analysis.Result, err error, now time.Time) Event {
	j.mu.Lock()
	j.result, j.err, j.finished = res, err, now
	switch {
	case err == nil:
		j.state = StateDone
	case errors.Is(err, context.Canceled):
		j.state = StateCanceled
	default:
		j.state = StateFailed
	}
	j.mu.Unlock()

	e := Event{Type: EventResult, JobID: j.ID, State: string(j.State()), Result: res}
	if err != nil {
		e = Event{Type: EventError, JobID: j.ID, State: string(j.State()), Error: err.Error()}
	}
	j.events <- e
	close(j.events)
	close(j.done)
	return e
}

func sortSnapshots(s []Snapshot) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Created.After(s[j].Created) })
}

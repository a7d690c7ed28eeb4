package watcher

import (
	"context"
	"sort"
	"time"

	"github.com/ritzau/link-analyzer/pkg/logging"
)

// Debouncer batches rapid file system events so a file that is still being
// copied is analyzed once, after it settles.
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run accumulates events until the input is quiet for quietPeriod, or
// maxWait has passed since the first pending event. The last change to a
// path wins.
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet    <-chan time.Time
		deadline <-chan time.Time
		pending  = make(map[string]ChangeType)
	)

	flush := func() {
		quiet, deadline = nil, nil
		if len(pending) == 0 {
			return
		}
		logging.Debug("flushing accumulated events", "count", len(pending))

		var writes, removes []string
		for path, t := range pending {
			if t == ChangeTypeRemove {
				removes = append(removes, path)
			} else {
				writes = append(writes, path)
			}
		}
		pending = make(map[string]ChangeType)
		sort.Strings(writes)
		sort.Strings(removes)

		now := time.Now()
		d.emit(ctx, ChangeEvent{Type: ChangeTypeRemove, Paths: removes, Timestamp: now})
		d.emit(ctx, ChangeEvent{Type: ChangeTypeWrite, Paths: writes, Timestamp: now})
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			for _, p := range event.Paths {
				pending[p] = event.Type
			}
			quiet = time.After(d.quietPeriod)
			if deadline == nil {
				deadline = time.After(d.maxWait)
			}

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}

func (d *Debouncer) emit(ctx context.Context, e ChangeEvent) {
	if len(e.Paths) == 0 {
		return
	}
	select {
	case d.output <- e:
	case <-ctx.Done():
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

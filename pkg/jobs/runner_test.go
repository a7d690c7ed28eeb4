package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/document"
	"github.com/ritzau/link-analyzer/pkg/model"
	"github.com/ritzau/link-analyzer/pkg/pubsub"
)

const tableCSV = `origem,destino,tipo,valor
João Silva,Maria Souza,transferencia,100
Maria Souza,Pedro Lima,pix,250
`

func newAnalyzer() *analysis.Runner {
	return analysis.NewRunner(analysis.WithExtractor(document.NewExtractor(&document.MockExecutor{MockError: errors.New("no pdftotext")})))
}

// collect drains a job's events, failing on timeout.
func collect(t *testing.T, j *Job) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-j.Events():
			if !ok {
				return out
			}
			out = append(out, e)
		case <-timeout:
			t.Fatalf("timed out after %d events", len(out))
		}
	}
}

func checkStream(t *testing.T, evs []Event, terminal EventType) {
	t.Helper()
	if len(evs) == 0 {
		t.Fatal("no events")
	}
	for i, e := range evs[:len(evs)-1] {
		if e.Type != EventProgress {
			t.Errorf("event %d has type %q before the terminal event", i, e.Type)
		}
	}
	if last := evs[len(evs)-1]; last.Type != terminal {
		t.Errorf("terminal event = %q, want %q", last.Type, terminal)
	}
}

func TestSubmitResult(t *testing.T) {
	r := NewRunner(newAnalyzer())
	j := r.Submit(context.Background(), model.NewFile("rede.csv", "text/csv", []byte(tableCSV)), analysis.KindTable)

	evs := collect(t, j)
	checkStream(t, evs, EventResult)
	res := evs[len(evs)-1].Result
	if res == nil || res.Graph == nil || res.Graph.Metadata.TotalEdges != 2 {
		t.Fatalf("result = %+v", res)
	}
	if j.State() != StateDone {
		t.Errorf("State() = %q, want done", j.State())
	}

	got, err := j.Wait(context.Background())
	if err != nil || got != res {
		t.Errorf("Wait() = %v, %v", got, err)
	}
	if found, ok := r.Get(j.ID); !ok || found != j {
		t.Errorf("Get(%s) did not return the job", j.ID)
	}
}

func TestSubmitError(t *testing.T) {
	r := NewRunner(newAnalyzer())
	j := r.Submit(context.Background(), model.NewFile("vazio.csv", "text/csv", nil), analysis.KindTable)

	evs := collect(t, j)
	checkStream(t, evs, EventError)
	if evs[len(evs)-1].Error == "" {
		t.Errorf("error event carries no message")
	}
	if s := j.Snapshot(); s.State != StateFailed || s.Error == "" || s.Finished == nil {
		t.Errorf("Snapshot() = %+v", s)
	}
}

// blockingAnalyzer reports one status, then waits for cancellation.
type blockingAnalyzer struct {
	started chan struct{}
}

func (b *blockingAnalyzer) Run(ctx context.Context, req analysis.Request, rep analysis.Reporter) (*analysis.Result, error) {
	rep.PublishStatus(analysis.StateParsing, "parsing", 1, 4)
	close(b.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCancel(t *testing.T) {
	a := &blockingAnalyzer{started: make(chan struct{})}
	r := NewRunner(a)
	j := r.Submit(context.Background(), model.NewFile("a.csv", "", nil), analysis.KindTable)

	<-a.started
	if !r.Cancel(j.ID) {
		t.Fatal("Cancel returned false for a known job")
	}
	evs := collect(t, j)
	checkStream(t, evs, EventError)
	if j.State() != StateCanceled {
		t.Errorf("State() = %q, want canceled", j.State())
	}
	if r.Cancel("missing") {
		t.Errorf("Cancel of an unknown job returned true")
	}
}

func TestSubmitOutlivesCallerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(newAnalyzer())
	j := r.Submit(ctx, model.NewFile("rede.csv", "text/csv", []byte(tableCSV)), analysis.KindTable)
	cancel()

	checkStream(t, collect(t, j), EventResult)
}

type instantAnalyzer struct{}

func (instantAnalyzer) Run(ctx context.Context, req analysis.Request, rep analysis.Reporter) (*analysis.Result, error) {
	return &analysis.Result{Kind: req.Kind, Graph: model.NewLinkGraph()}, nil
}

func TestRetention(t *testing.T) {
	r := NewRunner(instantAnalyzer{}, WithRetain(2))
	var ids []string
	for i := 0; i < 3; i++ {
		j := r.Submit(context.Background(), model.NewFile("a.csv", "", nil), analysis.KindTable)
		collect(t, j)
		ids = append(ids, j.ID)
	}
	// retire runs after the terminal event; wait for the goroutines
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, ok := r.Get(ids[0]); ok {
		t.Errorf("oldest job should have been evicted")
	}
	for _, id := range ids[1:] {
		if _, ok := r.Get(id); !ok {
			t.Errorf("job %s evicted too early", id)
		}
	}
	if n := len(r.List()); n != 2 {
		t.Errorf("List() has %d jobs, want 2", n)
	}
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBus) Publish(ctx context.Context, topic string, event any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func TestMirrorsAndAnnounces(t *testing.T) {
	pub := pubsub.NewSSEPublisher()
	defer pub.Close()
	pub.ConfigurePrefix(pubsub.JobTopicPrefix, pubsub.TopicConfig{BufferSize: 256, ReplayAll: true})
	bus := &recordingBus{}

	r := NewRunner(newAnalyzer(), WithPublisher(pub), WithEventBus(bus))
	j := r.Submit(context.Background(), model.NewFile("rede.csv", "text/csv", []byte(tableCSV)), analysis.KindTable)
	evs := collect(t, j)
	r.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub, err := pub.Subscribe(ctx, pubsub.JobTopic(j.ID))
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	var replayed []pubsub.Event
	for len(replayed) < len(evs) {
		select {
		case e := <-sub.Events():
			replayed = append(replayed, e)
		case <-time.After(time.Second):
			t.Fatalf("replayed %d of %d events", len(replayed), len(evs))
		}
	}
	if last := replayed[len(replayed)-1]; last.Type != string(EventResult) {
		t.Errorf("last mirrored event = %q, want result", last.Type)
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.topics) != 1 || bus.topics[0] != "link-analyzer.graph.built" {
		t.Errorf("bus topics = %v", bus.topics)
	}
}

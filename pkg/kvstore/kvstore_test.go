package kvstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore()
	s.now = clock.now
	return s, clock
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s, clock := newTestStore()

	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	s.Set(ctx, "a", []byte("1"), time.Minute)
	s.Set(ctx, "b", []byte("2"), 0)

	got, err := s.Get(ctx, "a")
	if err != nil || string(got) != "1" {
		t.Fatalf("Get(a) = %q, %v", got, err)
	}

	clock.advance(time.Minute)
	if _, err := s.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired Get(a) error = %v, want ErrNotFound", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d after eviction, want 1", s.Len())
	}
	if got, err := s.Get(ctx, "b"); err != nil || string(got) != "2" {
		t.Errorf("Get(b) without ttl = %q, %v", got, err)
	}

	s.Delete(ctx, "b")
	if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted Get(b) error = %v", err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	v := []byte("abc")
	s.Set(ctx, "k", v, 0)
	v[0] = 'x'

	got, _ := s.Get(ctx, "k")
	got[1] = 'y'
	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value changed to %q", again)
	}
}

type summary struct {
	Nodes int    `json:"nodes"`
	Text  string `json:"text"`
}

func TestGetOrPopulate(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore()
	c := NewCache(store, time.Hour)

	calls := 0
	populate := func(context.Context) (summary, error) {
		calls++
		return summary{Nodes: calls, Text: "resumo"}, nil
	}

	first, err := GetOrPopulate(ctx, c, "graph-1", populate)
	if err != nil {
		t.Fatalf("GetOrPopulate failed: %v", err)
	}
	second, err := GetOrPopulate(ctx, c, "graph-1", populate)
	if err != nil {
		t.Fatalf("GetOrPopulate failed: %v", err)
	}
	if calls != 1 || first != second {
		t.Errorf("calls = %d, first = %+v, second = %+v", calls, first, second)
	}

	clock.advance(time.Hour)
	third, _ := GetOrPopulate(ctx, c, "graph-1", populate)
	if calls != 2 || third.Nodes != 2 {
		t.Errorf("stale entry not recomputed: calls = %d, value = %+v", calls, third)
	}
}

func TestGetOrPopulateError(t *testing.T) {
	ctx := context.Background()
	c := NewCache(NewMemoryStore(), time.Hour)
	boom := errors.New("llm down")

	_, err := GetOrPopulate(ctx, c, "k", func(context.Context) (summary, error) {
		return summary{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if _, err := c.Store().Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("failed population was cached")
	}
}

func TestGetOrPopulateCollapsesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	c := NewCache(NewMemoryStore(), time.Hour)

	var calls atomic.Int32
	release := make(chan struct{})
	populate := func(context.Context) (summary, error) {
		calls.Add(1)
		<-release
		return summary{Nodes: 7}, nil
	}

	const n = 8
	var wg sync.WaitGroup
	results := make([]summary, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = GetOrPopulate(ctx, c, "shared", populate)
		}(i)
	}

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("populate called %d times, want 1", calls.Load())
	}
	for i, r := range results {
		if r.Nodes != 7 {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Delete(context.Context, string) error { return nil }

func TestGetOrPopulateStoreDown(t *testing.T) {
	c := NewCache(failingStore{}, time.Hour)
	v, err := GetOrPopulate(context.Background(), c, "k", func(context.Context) (summary, error) {
		return summary{Text: "ok"}, nil
	})
	if err != nil || v.Text != "ok" {
		t.Errorf("GetOrPopulate = %+v, %v; want populated value despite store failure", v, err)
	}
}

package vision

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeBackend struct {
	Bild
	name string
}

func (f *fakeBackend) Name() string { return f.name }

func okSource(name string, calls *int32) Source {
	return Source{Name: name, Open: func(context.Context) (Backend, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return &fakeBackend{name: name}, nil
	}}
}

func failSource(name string) Source {
	return Source{Name: name, Open: func(context.Context) (Backend, error) {
		return nil, errors.New("import failed")
	}}
}

func hangSource(name string) Source {
	return Source{Name: name, Open: func(ctx context.Context) (Backend, error) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return &fakeBackend{name: name}, nil
	}}
}

func TestLoaderFallsThrough(t *testing.T) {
	var msgs []string
	var mu sync.Mutex
	l := NewLoader(
		[]Source{failSource("broken"), hangSource("slow"), okSource("good", nil)},
		WithTimeout(20*time.Millisecond),
		WithLogf(func(format string, args ...any) {
			mu.Lock()
			msgs = append(msgs, format)
			mu.Unlock()
		}),
	)
	if l.State() != StateUninitialized {
		t.Fatalf("initial state = %s", l.State())
	}

	b, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Name() != "good" {
		t.Errorf("backend = %q, want good", b.Name())
	}
	if l.State() != StateReady {
		t.Errorf("state = %s, want ready", l.State())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(msgs) < 4 {
		t.Errorf("expected progress messages, got %v", msgs)
	}
}

func TestLoaderSharesAttempt(t *testing.T) {
	var calls int32
	l := NewLoader([]Source{okSource("only", &calls)})

	var wg sync.WaitGroup
	backends := make([]Backend, 8)
	for i := range backends {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b, err := l.Load(context.Background())
			if err != nil {
				t.Errorf("Load: %v", err)
			}
			backends[i] = b
		}(i)
	}
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("source opened %d times, want 1", n)
	}
	for i := 1; i < len(backends); i++ {
		if backends[i] != backends[0] {
			t.Fatal("callers received different backends")
		}
	}
}

func TestLoaderFailureIsMemoised(t *testing.T) {
	var calls int32
	src := Source{Name: "flaky", Open: func(context.Context) (Backend, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}}
	l := NewLoader([]Source{src})

	_, err := l.Load(context.Background())
	if !errors.Is(err, ErrNoBackend) {
		t.Fatalf("Load error = %v, want ErrNoBackend", err)
	}
	if !strings.Contains(err.Error(), "flaky") {
		t.Errorf("error does not name the source: %v", err)
	}
	if l.State() != StateFailed {
		t.Errorf("state = %s, want failed", l.State())
	}

	if _, err := l.Load(context.Background()); !errors.Is(err, ErrNoBackend) {
		t.Errorf("second Load error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("source retried: %d calls", n)
	}
}

func TestLoaderNoSources(t *testing.T) {
	if _, err := NewLoader(nil).Load(context.Background()); !errors.Is(err, ErrNoBackend) {
		t.Errorf("Load error = %v, want ErrNoBackend", err)
	}
}

func TestLoaderCallerCancel(t *testing.T) {
	release := make(chan struct{})
	src := Source{Name: "gated", Open: func(context.Context) (Backend, error) {
		<-release
		return &fakeBackend{name: "gated"}, nil
	}}
	l := NewLoader([]Source{src})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Load(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Load error = %v, want context.Canceled", err)
	}
	if l.State() != StateLoading {
		t.Errorf("state = %s, want loading", l.State())
	}

	close(release)
	b, err := l.Load(context.Background())
	if err != nil || b.Name() != "gated" {
		t.Errorf("Load after release = %v, %v", b, err)
	}
}

func TestSourcesUnregistered(t *testing.T) {
	srcs := Sources("does-not-exist", BildName)
	if len(srcs) != 2 {
		t.Fatalf("got %d sources, want 2", len(srcs))
	}
	if _, err := srcs[0].Open(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("unregistered source error = %v, want ErrUnavailable", err)
	}
	b, err := NewLoader(srcs).Load(context.Background())
	if err != nil || b.Name() != BildName {
		t.Errorf("Load = %v, %v; want the bild backend", b, err)
	}
}

func TestStateString(t *testing.T) {
	if StateReady.String() != "ready" || State(42).String() != "State(42)" {
		t.Errorf("unexpected state names: %s %s", StateReady, State(42))
	}
}

package vision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultLoadTimeout bounds a single source attempt.
const DefaultLoadTimeout = 30 * time.Second

// ErrNoBackend is returned when every source failed to load.
var ErrNoBackend = errors.New("vision: no backend could be loaded")

// State is the lifecycle stage of a Loader.
type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Source is one candidate backend.
type Source struct {
	Name string
	Open OpenFunc
}

// Loader resolves a Backend by trying sources in order. The first call to
// Load starts a single attempt that every caller shares; its outcome, success
// or failure, is kept for the lifetime of the Loader.
type Loader struct {
	sources []Source
	timeout time.Duration
	logf    func(format string, args ...any)

	mu      sync.Mutex
	state   State
	done    chan struct{}
	backend Backend
	err     error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithTimeout bounds each source attempt. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogf receives progress messages while sources are tried.
func WithLogf(fn func(format string, args ...any)) LoaderOption {
	return func(l *Loader) {
		if fn != nil {
			l.logf = fn
		}
	}
}

// NewLoader returns a loader over sources, tried in order.
func NewLoader(sources []Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		sources: sources,
		timeout: DefaultLoadTimeout,
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State reports the current lifecycle stage.
func (l *Loader) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load returns the backend, starting the load on first use. A cancelled ctx
// only abandons this caller's wait; the shared attempt keeps going.
func (l *Loader) Load(ctx context.Context) (Backend, error) {
	l.mu.Lock()
	if l.done == nil {
		l.done = make(chan struct{})
		l.state = StateLoading
		go l.run(l.done)
	}
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backend, l.err
}

func (l *Loader) run(done chan struct{}) {
	var errs []error
	var backend Backend
	for _, src := range l.sources {
		l.logf("loading vision backend %q", src.Name)
		b, err := l.attempt(src)
		if err != nil {
			l.logf("vision backend %q failed: %v", src.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		l.logf("vision backend %q ready", src.Name)
		backend = b
		break
	}

	l.mu.Lock()
	if backend != nil {
		l.backend = backend
		l.state = StateReady
	} else {
		if len(errs) == 0 {
			errs = append(errs, errors.New("no sources configured"))
		}
		l.err = fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
		l.state = StateFailed
	}
	l.mu.Unlock()
	close(done)
}

// attempt opens one source, giving up after the loader timeout. An Open
// call that overruns is left to finish on its own and its result dropped.
func (l *Loader) attempt(src Source) (Backend, error) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	type result struct {
		b   Backend
		err error
	}
	ch := make(chan result, 1)
	go func() {
		b, err := src.Open(ctx)
		ch <- result{b, err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.b == nil {
			return nil, errors.New("source returned no backend")
		}
		return r.b, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("timed out after %s", l.timeout)
	}
}

package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

var (
	// ErrWorkerCrashed is the exit error of a worker that panicked.
	ErrWorkerCrashed = errors.New("detection: worker crashed")

	// ErrWorkerStopped is the exit error of a worker stopped with Stop.
	ErrWorkerStopped = errors.New("detection: worker stopped")
)

const (
	requestQueue = 16
	messageQueue = 64
)

// Worker runs detection requests one at a time on its own goroutine. It is
// reached only through Post and Messages; nothing else is shared with the
// caller.
//
// A panic while handling a request is a crash: the worker exits with
// ErrWorkerCrashed and Messages is closed.
type Worker struct {
	loader *vision.Loader

	requests chan Request
	messages chan Message

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu  sync.Mutex
	err error
}

// NewWorker returns a worker that resolves its vision backend through
// loader. Call Start before posting.
func NewWorker(loader *vision.Loader) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		loader:   loader,
		requests: make(chan Request, requestQueue),
		messages: make(chan Message, messageQueue),
		ctx:      ctx,
		cancel:   cancel,
		exited:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. Later calls do nothing.
func (w *Worker) Start() {
	w.startOnce.Do(func() {
		go w.run()
	})
}

// Post queues req. Ownership of req.Buffer passes to the worker once Post
// returns nil.
func (w *Worker) Post(ctx context.Context, req Request) error {
	select {
	case <-w.exited:
		return w.Err()
	default:
	}
	select {
	case w.requests <- req:
		return nil
	case <-w.exited:
		return w.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Messages returns the stream of worker replies. It is closed when the
// worker exits; Err then reports why.
func (w *Worker) Messages() <-chan Message {
	return w.messages
}

// Err returns the exit error, or nil while the worker runs.
func (w *Worker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Stop cancels the request in progress, stops the worker and waits for it
// to exit. Queued requests are dropped unanswered.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		w.Start()
	})
	<-w.exited
}

func (w *Worker) run() {
	defer close(w.exited)
	defer close(w.messages)
	defer func() {
		if r := recover(); r != nil {
			w.setErr(fmt.Errorf("%w: %v", ErrWorkerCrashed, r))
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			w.setErr(ErrWorkerStopped)
			return
		case req := <-w.requests:
			w.handle(req)
		}
	}
}

func (w *Worker) setErr(err error) {
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *Worker) handle(req Request) {
	// Requests of any other type have no reply.
	if req.Type != TypeDetect {
		return
	}
	w.log(req.ID, "request #%d received (%dx%d)", req.ID, req.Width, req.Height)

	backend, err := w.loader.Load(w.ctx)
	if err != nil {
		w.fail(req.ID, err)
		return
	}

	p := Pipeline{
		Backend: backend,
		Logf: func(format string, args ...any) {
			w.log(req.ID, format, args...)
		},
	}
	frame := Frame{Width: req.Width, Height: req.Height, Pix: req.Buffer}
	rects, err := p.Run(w.ctx, frame, req.Opts)
	if err != nil {
		w.fail(req.ID, err)
		return
	}
	w.post(Message{Type: TypeResult, ID: req.ID, Rects: rects})
}

func (w *Worker) fail(id uint64, err error) {
	w.log(id, "request #%d failed: %v", id, err)
	w.post(Message{Type: TypeError, ID: id, Message: err.Error()})
}

func (w *Worker) log(id uint64, format string, args ...any) {
	w.post(Message{Type: TypeLog, ID: id, Message: fmt.Sprintf(format, args...)})
}

func (w *Worker) post(msg Message) {
	select {
	case w.messages <- msg:
	case <-w.ctx.Done():
	}
}

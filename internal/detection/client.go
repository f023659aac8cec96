package detection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ironsheep/sketch-tools-mcp/internal/geometry"
	"github.com/ironsheep/sketch-tools-mcp/internal/vision"
)

var (
	// ErrClientClosed is returned by requests on, or pending at, a closed
	// client.
	ErrClientClosed = errors.New("detection: client closed")

	// ErrDetectionFailed wraps the error message a worker replied with.
	ErrDetectionFailed = errors.New("detection failed")
)

type reply struct {
	msg Message
	err error
}

// Client multiplexes detection requests over a single Worker.
//
// The worker is started on the first request and reused for the lifetime of
// the client; a crashed worker is not replaced. Each request gets a unique
// ID and waits for the reply carrying it. Log messages from the worker go to
// every registered listener, whichever request produced them.
type Client struct {
	newWorker func() *Worker
	nextID    atomic.Uint64

	mu           sync.Mutex
	worker       *Worker
	done         chan struct{}
	pending      map[uint64]chan reply
	listeners    map[int]func(Message)
	nextListener int
	closed       bool
	err          error
}

// NewClient returns a client whose worker loads its backend through loader.
func NewClient(loader *vision.Loader) *Client {
	return newClient(func() *Worker { return NewWorker(loader) })
}

func newClient(newWorker func() *Worker) *Client {
	return &Client{
		newWorker: newWorker,
		pending:   make(map[uint64]chan reply),
		listeners: make(map[int]func(Message)),
	}
}

// OnLog registers fn to receive every log message. The returned function
// removes it. fn runs on the client's reader goroutine and must not block.
func (c *Client) OnLog(fn func(Message)) (remove func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Detect sends f to the worker and waits for its rectangles.
//
// The pixel buffer is handed over rather than copied: once the request is
// posted f.Pix is set to nil and the caller must not keep using the old
// slice. A cancelled ctx abandons the wait; the worker still finishes the
// request and its reply is discarded.
func (c *Client) Detect(ctx context.Context, f *Frame, opts Options) ([]geometry.Box, error) {
	if f == nil {
		return nil, fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	w, err := c.start()
	if err != nil {
		return nil, err
	}

	id := c.nextID.Add(1)
	ch := make(chan reply, 1)
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	req := Request{
		Type:   TypeDetect,
		ID:     id,
		Width:  f.Width,
		Height: f.Height,
		Buffer: f.Pix,
		Opts:   opts,
	}
	if err := w.Post(ctx, req); err != nil {
		c.forget(id)
		return nil, err
	}
	f.Pix = nil

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if r.msg.Type == TypeError {
			return nil, fmt.Errorf("%w: %s", ErrDetectionFailed, r.msg.Message)
		}
		if r.msg.Rects == nil {
			return []geometry.Box{}, nil
		}
		return r.msg.Rects, nil
	case <-ctx.Done():
		c.forget(id)
		return nil, ctx.Err()
	}
}

// Pending returns the number of requests waiting for a reply.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Close stops the worker and rejects pending requests with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	w, done := c.worker, c.done
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	w.Stop()
	<-done
	return nil
}

func (c *Client) start() (*Worker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClientClosed
	}
	if c.worker == nil {
		c.worker = c.newWorker()
		c.done = make(chan struct{})
		c.worker.Start()
		go c.read(c.worker, c.done)
	}
	return c.worker, nil
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) read(w *Worker, done chan struct{}) {
	defer close(done)
	for msg := range w.Messages() {
		c.dispatch(msg)
	}

	err := w.Err()
	c.mu.Lock()
	if c.closed && errors.Is(err, ErrWorkerStopped) {
		err = ErrClientClosed
	}
	if err == nil {
		err = ErrWorkerStopped
	}
	c.err = err
	pending := c.pending
	c.pending = make(map[uint64]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: err}
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case TypeLog:
		c.mu.Lock()
		fns := make([]func(Message), 0, len(c.listeners))
		for _, fn := range c.listeners {
			fns = append(fns, fn)
		}
		c.mu.Unlock()
		for _, fn := range fns {
			fn(msg)
		}
	case TypeResult, TypeError:
		c.mu.Lock()
		ch, ok := c.pending[msg.ID]
		delete(c.pending, msg.ID)
		c.mu.Unlock()
		if ok {
			ch <- reply{msg: msg}
		}
	}
}

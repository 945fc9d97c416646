package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"webide/sandbox"
	"webide/store"
	"webide/tree"
)

// ErrTimedOut means the worker did not answer a request in time. The
// request may still complete inside the worker; its late response is
// dropped.
var ErrTimedOut = errors.New("request timed out")

type envelope struct {
	id  string
	req Request
}

type response struct {
	id     string
	result any
	err    error
}

// Worker runs every store operation on a single goroutine, which makes
// mutations single-writer and the visible cache transitions
// sequential. Callers talk to it through correlated request/response
// pairs: each request gets a fresh id, the router resolves the pending
// call for that id exactly once, and a response nobody is waiting for
// anymore is logged and dropped.
type Worker struct {
	store  *store.Store
	cache  *tree.Cache
	mirror *sandbox.Mirror

	requests  chan envelope
	responses chan response

	mu      sync.Mutex
	pending map[string]chan response

	timeout time.Duration

	*log.Logger
}

func New(st *store.Store, cache *tree.Cache, mirror *sandbox.Mirror) *Worker {
	return &Worker{
		store:     st,
		cache:     cache,
		mirror:    mirror,
		requests:  make(chan envelope, 16),
		responses: make(chan response, 16),
		pending:   make(map[string]chan response),
		timeout:   requestTimeout,
		Logger:    log.New(os.Stdout, "[worker] ", log.LstdFlags),
	}
}

// Start launches the executor and the response router.
func (w *Worker) Start() {
	go w.loop()
	go w.route()
}

// Stop drains and shuts down the worker. Outstanding requests are
// still answered.
func (w *Worker) Stop() {
	close(w.requests)
}

func (w *Worker) loop() {
	for env := range w.requests {
		result, err := env.req.execute(context.Background(), w)
		w.responses <- response{id: env.id, result: result, err: err}
	}
	close(w.responses)
}

func (w *Worker) route() {
	for resp := range w.responses {
		w.mu.Lock()
		ch, ok := w.pending[resp.id]
		delete(w.pending, resp.id)
		w.mu.Unlock()

		if !ok {
			w.Printf("dropping response for unknown request %s", resp.id)
			continue
		}
		ch <- resp
	}
}

func (w *Worker) drop(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	w.mu.Unlock()
}

// refresh rebuilds the tree cache from the current record set.
func (w *Worker) refresh(ctx context.Context) ([]*tree.Node, error) {
	records, err := w.store.List(ctx)
	if err != nil {
		return nil, err
	}
	w.cache.Rebuild(records)
	return w.cache.Roots(), nil
}

// Do submits a request and blocks for its response, the configured
// timeout, or ctx, whichever comes first.
func (w *Worker) Do(ctx context.Context, req Request) (any, error) {
	id := uuid.NewString()
	ch := make(chan response, 1)

	w.mu.Lock()
	w.pending[id] = ch
	w.mu.Unlock()

	// 计时从提交前开始, 队列被卡死时入队本身也会超时
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()

	select {
	case w.requests <- envelope{id: id, req: req}:
	case <-timer.C:
		w.drop(id)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimedOut, id, w.timeout)
	case <-ctx.Done():
		w.drop(id)
		return nil, ctx.Err()
	}

	select {
	case resp := <-ch:
		return resp.result, resp.err
	case <-timer.C:
		w.drop(id)
		return nil, fmt.Errorf("%w: %s after %s", ErrTimedOut, id, w.timeout)
	case <-ctx.Done():
		w.drop(id)
		return nil, ctx.Err()
	}
}

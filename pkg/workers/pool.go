// Package workers runs request handlers on a fixed set of worker goroutines.
// Each worker owns the handler its factory built, and runs requests one at a
// time, so state captured by that handler is never touched concurrently.
package workers

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/logger"
)

// WorkerIDKey is the user value key under which the serving worker id is
// stored on each request.
const WorkerIDKey = "worker_id"

// Factory builds the handler owned by worker id. It is called once per
// worker, in id order, before any request is served.
type Factory func(id int) (fasthttp.RequestHandler, error)

type job struct {
	ctx  *fasthttp.RequestCtx
	done chan any
}

type worker struct {
	id      int
	handler fasthttp.RequestHandler
	jobs    chan job
	served  atomic.Uint64
}

// Pool is a fixed set of workers.
type Pool struct {
	mu      sync.RWMutex
	closed  bool
	workers []*worker
	wg      sync.WaitGroup
}

// New builds n workers using factory and starts them.
func New(n int, factory Factory) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("workers: pool size must be positive, got %d", n)
	}
	if factory == nil {
		return nil, fmt.Errorf("workers: nil factory")
	}
	p := &Pool{workers: make([]*worker, n)}
	for id := 0; id < n; id++ {
		h, err := factory(id)
		if err != nil {
			return nil, fmt.Errorf("workers: build worker %d: %w", id, err)
		}
		p.workers[id] = &worker{id: id, handler: h, jobs: make(chan job)}
	}
	for _, w := range p.workers {
		p.wg.Add(1)
		go p.loop(w)
	}
	logger.Info("worker_pool_started", "workers", n)
	return p, nil
}

func (p *Pool) loop(w *worker) {
	defer p.wg.Done()
	for j := range w.jobs {
		j.done <- w.run(j.ctx)
	}
}

// run executes one request and returns the recovered panic value, if any.
func (w *worker) run(ctx *fasthttp.RequestCtx) (rec any) {
	defer func() {
		rec = recover()
	}()
	ctx.SetUserValue(WorkerIDKey, w.id)
	w.served.Add(1)
	w.handler(ctx)
	return nil
}

// Handler returns a fasthttp handler that assigns each connection to one
// worker and blocks until that worker has produced the response.
func (p *Pool) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		p.Serve(int(ctx.ConnID()%uint64(len(p.workers))), ctx)
	}
}

// Serve runs ctx on worker id. A panic in the worker's handler is logged and
// answered with 500; the worker keeps serving.
func (p *Pool) Serve(id int, ctx *fasthttp.RequestCtx) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		ctx.Response.Header.Set("Connection", "close")
		ctx.Error("server shutting down", fasthttp.StatusServiceUnavailable)
		return
	}
	if id < 0 || id >= len(p.workers) {
		p.mu.RUnlock()
		panic(fmt.Sprintf("workers: no worker %d in pool of %d", id, len(p.workers)))
	}
	done := make(chan any, 1)
	p.workers[id].jobs <- job{ctx: ctx, done: done}
	rec := <-done
	p.mu.RUnlock()
	if rec != nil {
		logger.Error("worker_panic", "worker", id, "path", string(ctx.Path()), "panic", rec)
		ctx.Response.Reset()
		ctx.Error("internal server error", fasthttp.StatusInternalServerError)
	}
}

// Close stops accepting requests, waits for in-flight ones and stops every
// worker goroutine.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, w := range p.workers {
		close(w.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
	logger.Info("worker_pool_stopped", "workers", len(p.workers))
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stats returns how many requests each worker has served, indexed by id.
func (p *Pool) Stats() []uint64 {
	out := make([]uint64, len(p.workers))
	for i, w := range p.workers {
		out[i] = w.served.Load()
	}
	return out
}

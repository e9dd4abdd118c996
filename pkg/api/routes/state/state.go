// Package state serves the counter endpoints. Shared handlers use state that
// every worker references; Worker handlers use state owned by one worker.
package state

import (
	"github.com/valyala/fasthttp"

	"webdemo/pkg/api/respond"
	"webdemo/pkg/counters"
)

// Shared holds process-wide state. Build it once before the workers start.
type Shared struct {
	AppName   string
	Exclusive *counters.Exclusive
	Global    *counters.Global
}

// Greeting greets with the configured application name.
func (s *Shared) Greeting(ctx *fasthttp.RequestCtx) {
	respond.Textf(ctx, "Hello %s!", s.AppName)
}

// IncrementExclusive bumps the mutex-guarded counter.
func (s *Shared) IncrementExclusive(ctx *fasthttp.RequestCtx) {
	n, err := s.Exclusive.Increment()
	if err != nil {
		respond.CounterError(ctx, err)
		return
	}
	respond.Textf(ctx, "Request number: %d", n)
}

// CurrentExclusive reads the mutex-guarded counter without changing it.
func (s *Shared) CurrentExclusive(ctx *fasthttp.RequestCtx) {
	n, err := s.Exclusive.Value()
	if err != nil {
		respond.CounterError(ctx, err)
		return
	}
	respond.Textf(ctx, "Request number: %d", n)
}

// Worker is the counter state owned by a single worker.
type Worker struct {
	Local    counters.Local
	Combined *counters.Combined
}

// NewWorker builds the per-worker state around the shared global counter.
func NewWorker(global *counters.Global) *Worker {
	return &Worker{Combined: counters.NewCombined(global)}
}

// ShowCount reports the worker-local counter.
func (w *Worker) ShowCount(ctx *fasthttp.RequestCtx) {
	respond.Textf(ctx, "count: %d", w.Local.Get())
}

// AddOne increments the worker-local counter.
func (w *Worker) AddOne(ctx *fasthttp.RequestCtx) {
	respond.Textf(ctx, "count: %d", w.Local.Increment())
}

// ShowCombined reports the global and this worker's local counter.
func (w *Worker) ShowCombined(ctx *fasthttp.RequestCtx) {
	g, l := w.Combined.Counts()
	writeCombined(ctx, g, l)
}

// AddCombined increments the global and this worker's local counter.
func (w *Worker) AddCombined(ctx *fasthttp.RequestCtx) {
	g, l := w.Combined.Increment()
	writeCombined(ctx, g, l)
}

func writeCombined(ctx *fasthttp.RequestCtx, global, local uint64) {
	respond.Textf(ctx, "global_count: %d\nlocal_count: %d", global, local)
}

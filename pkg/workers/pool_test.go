package workers

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

// perWorkerCounter returns a factory whose handlers each own an unsynchronized
// counter; the race detector flags any concurrent use of one worker.
func perWorkerCounter() Factory {
	return func(id int) (fasthttp.RequestHandler, error) {
		n := 0
		return func(ctx *fasthttp.RequestCtx) {
			n++
			fmt.Fprintf(ctx, "worker=%d n=%d", id, n)
		}, nil
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New(0, perWorkerCounter())
	assert.Error(t, err)

	_, err = New(2, nil)
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = New(3, func(id int) (fasthttp.RequestHandler, error) {
		if id == 1 {
			return nil, boom
		}
		return func(*fasthttp.RequestCtx) {}, nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFactoryCalledOncePerWorker(t *testing.T) {
	var ids []int
	p, err := New(4, func(id int) (fasthttp.RequestHandler, error) {
		ids = append(ids, id)
		return func(*fasthttp.RequestCtx) {}, nil
	})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, []int{0, 1, 2, 3}, ids)
	assert.Equal(t, 4, p.Size())
}

func TestServe_WorkerStateIsIsolated(t *testing.T) {
	p, err := New(2, perWorkerCounter())
	require.NoError(t, err)
	defer p.Close()

	var ctx fasthttp.RequestCtx
	p.Serve(0, &ctx)
	p.Serve(0, &ctx)
	ctx.Response.Reset()
	p.Serve(0, &ctx)
	assert.Equal(t, "worker=0 n=3", string(ctx.Response.Body()))

	ctx.Response.Reset()
	p.Serve(1, &ctx)
	assert.Equal(t, "worker=1 n=1", string(ctx.Response.Body()))
	assert.Equal(t, 1, ctx.UserValue(WorkerIDKey))

	assert.Equal(t, []uint64{3, 1}, p.Stats())
}

func TestServe_ConcurrentRequestsRunSequentiallyPerWorker(t *testing.T) {
	const workers, perWorker = 3, 200
	p, err := New(workers, perWorkerCounter())
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	for i := 0; i < workers*perWorker; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var ctx fasthttp.RequestCtx
			p.Serve(i%workers, &ctx)
		}(i)
	}
	wg.Wait()

	for id, n := range p.Stats() {
		if n != perWorker {
			t.Fatalf("worker %d served %d, want %d", id, n, perWorker)
		}
	}
	var ctx fasthttp.RequestCtx
	p.Serve(2, &ctx)
	assert.Equal(t, fmt.Sprintf("worker=2 n=%d", perWorker+1), string(ctx.Response.Body()))
}

func TestServe_PanicAnswers500AndWorkerSurvives(t *testing.T) {
	p, err := New(1, func(id int) (fasthttp.RequestHandler, error) {
		return func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) == "/panic" {
				panic("handler exploded")
			}
			ctx.SetBodyString("fine")
		}, nil
	})
	require.NoError(t, err)
	defer p.Close()

	var bad fasthttp.RequestCtx
	bad.Request.SetRequestURI("/panic")
	assert.NotPanics(t, func() { p.Handler()(&bad) })
	assert.Equal(t, fasthttp.StatusInternalServerError, bad.Response.StatusCode())
	assert.Equal(t, "internal server error", string(bad.Response.Body()))

	var ok fasthttp.RequestCtx
	ok.Request.SetRequestURI("/")
	p.Serve(0, &ok)
	assert.Equal(t, "fine", string(ok.Response.Body()))
}

func TestServe_UnknownWorkerPanics(t *testing.T) {
	p, err := New(1, perWorkerCounter())
	require.NoError(t, err)
	defer p.Close()

	var ctx fasthttp.RequestCtx
	assert.Panics(t, func() { p.Serve(5, &ctx) })
}

func TestClose_RejectsLaterRequests(t *testing.T) {
	p, err := New(2, perWorkerCounter())
	require.NoError(t, err)
	p.Close()
	p.Close()

	var ctx fasthttp.RequestCtx
	p.Handler()(&ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.Equal(t, []uint64{0, 0}, p.Stats())
}

package app

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"webdemo/pkg/config"
)

type testServer struct {
	app    *App
	ln     *fasthttputil.InmemoryListener
	cancel context.CancelFunc
	done   chan error
}

func startTestServer(t *testing.T, workers int) *testServer {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.Workers = workers
	cfg.Security.RateLimit.RPS = 1e6
	cfg.Security.RateLimit.Burst = 1e6
	a, err := New(config.EffectiveConfigResult{Config: cfg, Source: "test"}, "test")
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{app: a, ln: ln, cancel: cancel, done: make(chan error, 1)}
	go func() { ts.done <- a.Serve(ctx, ln) }()
	require.Eventually(t, a.Ready, 2*time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		<-ts.done
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		_ = a.Shutdown(shutdownCtx)
	})
	return ts
}

// conn returns a client pinned to a single keep-alive connection.
func (ts *testServer) conn() *fasthttp.HostClient {
	return &fasthttp.HostClient{
		Addr:     "inmemory",
		MaxConns: 1,
		Dial:     func(string) (net.Conn, error) { return ts.ln.Dial() },
	}
}

func get(t *testing.T, c *fasthttp.HostClient, path string) (int, string) {
	t.Helper()
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI("http://inmemory" + path)
	require.NoError(t, c.Do(req, resp))
	return resp.StatusCode(), string(resp.Body())
}

func TestServe_SequentialExclusiveCounter(t *testing.T) {
	ts := startTestServer(t, 4)
	c := ts.conn()

	for i := 1; i <= 3; i++ {
		code, body := get(t, c, "/mutableState")
		assert.Equal(t, 200, code)
		assert.Equal(t, fmt.Sprintf("Request number: %d", i), body)
	}
}

func TestServe_ConnectionStaysOnOneWorker(t *testing.T) {
	ts := startTestServer(t, 4)
	c := ts.conn()

	for i := 1; i <= 3; i++ {
		_, body := get(t, c, "/count/add")
		assert.Equal(t, fmt.Sprintf("count: %d", i), body)
	}
}

func TestServe_GlobalSharedLocalPerWorker(t *testing.T) {
	ts := startTestServer(t, 4)
	a, b := ts.conn(), ts.conn()

	_, first := get(t, a, "/clone/add")
	assert.Equal(t, "global_count: 1\nlocal_count: 1", first)
	_, second := get(t, b, "/clone/add")
	assert.Equal(t, "global_count: 2\nlocal_count: 1", second)

	_, again := get(t, a, "/clone")
	assert.Equal(t, "global_count: 2\nlocal_count: 1", again)
}

func TestServe_ConcurrentExclusiveIncrements(t *testing.T) {
	const clients, perClient = 8, 25
	ts := startTestServer(t, 4)

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := ts.conn()
			for j := 0; j < perClient; j++ {
				req := fasthttp.AcquireRequest()
				resp := fasthttp.AcquireResponse()
				req.SetRequestURI("http://inmemory/mutableState")
				if err := c.Do(req, resp); err != nil {
					t.Errorf("request failed: %v", err)
				}
				fasthttp.ReleaseRequest(req)
				fasthttp.ReleaseResponse(resp)
			}
		}()
	}
	wg.Wait()

	_, body := get(t, ts.conn(), "/mutableState/current")
	assert.Equal(t, fmt.Sprintf("Request number: %d", clients*perClient), body)

	var total uint64
	for _, n := range ts.app.pool.Stats() {
		total += n
	}
	assert.Equal(t, uint64(clients*perClient+1), total)
}

func TestServe_StreamAndHealth(t *testing.T) {
	ts := startTestServer(t, 2)
	c := ts.conn()

	code, body := get(t, c, "/stream")
	assert.Equal(t, 200, code)
	assert.Equal(t, "test", body)

	code, _ = get(t, c, "/readyz")
	assert.Equal(t, 200, code)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Workers = -2
	_, err := New(config.EffectiveConfigResult{Config: cfg}, "test")
	assert.Error(t, err)

	_, err = New(config.EffectiveConfigResult{}, "test")
	assert.Error(t, err)
}

func TestNew_HonoursWorkersAndRateLimitConfig(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Workers = 7
	cfg.Security.RateLimit.RPS = -1
	a, err := New(config.EffectiveConfigResult{Config: cfg}, "test")
	require.NoError(t, err)
	defer func() { _ = a.Shutdown(context.Background()) }()

	assert.Equal(t, 7, a.pool.Size())
	for i := 0; i < 50; i++ {
		if !a.limiters.Allow("10.0.0.1") {
			t.Fatalf("request %d limited with rate limiting disabled", i)
		}
	}
	assert.Equal(t, 0, a.limiters.Len())
}

func TestShutdown_PoolRejectsAfterClose(t *testing.T) {
	cfg := &config.Config{}
	a, err := New(config.EffectiveConfigResult{Config: cfg}, "test")
	require.NoError(t, err)
	require.NoError(t, a.Shutdown(context.Background()))

	var ctx fasthttp.RequestCtx
	a.Handler()(&ctx)
	assert.Equal(t, fasthttp.StatusServiceUnavailable, ctx.Response.StatusCode())
	assert.False(t, a.Ready())
}

package app

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/valyala/fasthttp"

	"webdemo/internal/reporter"
	"webdemo/pkg/api"
	"webdemo/pkg/api/middleware"
	"webdemo/pkg/api/routes/admin"
	"webdemo/pkg/api/routes/state"
	"webdemo/pkg/config"
	"webdemo/pkg/counters"
	"webdemo/pkg/logger"
	"webdemo/pkg/metrics"
	"webdemo/pkg/workers"
)

// App groups server state and components.
type App struct {
	eff     config.EffectiveConfigResult
	version string
	started time.Time

	exclusive *counters.Exclusive
	global    *counters.Global
	metrics   *metrics.Metrics
	limiters  *middleware.LimiterPool
	pool      *workers.Pool
	reporter  *reporter.Reporter

	srvFast *fasthttp.Server
	ready   atomic.Bool
	state   string
}

// New validates the configuration, builds the shared counters and then the
// worker pool, one router replica per worker. It does not listen; call Run.
func New(eff config.EffectiveConfigResult, version string) (*App, error) {
	if err := validateConfig(&eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	a := &App{
		eff:       eff,
		version:   version,
		started:   time.Now(),
		exclusive: counters.NewExclusive(),
		global:    counters.NewGlobal(),
		metrics:   metrics.New(),
		limiters:  middleware.NewLimiterPool(cfg.Security.RateLimit.RPS, cfg.Security.RateLimit.Burst),
		state:     "initialized",
	}
	if err := a.metrics.TrackCounters(a.exclusive, a.global); err != nil {
		return nil, fmt.Errorf("register counter metrics: %w", err)
	}

	adminHandlers := &admin.Handlers{
		Exclusive: a.exclusive,
		Global:    a.global,
		Started:   a.started,
		IsReady:   a.ready.Load,
	}
	deps := api.Deps{
		Config:   cfg,
		Shared:   &state.Shared{AppName: cfg.App.Name, Exclusive: a.exclusive, Global: a.global},
		Admin:    adminHandlers,
		Metrics:  a.metrics,
		Limiters: a.limiters,
	}

	pool, err := workers.New(cfg.Server.Workers, func(id int) (fasthttp.RequestHandler, error) {
		h := api.WorkerHandler(deps)
		logger.Debug("worker_built", "worker", id)
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("start workers: %w", err)
	}
	a.pool = pool
	if err := a.metrics.TrackWorkers(pool.Size(), pool.Stats); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register worker metrics: %w", err)
	}

	a.reporter = reporter.New(cfg.Reporter, a.exclusive, a.global, pool.Stats)
	adminHandlers.WorkerStats = pool.Stats
	adminHandlers.Report = func() interface{} { return a.reporter.Report() }

	logger.LogConfigSummary("config_server_summary", []string{
		fmt.Sprintf("workers: %d", pool.Size()),
		fmt.Sprintf("max_request_body: %s", humanize.IBytes(uint64(cfg.Server.MaxRequestBodySize))),
		fmt.Sprintf("read_timeout: %s", cfg.Server.ReadTimeout.Duration()),
		fmt.Sprintf("write_timeout: %s", cfg.Server.WriteTimeout.Duration()),
		fmt.Sprintf("idle_timeout: %s", cfg.Server.IdleTimeout.Duration()),
	})
	return a, nil
}

// Handler is the root request handler: it hands each connection to one
// worker.
func (a *App) Handler() fasthttp.RequestHandler {
	return a.pool.Handler()
}

// Run listens on the configured address and serves until ctx is cancelled
// or the server fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.eff.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.eff.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.reporter.Start(ctx); err != nil {
		_ = ln.Close()
		return err
	}

	errCh := a.startHTTP(ln)
	a.ready.Store(true)
	a.state = "running"
	logger.Info("server_listening", "addr", ln.Addr().String(), "workers", a.pool.Size())

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		a.ready.Store(false)
		return err
	}
}

// Ready reports whether the server is accepting traffic.
func (a *App) Ready() bool { return a.ready.Load() }

package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/valyala/fasthttp"

	"webdemo/internal/reporter"
	"webdemo/pkg/api/middleware"
	"webdemo/pkg/logger"
	"webdemo/pkg/workers"
)

// Components are the running parts torn down by ShutdownApp. Nil fields are
// skipped.
type Components struct {
	Server   *fasthttp.Server
	Pool     *workers.Pool
	Reporter *reporter.Reporter
	Limiters *middleware.LimiterPool
}

// ShutdownApp stops accepting connections, drains the worker pool and stops
// background jobs. It returns ctx.Err() if the server does not finish in time.
func ShutdownApp(ctx context.Context, c Components) error {
	logger.Info("shutdown: requested")

	var firstErr error
	// stop accepting new requests and wait for in-flight ones
	if c.Server != nil {
		logger.Info("shutdown: stopping FastHTTP server")
		done := make(chan error, 1)
		go func() { done <- c.Server.Shutdown() }()
		select {
		case err := <-done:
			if err != nil {
				logger.Error("shutdown: fasthttp shutdown error", "error", err)
				firstErr = err
			}
		case <-ctx.Done():
			logger.Error("shutdown: fasthttp shutdown timed out", "error", ctx.Err())
			firstErr = ctx.Err()
		}
	}

	if c.Reporter != nil {
		logger.Info("shutdown: stopping reporter")
		c.Reporter.Stop()
	}

	if c.Pool != nil {
		logger.Info("shutdown: stopping workers")
		c.Pool.Close()
	}

	if c.Limiters != nil {
		c.Limiters.Shutdown()
	}

	logger.Info("shutdown: complete")
	return firstErr
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM. A
// SIGPIPE dumps goroutine stacks before cancelling.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigc)
	}()

	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)
	go func() {
		select {
		case s := <-sigpipe:
			logger.Info("signal_received", "signal", s.String(), "msg", "SIGPIPE - dumping goroutine stacks")
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigpipe)
	}()

	return ctx, cancel
}

// Abort logs a fatal startup error and exits with status 1.
func Abort(msg string, err error) {
	logger.Error("fatal", "msg", msg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	logger.Sync()
	os.Exit(1)
}

package app

import (
	"net"
	"os"
	"time"

	"github.com/valyala/fasthttp"

	"webdemo/pkg/config/banner"
)

// PrintBanner prints the startup banner and build info.
func (a *App) PrintBanner() {
	banner.Print(os.Stdout, a.eff, a.version)
}

// startHTTP builds the fasthttp server around the worker pool and serves ln
// in the background, returning a channel that delivers the serve error.
func (a *App) startHTTP(ln net.Listener) <-chan error {
	cfg := a.eff.Config.Server

	const (
		readBufferSize       = 64 * 1024       // 64 KiB read buffer per connection
		maxKeepaliveDuration = 2 * time.Minute // max duration for keep-alive connection
	)
	a.srvFast = &fasthttp.Server{
		Name:                 a.eff.Config.App.Name,
		Handler:              a.Handler(),
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   int(cfg.MaxRequestBodySize.Int64()),
		ReadTimeout:          cfg.ReadTimeout.Duration(),
		WriteTimeout:         cfg.WriteTimeout.Duration(),
		IdleTimeout:          cfg.IdleTimeout.Duration(),
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srvFast.Serve(ln)
	}()
	return errCh
}

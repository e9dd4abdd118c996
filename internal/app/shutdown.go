package app

import (
	"context"

	"webdemo/pkg/shutdown"
)

func (a *App) Shutdown(ctx context.Context) error {
	a.state = "shutting_down"
	a.ready.Store(false)
	err := shutdown.ShutdownApp(ctx, shutdown.Components{
		Server:   a.srvFast,
		Pool:     a.pool,
		Reporter: a.reporter,
		Limiters: a.limiters,
	})
	if err == nil {
		a.state = "stopped"
	}
	return err
}

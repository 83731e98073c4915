package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

func listen(name string, srv *http.Server) {
	slog.Info(name+" server listening", "address", srv.Addr)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("failed to listen and serve "+name+" server", "error", err)
		os.Exit(1)
	}
}

// Start launches the HTTP and SSE servers and returns a channel closed on a
// termination signal.
func (a *App) Start() <-chan struct{} {
	terminateChan := make(chan struct{})

	go listen("http", a.httpServer)
	go listen("sse", a.sseServer)

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigint)

		select {
		case sig := <-sigint:
			slog.Info("termination signal received", "signal", sig.String())
		case <-a.ctx.Done():
		}

		close(terminateChan)
	}()

	return terminateChan
}

// Stop cancels the app context, which ends the scheduler, queue consumers and
// open desktop streams, then drains both servers and closes resources.
func (a *App) Stop(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}

	var g errgroup.Group
	for name, srv := range map[string]*http.Server{"HTTP Server": a.httpServer, "SSE Server": a.sseServer} {
		g.Go(func() error {
			if err := srv.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to close resources", "name", name, "error", err)
			}
			return nil
		})
	}
	//nolint:errcheck // shutdown errors are logged above
	g.Wait()

	slog.InfoContext(ctx, "waiting for all goroutine to finish")
	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "error from goroutines executions", "error", err)
	}
	slog.InfoContext(ctx, "all goroutines have finished successfully")

	for _, c := range a.closers {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resources", "name", c.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application gracefully shutdown")
}

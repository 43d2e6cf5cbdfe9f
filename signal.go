package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
)

// shutdownContext cancels the returned context on SIGINT/SIGTERM so the
// executor can finish the in-flight backend call and stop between mappings,
// never leaving a half-created mapping behind. Once the context is done the
// handler is unregistered, so a second signal terminates the process through
// the default disposition.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-ctx.Done()
		if parent.Err() == nil {
			logger.Info("stop requested, finishing the in-flight mapping")
		}
		stop()
	}()

	return ctx
}

// Package main is the entry point of the confirmation loop: reconcile
// subscribers and send pending subscribe and unsubscribe confirmations.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fishing-exam-alert/backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	cycle := a.ConfirmationCycle()
	if err := a.Loop(ctx, a.Config.ConfirmationInterval(), cycle.Run); err != nil {
		a.Logger.Error("confirmation loop stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Logger.Info("confirmation loop stopped")
}

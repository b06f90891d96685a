// Package main is the entry point of the exam alert loop: reconcile
// subscribers, scrape exams, match and mail, then sleep.
// Its sole responsibility is wiring; no business logic belongs here.
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

	cycle, err := a.AlertCycle()
	if err != nil {
		a.Logger.Error("startup failed", "error", err)
		a.Close()
		os.Exit(1)
	}

	if err := a.Loop(ctx, a.Config.RunInterval(), cycle.Run); err != nil {
		a.Logger.Error("alert loop stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Logger.Info("alert loop stopped")
}

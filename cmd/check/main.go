// Package main runs a one-shot connectivity check: it reads the
// subscription sheet, sends a test mail and a test subscribe confirmation.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fishing-exam-alert/backend/internal/app"
	"github.com/fishing-exam-alert/backend/internal/service"
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

	if err := check(ctx, a); err != nil {
		a.Logger.Error("check failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Logger.Info("check passed")
}

func check(ctx context.Context, a *app.App) error {
	to := a.Config.TestEmail
	if to == "" {
		to = a.Config.MailFrom
	}
	return service.NewConnectivityCheck(a.Sheet, a.Sender, a.Renderer, a.Logger).Run(ctx, to)
}

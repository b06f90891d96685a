// Package app wires configuration, storage, adapters and services into the
// pieces the binaries under cmd/ run. It holds no business logic.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/api/option"

	"github.com/fishing-exam-alert/backend/internal/alert"
	"github.com/fishing-exam-alert/backend/internal/config"
	"github.com/fishing-exam-alert/backend/internal/handler"
	"github.com/fishing-exam-alert/backend/internal/mail"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
	"github.com/fishing-exam-alert/backend/internal/routing"
	"github.com/fishing-exam-alert/backend/internal/scraper"
	"github.com/fishing-exam-alert/backend/internal/service"
	"github.com/fishing-exam-alert/backend/internal/sheet"
	"github.com/fishing-exam-alert/backend/migrations"
)

// App holds the dependencies shared by every binary.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Pool     *pgxpool.Pool
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Status   *service.Status

	Alerter     *alert.Webhook
	Sender      mail.Sender
	Sheet       sheet.Source
	Renderer    *service.Renderer
	Subscribers repo.SubscriberRepo
	Reconciler  *service.SubscriberService
	Dispatcher  *service.Dispatcher
}

// NewLogger returns a JSON logger on stdout at the given level; unknown
// levels fall back to info.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// New loads the configuration, connects and migrates the database and
// builds the shared adapters. Close releases what it opened.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	logger := NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// New does not open connections immediately; the ping does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	// goose needs database/sql; the pool serves both.
	sqlDB := stdlib.OpenDBFromPool(pool)
	applied, err := migrations.Up(ctx, sqlDB)
	_ = sqlDB.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database migrated", "applied", applied)

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Registry: prometheus.NewRegistry(),
		Status:   service.NewStatus(),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	if err := a.buildAdapters(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	a.Renderer = service.NewRenderer(service.Links{
		ExamURL:        cfg.ExamScrapURL,
		SubscribeURL:   cfg.SubscribeURL,
		UnsubscribeURL: cfg.UnsubscribeURL,
	})
	a.Subscribers = repo.NewSubscriberRepo(pool)
	a.Reconciler = service.NewSubscriberService(a.Subscribers, a.Sheet, logger, a.Metrics)
	a.Dispatcher = service.NewDispatcher(repo.NewNotificationRepo(pool), a.Sender, a.Renderer, logger, a.Metrics)
	return a, nil
}

func (a *App) buildAdapters(ctx context.Context) error {
	cfg := a.Config

	alerter, err := alert.New(cfg.AlertWebhookURL, a.Logger)
	if err != nil {
		return err
	}
	a.Alerter = alerter

	a.Sender, err = mail.New(mail.Config{
		Service:  cfg.MailService,
		From:     cfg.MailFrom,
		ReplyTo:  cfg.MailReplyTo,
		Password: cfg.MailPassword,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
	})
	if err != nil {
		return err
	}

	if cfg.CredentialsFile == "" {
		a.Sheet = sheet.NewCSVSource(cfg.SpreadsheetID, a.Logger)
		return nil
	}
	a.Sheet, err = sheet.NewAPISource(ctx, cfg.SpreadsheetID, cfg.SheetRange, a.Logger,
		option.WithCredentialsFile(cfg.CredentialsFile))
	return err
}

// Close releases the database pool.
func (a *App) Close() {
	a.Pool.Close()
}

// AlertCycle builds the reconcile, ingest, match and notify cycle.
func (a *App) AlertCycle() (*service.AlertCycle, error) {
	scrape, err := scraper.New(a.Config.ExamScrapURL, a.Logger)
	if err != nil {
		return nil, err
	}
	routes, err := routing.New(a.Config.MapsAPIKey)
	if err != nil {
		return nil, err
	}

	resolver := service.NewDistanceResolver(repo.NewDistanceRepo(a.Pool), routes, a.Alerter,
		a.Config.DistanceThreshold, a.Logger, a.Metrics)
	exams := repo.NewExamRepo(a.Pool)

	return service.NewAlertCycle(
		a.Reconciler,
		service.NewExamService(exams, scrape, a.Logger, a.Metrics),
		a.Subscribers,
		service.NewMatcher(exams, resolver, a.Metrics),
		a.Dispatcher,
		a.Alerter,
		a.Logger,
		a.Metrics,
	), nil
}

// ConfirmationCycle builds the subscribe and unsubscribe confirmation cycle.
func (a *App) ConfirmationCycle() *service.ConfirmationCycle {
	return service.NewConfirmationCycle(a.Reconciler, a.Subscribers, a.Dispatcher, a.Alerter, a.Logger, a.Metrics)
}

// Loop runs fn every interval until ctx is cancelled or fn fails, serving
// the status endpoints meanwhile when STATUS_ADDR is set. A status server
// failure is logged at once and stops the loop after the running cycle.
func (a *App) Loop(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverDone := make(chan error, 1)
	if addr := a.Config.StatusAddr; addr != "" {
		router := handler.NewRouter(handler.NewServer(a.Status), a.Registry, a.Logger)
		go func() {
			err := handler.ListenAndServe(ctx, addr, router, a.Logger)
			if err != nil {
				a.Logger.Error("status server failed", "addr", addr, "error", err)
				cancel()
			}
			serverDone <- err
		}()
	} else {
		serverDone <- nil
	}

	a.Logger.Info("loop starting", "interval", interval.String())
	err := service.Repeat(ctx, interval, a.Status, fn)

	cancel()
	serr := <-serverDone
	if err != nil {
		return err
	}
	if serr != nil {
		return fmt.Errorf("app.App.Loop: status server: %w", serr)
	}
	return nil
}

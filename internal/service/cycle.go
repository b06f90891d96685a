package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

const (
	cycleAlert        = "alert"
	cycleConfirmation = "confirmation"
)

// AlertCycle runs one pass of reconcile, ingest, match and notify.
type AlertCycle struct {
	subscribers *SubscriberService
	exams       *ExamService
	store       repo.SubscriberRepo
	matcher     *Matcher
	dispatcher  *Dispatcher
	alerter     Alerter
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewAlertCycle constructs an AlertCycle.
func NewAlertCycle(subscribers *SubscriberService, exams *ExamService, store repo.SubscriberRepo, matcher *Matcher, dispatcher *Dispatcher, alerter Alerter, logger *slog.Logger, m *metrics.Metrics) *AlertCycle {
	return &AlertCycle{
		subscribers: subscribers,
		exams:       exams,
		store:       store,
		matcher:     matcher,
		dispatcher:  dispatcher,
		alerter:     alerter,
		logger:      logger,
		metrics:     m,
	}
}

// Run executes the cycle. Reconciliation and ingestion failures abort it.
// A failure for one subscriber is logged and the others are still served;
// all such failures are returned joined, after a single admin alert.
func (c *AlertCycle) Run(ctx context.Context) (err error) {
	c.metrics.CyclesTotal.WithLabelValues(cycleAlert).Inc()
	defer func() { finishCycle(ctx, cycleAlert, err, c.alerter, c.logger, c.metrics) }()

	if _, err := c.subscribers.Sync(ctx); err != nil {
		return fmt.Errorf("service.AlertCycle.Run: %w", err)
	}
	if _, err := c.exams.Sync(ctx); err != nil {
		return fmt.Errorf("service.AlertCycle.Run: %w", err)
	}

	subs, err := c.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("service.AlertCycle.Run: %w", err)
	}

	var errs []error
	for _, sub := range subs {
		if err := c.notify(ctx, sub); err != nil {
			c.logger.ErrorContext(ctx, "notifying subscriber failed", "email", sub.Email, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sub.Email, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("service.AlertCycle.Run: %d of %d subscribers failed: %w", len(errs), len(subs), errors.Join(errs...))
	}
	return nil
}

func (c *AlertCycle) notify(ctx context.Context, sub domain.Subscriber) error {
	matches, err := c.matcher.Match(ctx, sub, time.Now())
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "matched exams", "email", sub.Email, "matches", len(matches))
	_, err = c.dispatcher.Notify(ctx, sub, matches)
	return err
}

// ConfirmationCycle reconciles subscribers and sends the subscribe and
// unsubscribe confirmations their state calls for.
type ConfirmationCycle struct {
	subscribers *SubscriberService
	store       repo.SubscriberRepo
	dispatcher  *Dispatcher
	alerter     Alerter
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewConfirmationCycle constructs a ConfirmationCycle.
func NewConfirmationCycle(subscribers *SubscriberService, store repo.SubscriberRepo, dispatcher *Dispatcher, alerter Alerter, logger *slog.Logger, m *metrics.Metrics) *ConfirmationCycle {
	return &ConfirmationCycle{
		subscribers: subscribers,
		store:       store,
		dispatcher:  dispatcher,
		alerter:     alerter,
		logger:      logger,
		metrics:     m,
	}
}

// Run executes the cycle with the same isolation rules as AlertCycle.Run.
func (c *ConfirmationCycle) Run(ctx context.Context) (err error) {
	c.metrics.CyclesTotal.WithLabelValues(cycleConfirmation).Inc()
	defer func() { finishCycle(ctx, cycleConfirmation, err, c.alerter, c.logger, c.metrics) }()

	if _, err := c.subscribers.Sync(ctx); err != nil {
		return fmt.Errorf("service.ConfirmationCycle.Run: %w", err)
	}

	subs, err := c.store.List(ctx)
	if err != nil {
		return fmt.Errorf("service.ConfirmationCycle.Run: %w", err)
	}

	var errs []error
	for _, sub := range subs {
		if err := c.confirm(ctx, sub); err != nil {
			c.logger.ErrorContext(ctx, "confirming subscriber failed", "email", sub.Email, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sub.Email, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("service.ConfirmationCycle.Run: %d of %d subscribers failed: %w", len(errs), len(subs), errors.Join(errs...))
	}
	return nil
}

func (c *ConfirmationCycle) confirm(ctx context.Context, sub domain.Subscriber) error {
	state, err := c.dispatcher.State(ctx, sub)
	if err != nil {
		return err
	}
	switch state {
	case domain.StateUnconfirmed:
		c.logger.InfoContext(ctx, "sending subscribe confirmation", "email", sub.Email)
		_, err = c.dispatcher.SendSubscribeConfirmation(ctx, sub, FiltersFor(sub))
	case domain.StateUnsubscribePending:
		c.logger.InfoContext(ctx, "sending unsubscribe confirmation", "email", sub.Email)
		_, err = c.dispatcher.SendUnsubscribeConfirmation(ctx, sub)
	}
	return err
}

func finishCycle(ctx context.Context, name string, err error, alerter Alerter, logger *slog.Logger, m *metrics.Metrics) {
	if err == nil {
		logger.InfoContext(ctx, "cycle finished", "cycle", name)
		return
	}
	m.CyclesFailed.WithLabelValues(name).Inc()
	logger.ErrorContext(ctx, "cycle failed", "cycle", name, "error", err)
	alerter.Alert(ctx, fmt.Sprintf("Fischereiprüfungs Alarm: %s cycle failed: %v", name, err))
}

// Status records the outcome of the most recent cycle for the status server.
// It is safe for concurrent use.
type Status struct {
	mu       sync.RWMutex
	snapshot StatusSnapshot
}

// StatusSnapshot is a point-in-time copy of a Status.
type StatusSnapshot struct {
	Cycles     int
	LastStart  time.Time
	LastFinish time.Time
	LastError  string
}

// NewStatus returns an empty Status.
func NewStatus() *Status {
	return &Status{}
}

// Start marks the beginning of a cycle.
func (s *Status) Start(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Cycles++
	s.snapshot.LastStart = t
}

// Finish marks the end of a cycle; a nil err clears the last error.
func (s *Status) Finish(t time.Time, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.LastFinish = t
	s.snapshot.LastError = ""
	if err != nil {
		s.snapshot.LastError = err.Error()
	}
}

// Snapshot returns a copy of the current state.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Repeat runs fn, then sleeps interval, until fn fails or ctx is cancelled.
// Cancellation is only observed between runs: fn gets a context that is not
// cancelled with ctx, so an in-flight cycle always runs to completion.
// Returns nil on cancellation and fn's error otherwise.
func Repeat(ctx context.Context, interval time.Duration, status *Status, fn func(context.Context) error) error {
	runCtx := context.WithoutCancel(ctx)
	for {
		status.Start(time.Now())
		err := fn(runCtx)
		status.Finish(time.Now(), err)
		if err != nil {
			return err
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

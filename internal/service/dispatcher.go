package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fishing-exam-alert/backend/internal/domain"
	"github.com/fishing-exam-alert/backend/internal/metrics"
	"github.com/fishing-exam-alert/backend/internal/repo"
)

// MailSender hands a rendered message to a mail transport.
type MailSender interface {
	Send(ctx context.Context, msg domain.Message) error
}

// Dispatcher sends mails to subscribers and records them in the
// notification ledger. A subscriber never receives the same body twice in a
// row; the comparison is against the newest ledger entry of any category.
type Dispatcher struct {
	ledger   repo.NotificationRepo
	sender   MailSender
	renderer *Renderer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(ledger repo.NotificationRepo, sender MailSender, renderer *Renderer, logger *slog.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{ledger: ledger, sender: sender, renderer: renderer, logger: logger, metrics: m}
}

// Notify mails the matches to the subscriber. Nothing is sent for an empty
// match list. sent is false when the mail was suppressed as a duplicate.
func (d *Dispatcher) Notify(ctx context.Context, sub domain.Subscriber, matches []domain.Match) (sent bool, err error) {
	if len(matches) == 0 {
		return false, nil
	}
	msg, err := d.renderer.NotificationMessage(sub, matches)
	if err != nil {
		return false, fmt.Errorf("service.Dispatcher.Notify: %w", err)
	}
	sent, err = d.send(ctx, sub, domain.CategoryNotification, msg)
	if err != nil {
		return sent, fmt.Errorf("service.Dispatcher.Notify: %w", err)
	}
	return sent, nil
}

// SendSubscribeConfirmation mails the preference summary to a new or
// updated subscriber.
func (d *Dispatcher) SendSubscribeConfirmation(ctx context.Context, sub domain.Subscriber, filters []Filter) (sent bool, err error) {
	msg, err := d.renderer.SubscribeMessage(sub, filters)
	if err != nil {
		return false, fmt.Errorf("service.Dispatcher.SendSubscribeConfirmation: %w", err)
	}
	sent, err = d.send(ctx, sub, domain.CategorySubscribe, msg)
	if err != nil {
		return sent, fmt.Errorf("service.Dispatcher.SendSubscribeConfirmation: %w", err)
	}
	return sent, nil
}

// SendUnsubscribeConfirmation tells the subscriber they are unsubscribed.
func (d *Dispatcher) SendUnsubscribeConfirmation(ctx context.Context, sub domain.Subscriber) (sent bool, err error) {
	msg, err := d.renderer.UnsubscribeMessage(sub)
	if err != nil {
		return false, fmt.Errorf("service.Dispatcher.SendUnsubscribeConfirmation: %w", err)
	}
	sent, err = d.send(ctx, sub, domain.CategoryUnsubscribe, msg)
	if err != nil {
		return sent, fmt.Errorf("service.Dispatcher.SendUnsubscribeConfirmation: %w", err)
	}
	return sent, nil
}

// State derives the subscription state of sub from the ledger.
func (d *Dispatcher) State(ctx context.Context, sub domain.Subscriber) (domain.SubscriptionState, error) {
	lastSub, err := d.latestByCategory(ctx, sub, domain.CategorySubscribe)
	if err != nil {
		return 0, fmt.Errorf("service.Dispatcher.State: %w", err)
	}
	lastUnsub, err := d.latestByCategory(ctx, sub, domain.CategoryUnsubscribe)
	if err != nil {
		return 0, fmt.Errorf("service.Dispatcher.State: %w", err)
	}
	msg, err := d.renderer.SubscribeMessage(sub, FiltersFor(sub))
	if err != nil {
		return 0, fmt.Errorf("service.Dispatcher.State: %w", err)
	}
	return domain.DeriveState(sub.Active, lastSub, lastUnsub, msg.Text), nil
}

func (d *Dispatcher) latestByCategory(ctx context.Context, sub domain.Subscriber, c domain.NotificationCategory) (*domain.NotificationLogEntry, error) {
	e, err := d.ledger.LatestByCategory(ctx, sub.ID, c)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// send enforces the dedup rule, then transports the mail and appends the
// ledger entry only after the transport accepted it.
func (d *Dispatcher) send(ctx context.Context, sub domain.Subscriber, c domain.NotificationCategory, msg domain.Message) (bool, error) {
	last, err := d.ledger.Latest(ctx, sub.ID)
	switch {
	case err == nil && last.Content == msg.Text:
		d.logger.InfoContext(ctx, "skip sending mail because it was already sent",
			"email", sub.Email, "category", string(c))
		d.metrics.MailsSuppressed.WithLabelValues(string(c)).Inc()
		return false, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		return false, fmt.Errorf("send to %s: %w", sub.Email, err)
	}
	d.metrics.MailsSent.WithLabelValues(string(c)).Inc()

	if _, err := d.ledger.Append(ctx, domain.NotificationLogEntry{
		SubscriberID: sub.ID,
		Category:     c,
		Content:      msg.Text,
	}); err != nil {
		return true, fmt.Errorf("record %s mail to %s: %w", c, sub.Email, err)
	}
	d.logger.InfoContext(ctx, "mail sent", "email", sub.Email, "category", string(c))
	return true, nil
}

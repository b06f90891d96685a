package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// RowCounter reports how many rows the subscription sheet holds.
type RowCounter interface {
	Len(ctx context.Context) (int, error)
}

// ConnectivityCheck exercises the spreadsheet and the mail transport end to
// end. Its mails bypass the notification ledger, so running it never changes
// a subscriber's state or dedup history.
type ConnectivityCheck struct {
	sheet    RowCounter
	sender   MailSender
	renderer *Renderer
	logger   *slog.Logger
}

// NewConnectivityCheck constructs a ConnectivityCheck.
func NewConnectivityCheck(sheet RowCounter, sender MailSender, renderer *Renderer, logger *slog.Logger) *ConnectivityCheck {
	return &ConnectivityCheck{sheet: sheet, sender: sender, renderer: renderer, logger: logger}
}

// checkFilters are the sample preferences shown in the test confirmation.
var checkFilters = []Filter{
	{Name: "Teilnehmer", Value: string(domain.StatusOpen)},
	{Name: "Regierungsbezirk", Value: string(domain.Oberbayern)},
}

// Run reads the sheet size, then mails a plain test message and a sample
// subscribe confirmation to the given address.
func (c *ConnectivityCheck) Run(ctx context.Context, to string) error {
	rows, err := c.sheet.Len(ctx)
	if err != nil {
		return fmt.Errorf("service.ConnectivityCheck.Run: read subscription sheet: %w", err)
	}
	c.logger.InfoContext(ctx, "subscription sheet readable", "rows", rows)

	err = c.sender.Send(ctx, domain.Message{
		To:      to,
		Subject: fmt.Sprintf("This is a test! GSheet has %d rows!", rows),
		Text:    "Test",
	})
	if err != nil {
		return fmt.Errorf("service.ConnectivityCheck.Run: send test mail: %w", err)
	}
	c.logger.InfoContext(ctx, "test mail sent", "to", to)

	msg, err := c.renderer.SubscribeMessage(domain.Subscriber{Email: to}, checkFilters)
	if err != nil {
		return fmt.Errorf("service.ConnectivityCheck.Run: %w", err)
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("service.ConnectivityCheck.Run: send test confirmation: %w", err)
	}
	c.logger.InfoContext(ctx, "test confirmation sent", "to", to)
	return nil
}

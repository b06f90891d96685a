// Package mail delivers rendered messages over SMTP or the MailerSend API.
package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// Supported values of Config.Service.
const (
	ServiceGMX        = "GMX"
	ServiceSMTP       = "smtp"
	ServiceMailerSend = "mailersend"
)

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg domain.Message) error
}

// Config selects and configures a transport. Password is the SMTP password
// or the MailerSend API token.
type Config struct {
	Service  string
	From     string
	ReplyTo  string
	Password string
	SMTPHost string
	SMTPPort int
}

// New returns the Sender selected by cfg.Service.
func New(cfg Config) (Sender, error) {
	switch {
	case strings.EqualFold(cfg.Service, ServiceGMX), strings.EqualFold(cfg.Service, ServiceSMTP):
		return NewSMTPSender(cfg)
	case strings.EqualFold(cfg.Service, ServiceMailerSend):
		return NewMailerSendSender(cfg), nil
	default:
		return nil, fmt.Errorf("mail.New: unknown mail service %q", cfg.Service)
	}
}

package mail

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

const smtpTimeout = 30 * time.Second

// SMTPSender sends over SMTP with mandatory STARTTLS and PLAIN auth. The
// From address doubles as the login name.
type SMTPSender struct {
	client  *gomail.Client
	from    string
	replyTo string
}

// NewSMTPSender builds an SMTPSender. No connection is opened until Send.
func NewSMTPSender(cfg Config) (*SMTPSender, error) {
	client, err := gomail.NewClient(cfg.SMTPHost,
		gomail.WithPort(cfg.SMTPPort),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.From),
		gomail.WithPassword(cfg.Password),
		gomail.WithTimeout(smtpTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("mail.NewSMTPSender: %w", err)
	}
	return &SMTPSender{client: client, from: cfg.From, replyTo: cfg.ReplyTo}, nil
}

// Send delivers msg in a fresh SMTP session.
func (s *SMTPSender) Send(ctx context.Context, msg domain.Message) error {
	m, err := s.build(msg)
	if err != nil {
		return fmt.Errorf("mail.SMTPSender.Send: %w", err)
	}
	if err := s.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("mail.SMTPSender.Send: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg domain.Message) (*gomail.Msg, error) {
	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if s.replyTo != "" {
		if err := m.ReplyTo(s.replyTo); err != nil {
			return nil, fmt.Errorf("reply-to: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

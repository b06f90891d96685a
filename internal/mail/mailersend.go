package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

// MailerSendEndpoint is the MailerSend email API.
const MailerSendEndpoint = "https://api.mailersend.com/v1/email"

type mailerSendAddress struct {
	Email string `json:"email"`
}

type mailerSendEmail struct {
	From    mailerSendAddress   `json:"from"`
	To      []mailerSendAddress `json:"to"`
	ReplyTo *mailerSendAddress  `json:"reply_to,omitempty"`
	Subject string              `json:"subject"`
	Text    string              `json:"text"`
	HTML    string              `json:"html,omitempty"`
}

// MailerSendSender posts messages to the MailerSend API.
type MailerSendSender struct {
	client  *http.Client
	token   string
	from    string
	replyTo string
}

// NewMailerSendSender builds a MailerSendSender; cfg.Password is the API token.
func NewMailerSendSender(cfg Config) *MailerSendSender {
	return &MailerSendSender{
		client:  &http.Client{Timeout: 30 * time.Second},
		token:   cfg.Password,
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
	}
}

// Send delivers msg. Any non-2xx answer is an error carrying the response body.
func (s *MailerSendSender) Send(ctx context.Context, msg domain.Message) error {
	payload := mailerSendEmail{
		From:    mailerSendAddress{Email: s.from},
		To:      []mailerSendAddress{{Email: msg.To}},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	}
	if s.replyTo != "" {
		payload.ReplyTo = &mailerSendAddress{Email: s.replyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mail.MailerSendSender.Send: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, MailerSendEndpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail.MailerSendSender.Send: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail.MailerSendSender.Send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("mail.MailerSendSender.Send: status %d: %s", resp.StatusCode, bytes.TrimSpace(b))
	}
	return nil
}

// Package alert posts administrator messages to a chat webhook.
package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/url"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

const sendTimeout = 10 * time.Second

const googleChatHost = "chat.googleapis.com"

// Webhook delivers alerts through a single shoutrrr service URL.
type Webhook struct {
	sender *router.ServiceRouter
	logger *slog.Logger
}

// New builds a Webhook for webhookURL. Google Chat incoming webhooks are
// sent with the googlechat service; any other URL receives a JSON body of
// the form {"text": "..."}.
func New(webhookURL string, logger *slog.Logger) (*Webhook, error) {
	serviceURL, err := ServiceURL(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("alert.New: %w", err)
	}

	sender, err := shoutrrr.CreateSender(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("alert.New: %w", err)
	}
	sender.Timeout = sendTimeout
	sender.SetLogger(log.New(io.Discard, "", 0))

	return &Webhook{sender: sender, logger: logger}, nil
}

// Alert sends text. Delivery problems are logged, never returned.
func (w *Webhook) Alert(_ context.Context, text string) {
	errs := w.sender.Send(text, &stypes.Params{})
	if err := errors.Join(errs...); err != nil {
		w.logger.Error("admin alert failed", "error", err)
		return
	}
	w.logger.Info("admin alert sent")
}

// ServiceURL maps a plain webhook URL to a shoutrrr service URL.
func ServiceURL(webhookURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(webhookURL))
	if err != nil {
		return "", fmt.Errorf("parse webhook url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("webhook url %q has no host", webhookURL)
	}

	switch u.Scheme {
	case "https":
		if u.Host == googleChatHost {
			u.Scheme = "googlechat"
			return u.String(), nil
		}
	case "http":
	default:
		return "", fmt.Errorf("unsupported webhook scheme %q", u.Scheme)
	}

	q := u.Query()
	q.Set("template", "json")
	q.Set("messagekey", "text")
	if u.Scheme == "http" {
		q.Set("disabletls", "yes")
	}
	u.Scheme = "generic"
	u.RawQuery = q.Encode()
	return u.String(), nil
}

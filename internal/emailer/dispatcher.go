package emailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/speaklab-io/speaklab/internal/config"
	"github.com/speaklab-io/speaklab/internal/domain"
)

// transport is one delivery strategy in the ordered chain.
type transport interface {
	name() string
	send(ctx context.Context, msg *message) (messageID string, err error)
}

// Dispatcher renders messages and tries the configured transports in order
// until one succeeds: SMTP when fully configured, then SendGrid as the one
// fallback attempt. There are no further retries.
type Dispatcher struct {
	cfg *config.Manager

	// buildChain assembles the transport chain for the current settings.
	// Tests swap it for fake transports.
	buildChain func(config.EmailConfig) []transport
}

// NewDispatcher creates an email dispatcher reading provider settings from
// the config manager at send time.
func NewDispatcher(cfg *config.Manager) *Dispatcher {
	return &Dispatcher{cfg: cfg, buildChain: defaultChain}
}

// defaultChain orders the configured providers: direct SMTP first, SendGrid
// as the single fallback.
func defaultChain(email config.EmailConfig) []transport {
	var chain []transport
	if email.SMTPConfigured() {
		chain = append(chain, &smtpTransport{cfg: email})
	}
	if email.SendGridConfigured() {
		chain = append(chain, &sendgridTransport{cfg: email})
	}
	return chain
}

// Send delivers one email. It fails with domain.ErrUnavailable when no
// provider is configured, domain.ErrInvalidInput for malformed attachments,
// and domain.ErrDelivery when the transport chain is exhausted.
func (d *Dispatcher) Send(ctx context.Context, req Request) (*Response, error) {
	email := d.cfg.Current().Email

	if !email.Configured() {
		missing := email.MissingFields()
		slog.Warn("Email configuration incomplete", "missing", missing)
		return nil, fmt.Errorf("%w: email service is not configured: missing %s",
			domain.ErrUnavailable, strings.Join(missing, ", "))
	}

	msg, err := buildMessage(req, email.DefaultSender)
	if err != nil {
		return nil, err
	}

	chain := d.buildChain(email)

	slog.Info("Sending email", "to", req.To, "subject", req.Subject,
		"attachments", len(req.Attachments), "transports", len(chain))

	var lastErr error
	for _, t := range chain {
		messageID, err := t.send(ctx, msg)
		if err != nil {
			slog.Warn("Email transport failed", "transport", t.name(), "to", req.To, "error", err)
			lastErr = err
			continue
		}
		if messageID == "" {
			messageID = fmt.Sprintf("<%s@speaklab>", uuid.NewString())
		}
		slog.Info("Email sent", "transport", t.name(), "to", req.To, "message_id", messageID)
		return &Response{Status: "sent", MessageID: messageID}, nil
	}

	return nil, fmt.Errorf("%w: failed to send email: %v", domain.ErrDelivery, lastErr)
}

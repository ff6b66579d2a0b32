package emailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/speaklab-io/speaklab/internal/config"
)

// sendgridTransport delivers through the SendGrid HTTP API. Used directly
// when SMTP is not configured, or as the single fallback after an SMTP
// failure.
type sendgridTransport struct {
	cfg config.EmailConfig
}

func (t *sendgridTransport) name() string { return "sendgrid" }

func (t *sendgridTransport) send(ctx context.Context, msg *message) (string, error) {
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", msg.from))
	m.Subject = msg.subject

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", msg.to))
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.textBody))
	if msg.htmlBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.htmlBody))
	}

	for _, att := range msg.attachments {
		a := sgmail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.content))
		a.SetType(att.contentType)
		a.SetFilename(att.filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}

	client := sendgrid.NewSendClient(t.cfg.SendGridAPIKey)
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 && ids[0] != "" {
		return ids[0], nil
	}
	return "", nil
}

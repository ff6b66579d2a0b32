package emailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/speaklab-io/speaklab/internal/config"
	mail "github.com/wneessen/go-mail"
)

// smtpTransport delivers through a direct SMTP connection: implicit TLS on
// port 465, otherwise a plaintext connect upgraded with STARTTLS.
type smtpTransport struct {
	cfg config.EmailConfig
}

func (t *smtpTransport) name() string { return "smtp" }

func (t *smtpTransport) send(ctx context.Context, msg *message) (string, error) {
	m := mail.NewMsg()
	if err := m.From(msg.from); err != nil {
		return "", fmt.Errorf("set sender: %w", err)
	}
	if err := m.To(msg.to); err != nil {
		return "", fmt.Errorf("set recipient: %w", err)
	}
	m.Subject(msg.subject)
	m.SetBodyString(mail.TypeTextPlain, msg.textBody)
	if msg.htmlBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.htmlBody)
	}
	for _, att := range msg.attachments {
		if err := m.AttachReader(att.filename, bytes.NewReader(att.content),
			mail.WithFileContentType(mail.ContentType(att.contentType))); err != nil {
			return "", fmt.Errorf("attach %s: %w", att.filename, err)
		}
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), t.cfg.SMTPHost)
	m.SetMessageIDWithValue(messageID)

	opts := []mail.Option{
		mail.WithPort(t.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(t.cfg.SMTPUsername),
		mail.WithPassword(t.cfg.SMTPPassword),
	}
	if t.cfg.SMTPPort == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(t.cfg.SMTPHost, opts...)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}
	return messageID, nil
}

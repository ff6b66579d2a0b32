// Package emailer renders report emails and delivers them through a chain of
// transports: direct SMTP first, the transactional-email API as fallback.
package emailer

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/speaklab-io/speaklab/internal/domain"
)

// Attachment is one file to attach, carried as base64 over the API.
// Filenames act as the dedup key within a single send; callers ensure
// uniqueness before invoking Send.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"`
}

// Request is a single email delivery request.
type Request struct {
	To          string       `json:"to"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Links       []string     `json:"links,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	SessionID   string       `json:"session_id,omitempty"`
}

// Response reports a completed delivery.
type Response struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
}

// message is the provider-neutral rendered form handed to transports.
type message struct {
	from        string
	to          string
	subject     string
	textBody    string
	htmlBody    string
	attachments []decodedAttachment
}

type decodedAttachment struct {
	filename    string
	contentType string
	content     []byte
}

// buildMessage assembles the rendered message: plain-text body always, an
// HTML alternative only when links are present, attachments decoded and
// validated.
func buildMessage(req Request, sender string) (*message, error) {
	msg := &message{
		from:     sender,
		to:       req.To,
		subject:  req.Subject,
		textBody: req.Body,
	}

	if len(req.Links) > 0 {
		var b strings.Builder
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(req.Body))
		b.WriteString("</p><ul>")
		for _, link := range req.Links {
			escaped := html.EscapeString(link)
			fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`, escaped, escaped)
		}
		b.WriteString("</ul>")
		msg.htmlBody = b.String()
	}

	for _, att := range req.Attachments {
		content, err := base64.StdEncoding.Strict().DecodeString(att.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid attachment provided: %s", domain.ErrInvalidInput, att.Filename)
		}
		msg.attachments = append(msg.attachments, decodedAttachment{
			filename:    att.Filename,
			contentType: normalizeContentType(att.ContentType),
			content:     content,
		})
	}

	return msg, nil
}

// normalizeContentType validates a main/sub content type pair, defaulting to
// application/octet-stream when malformed.
func normalizeContentType(ct string) string {
	main, sub, ok := strings.Cut(ct, "/")
	if !ok || main == "" || sub == "" {
		return "application/octet-stream"
	}
	return main + "/" + sub
}

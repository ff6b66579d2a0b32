package api

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/speaklab-io/speaklab/internal/emailer"
)

func (h *Handler) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req emailer.Request
	if !decodeJSON(w, r, &req) {
		return
	}

	slog.Info("Preparing report email", "to", req.To, "session_id", req.SessionID)

	if req.SessionID != "" {
		sess, err := h.sessions.Get(req.SessionID)
		if err != nil {
			DomainError(w, err)
			return
		}

		if path := sess.AudioPath(); path != "" {
			req.Attachments = appendFileAttachment(req.Attachments, path, "audio/mpeg", req.SessionID)
		} else {
			slog.Info("No audio recording to attach", "session_id", req.SessionID)
		}

		if record := h.reports.LatestForSession(req.SessionID); record != nil {
			req.Attachments = appendFileAttachment(req.Attachments, record.Path, "text/html", req.SessionID)
		} else {
			slog.Info("No persisted report to attach", "session_id", req.SessionID)
		}
	}

	resp, err := h.mailer.Send(r.Context(), req)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// appendFileAttachment reads a session artifact from disk and appends it as
// a base64 attachment, skipping files already attached under the same name.
func appendFileAttachment(attachments []emailer.Attachment, path, contentType, sessionID string) []emailer.Attachment {
	filename := filepath.Base(path)
	for _, att := range attachments {
		if att.Filename == filename {
			slog.Info("File already attached, skipping", "filename", filename, "session_id", sessionID)
			return attachments
		}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Unable to attach session file", "path", path, "session_id", sessionID, "error", err)
		return attachments
	}

	slog.Info("Attached session file", "filename", filename, "bytes", len(content), "session_id", sessionID)
	return append(attachments, emailer.Attachment{
		Filename:    filename,
		ContentType: contentType,
		Data:        base64.StdEncoding.EncodeToString(content),
	})
}

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/session"
)

type consentPayload struct {
	Granted   bool       `json:"granted"`
	GrantedAt *time.Time `json:"granted_at,omitempty"`
}

type sessionStartRequest struct {
	Mode            string         `json:"mode"`
	DurationMinutes int            `json:"duration_minutes"`
	UserName        string         `json:"user_name,omitempty"`
	UserEmail       string         `json:"user_email,omitempty"`
	Consent         consentPayload `json:"consent"`
}

type sessionStartResponse struct {
	SessionID         string    `json:"session_id"`
	StartedAt         time.Time `json:"started_at"`
	AssistantGreeting string    `json:"assistant_greeting"`
	Mode              string    `json:"mode"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !req.Consent.Granted {
		Error(w, http.StatusForbidden, "participant consent is required to start a session")
		return
	}
	consentAt := time.Now()
	if req.Consent.GrantedAt != nil {
		consentAt = *req.Consent.GrantedAt
	}

	sess := h.sessions.Create(session.CreateParams{
		Mode:             req.Mode,
		DurationMinutes:  req.DurationMinutes,
		UserName:         req.UserName,
		UserEmail:        req.UserEmail,
		ConsentGranted:   true,
		ConsentGrantedAt: consentAt,
	})

	greeting := h.planner.NextPrompt(nil, sess)
	sess.AddMessage(domain.RoleAssistant, greeting)

	slog.Info("Session started", "session_id", sess.ID, "mode", sess.Mode)
	JSON(w, http.StatusOK, sessionStartResponse{
		SessionID:         sess.ID,
		StartedAt:         sess.StartedAt,
		AssistantGreeting: greeting,
		Mode:              sess.Mode,
	})
}

type chatRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

type chatResponse struct {
	AssistantMessage string `json:"assistant_message"`
	TurnsCompleted   int    `json:"turns_completed"`
	Mode             string `json:"mode"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		DomainError(w, err)
		return
	}
	if !sess.ConsentGranted {
		Error(w, http.StatusForbidden, "participant consent is required for this session")
		return
	}

	// The whole exchange holds the session's turn lock so concurrent chat
	// requests on one session cannot interleave appends and counting.
	sess.Lock()
	sess.AddMessage(domain.RoleUser, req.UserMessage)
	reply := h.planner.NextPrompt(sess.Transcript(), sess)
	sess.AddMessage(domain.RoleAssistant, reply)
	turns := sess.IncrementTurn()
	sess.Unlock()

	JSON(w, http.StatusOK, chatResponse{
		AssistantMessage: reply,
		TurnsCompleted:   turns,
		Mode:             sess.Mode,
	})
}

type sessionFinishRequest struct {
	SessionID string `json:"session_id"`
}

type sessionFinishResponse struct {
	SessionID       string  `json:"session_id"`
	Summary         string  `json:"summary"`
	WordCount       int     `json:"word_count"`
	DurationSeconds float64 `json:"duration_seconds"`
}

func (h *Handler) handleFinishSession(w http.ResponseWriter, r *http.Request) {
	var req sessionFinishRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		DomainError(w, err)
		return
	}
	if !sess.ConsentGranted {
		Error(w, http.StatusForbidden, "participant consent is required for this session")
		return
	}

	sess.Finish()
	h.archiveSession(r.Context(), sess)

	JSON(w, http.StatusOK, sessionFinishResponse{
		SessionID:       sess.ID,
		Summary:         "Conversation completed. Awaiting evaluation.",
		WordCount:       sess.WordCount(),
		DurationSeconds: sess.DurationSeconds(),
	})
}

// archiveSession writes the finished session to the archive best-effort;
// failures are logged and never surfaced to the participant.
func (h *Handler) archiveSession(ctx context.Context, sess *domain.Session) {
	if h.archive == nil || !h.cfg.Current().StoreFinished {
		return
	}
	if err := h.archive.SaveSession(ctx, sess); err != nil {
		slog.Warn("Failed to archive session", "session_id", sess.ID, "error", err)
	}
}

type audioUploadRequest struct {
	SessionID   string `json:"session_id"`
	MimeType    string `json:"mime_type,omitempty"`
	AudioBase64 string `json:"audio_base64"`
}

type audioUploadResponse struct {
	Filename    string `json:"filename"`
	StoredPath  string `json:"stored_path"`
	ContentType string `json:"content_type"`
}

func (h *Handler) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	var req audioUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess, err := h.sessions.Get(req.SessionID)
	if err != nil {
		DomainError(w, err)
		return
	}

	filename, path, err := h.audio.SaveRecording(sess, req.AudioBase64)
	if err != nil {
		DomainError(w, err)
		return
	}

	JSON(w, http.StatusOK, audioUploadResponse{
		Filename:    filename,
		StoredPath:  path,
		ContentType: "audio/mpeg",
	})
}

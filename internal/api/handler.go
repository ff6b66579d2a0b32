// Package api provides HTTP handlers for the assessment API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/speaklab-io/speaklab/internal/audio"
	"github.com/speaklab-io/speaklab/internal/auth"
	"github.com/speaklab-io/speaklab/internal/config"
	"github.com/speaklab-io/speaklab/internal/conversation"
	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/emailer"
	"github.com/speaklab-io/speaklab/internal/evaluation"
	"github.com/speaklab-io/speaklab/internal/report"
	"github.com/speaklab-io/speaklab/internal/session"
	"github.com/speaklab-io/speaklab/internal/store"
)

// maxRequestBodySize caps request bodies; audio uploads arrive base64-coded
// inside JSON, so the limit is generous.
const maxRequestBodySize = 32 << 20 // 32MB

// Handler serves the assessment API.
type Handler struct {
	cfg       *config.Manager
	sessions  *session.Store
	planner   *conversation.Planner
	evaluator *evaluation.Dispatcher
	reports   *report.Registry
	mailer    *emailer.Dispatcher
	audio     *audio.Store
	archive   store.Archive
}

// NewHandler creates a new Handler with all component dependencies. archive
// may be nil to disable archiving.
func NewHandler(
	cfg *config.Manager,
	sessions *session.Store,
	planner *conversation.Planner,
	evaluator *evaluation.Dispatcher,
	reports *report.Registry,
	mailer *emailer.Dispatcher,
	audioStore *audio.Store,
	archive store.Archive,
) *Handler {
	return &Handler{
		cfg:       cfg,
		sessions:  sessions,
		planner:   planner,
		evaluator: evaluator,
		reports:   reports,
		mailer:    mailer,
		audio:     audioStore,
		archive:   archive,
	}
}

// RegisterRoutes mounts all API routes. Report downloads stay outside the
// bearer check: the token in the URL is the capability, so emailed links
// work without credentials.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/api/reports/{token}", h.handleDownloadReport)

	secretToken := h.cfg.Current().SecretToken
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(secretToken))
		r.Post("/api/session/start", h.handleStartSession)
		r.Post("/api/chat", h.handleChat)
		r.Post("/api/session/finish", h.handleFinishSession)
		r.Post("/api/session/audio", h.handleUploadAudio)
		r.Post("/api/evaluate", h.handleEvaluate)
		r.Post("/api/report", h.handleGenerateReport)
		r.Post("/api/email", h.handleSendEmail)
		r.Get("/api/config/email", h.handleEmailStatus)
		r.Post("/api/config/email", h.handleConfigureEmail)
		r.Get("/api/config/engine", h.handleEngineStatus)
		r.Post("/api/config/engine", h.handleConfigureEngine)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// DomainError maps a service-layer error to its HTTP status and writes it.
func DomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrDelivery):
		status = http.StatusBadGateway
	}
	Error(w, status, err.Error())
}

// decodeJSON decodes a JSON request body with a size cap.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/evaluation"
)

type evaluateRequest struct {
	SessionID  string               `json:"session_id,omitempty"`
	Transcript []domain.ChatMessage `json:"transcript,omitempty"`
	Metadata   *evaluation.Metadata `json:"metadata,omitempty"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	meta := evaluation.Metadata{}
	if req.Metadata != nil {
		meta = *req.Metadata
	}

	result, err := h.evaluator.EvaluateTranscript(r.Context(), req.Transcript, req.SessionID, meta)
	if err != nil {
		DomainError(w, err)
		return
	}

	if req.SessionID != "" && h.archive != nil {
		if err := h.archive.SaveEvaluation(r.Context(), req.SessionID, result); err != nil {
			slog.Warn("Failed to archive evaluation", "session_id", req.SessionID, "error", err)
		}
	}

	JSON(w, http.StatusOK, result)
}

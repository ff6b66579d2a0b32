package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/speaklab-io/speaklab/internal/evaluation"
	"github.com/speaklab-io/speaklab/internal/report"
)

type reportRequest struct {
	Evaluation      evaluation.DualResult  `json:"evaluation"`
	SessionMetadata report.SessionMetadata `json:"session_metadata"`
}

type reportResponse struct {
	ReportURL string  `json:"report_url"`
	PDFURL    *string `json:"pdf_url"`
	HTML      string  `json:"html"`
}

func (h *Handler) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	html, url, err := h.reports.Persist(&req.Evaluation, req.SessionMetadata)
	if err != nil {
		DomainError(w, err)
		return
	}

	JSON(w, http.StatusOK, reportResponse{ReportURL: url, HTML: html})
}

func (h *Handler) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	record, err := h.reports.Resolve(token)
	if err != nil {
		DomainError(w, err)
		return
	}

	if _, err := os.Stat(record.Path); err != nil {
		Error(w, http.StatusNotFound, "report not found")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+record.Filename+`"`)
	http.ServeFile(w, r, record.Path)
}

package api

import (
	"net/http"

	"github.com/speaklab-io/speaklab/internal/config"
)

type emailSettingsPublic struct {
	Provider           string `json:"provider"`
	SMTPHost           string `json:"smtp_host,omitempty"`
	SMTPPort           int    `json:"smtp_port"`
	SMTPUsername       string `json:"smtp_username,omitempty"`
	DefaultSender      string `json:"default_sender,omitempty"`
	SMTPConfigured     bool   `json:"smtp_configured"`
	SendGridConfigured bool   `json:"sendgrid_configured"`
}

type emailConfigStatus struct {
	Configured    bool                `json:"configured"`
	MissingFields []string            `json:"missing_fields"`
	Settings      emailSettingsPublic `json:"settings"`
	TargetEmail   string              `json:"target_email,omitempty"`
	Diagnosis     string              `json:"diagnosis,omitempty"`
}

func emailStatusFrom(cfg *config.Config) emailConfigStatus {
	email := cfg.Email
	smtpOK := email.SMTPConfigured()
	sendgridOK := email.SendGridConfigured()

	var diagnosis string
	switch {
	case !smtpOK && !sendgridOK:
		diagnosis = "No email provider configured. Set up SMTP or SendGrid."
	case smtpOK && !sendgridOK:
		diagnosis = "SMTP configured but cloud platforms often block SMTP ports. Configure SendGrid as fallback."
	case sendgridOK && !smtpOK:
		diagnosis = "SendGrid configured. Emails will be sent via SendGrid."
	default:
		diagnosis = "Both SMTP and SendGrid configured. SMTP will be tried first, SendGrid as fallback."
	}
	if email.SendGridAPIKey != "" && email.DefaultSender == "" {
		diagnosis += " SendGrid requires EMAIL_DEFAULT_SENDER to be set and verified."
	}

	missing := email.MissingFields()
	if missing == nil {
		missing = []string{}
	}

	return emailConfigStatus{
		Configured:    email.Configured(),
		MissingFields: missing,
		Settings: emailSettingsPublic{
			Provider:           email.Provider,
			SMTPHost:           email.SMTPHost,
			SMTPPort:           email.SMTPPort,
			SMTPUsername:       email.SMTPUsername,
			DefaultSender:      email.DefaultSender,
			SMTPConfigured:     smtpOK,
			SendGridConfigured: email.SendGridAPIKey != "",
		},
		TargetEmail: cfg.TargetEmail,
		Diagnosis:   diagnosis,
	}
}

func (h *Handler) handleEmailStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, emailStatusFrom(h.cfg.Current()))
}

func (h *Handler) handleConfigureEmail(w http.ResponseWriter, r *http.Request) {
	var upd config.EmailUpdate
	if !decodeJSON(w, r, &upd) {
		return
	}

	cfg, err := h.cfg.UpdateEmail(upd)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, emailStatusFrom(cfg))
}

type engineKeyStatus struct {
	Configured bool `json:"configured"`
}

type engineKeyRequest struct {
	APIKey string `json:"api_key"`
}

func (h *Handler) handleEngineStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, engineKeyStatus{Configured: h.cfg.Current().Engine.Configured()})
}

func (h *Handler) handleConfigureEngine(w http.ResponseWriter, r *http.Request) {
	var req engineKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cfg, err := h.cfg.UpdateEngineKey(req.APIKey)
	if err != nil {
		DomainError(w, err)
		return
	}
	JSON(w, http.StatusOK, engineKeyStatus{Configured: cfg.Engine.Configured()})
}

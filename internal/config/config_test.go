package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/speaklab-io/speaklab/internal/domain"
)

const testToken = "0123456789abcdef0123456789abcdef"

func TestLoadRequiresSecretToken(t *testing.T) {
	t.Setenv("APP_SECRET_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Error("Expected error for missing APP_SECRET_TOKEN")
	}

	t.Setenv("APP_SECRET_TOKEN", "short")
	if _, err := Load(); err == nil {
		t.Error("Expected error for short APP_SECRET_TOKEN")
	}

	t.Setenv("APP_SECRET_TOKEN", "dev-secret")
	if _, err := Load(); err == nil {
		t.Error("Expected error for insecure default token")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_SECRET_TOKEN", testToken)
	t.Setenv("APP_BASE_URL", "")
	t.Setenv("SMTP_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.AppBaseURL != "http://localhost:8000" {
		t.Errorf("Unexpected base URL %s", cfg.AppBaseURL)
	}
	if cfg.DefaultStandard != "toefl" {
		t.Errorf("Unexpected default standard %s", cfg.DefaultStandard)
	}
	if cfg.Email.SMTPPort != 587 {
		t.Errorf("Expected default SMTP port 587, got %d", cfg.Email.SMTPPort)
	}
	if cfg.Engine.Model != "gpt-5" {
		t.Errorf("Unexpected default engine model %s", cfg.Engine.Model)
	}
}

func TestTrustedOriginsParsing(t *testing.T) {
	t.Setenv("APP_SECRET_TOKEN", testToken)
	t.Setenv("APP_TRUSTED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.TrustedOrigins) != 2 || cfg.TrustedOrigins[0] != "https://a.example" || cfg.TrustedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins: %v", cfg.TrustedOrigins)
	}
}

func TestEmailConfigMissingFields(t *testing.T) {
	empty := EmailConfig{}
	missing := empty.MissingFields()
	joined := strings.Join(missing, ",")
	for _, field := range []string{"smtp_host", "smtp_username", "smtp_password", "default_sender", "sendgrid_api_key"} {
		if !strings.Contains(joined, field) {
			t.Errorf("Expected %s in missing fields, got %v", field, missing)
		}
	}
	if empty.Configured() {
		t.Error("Empty config must not report configured")
	}

	smtp := EmailConfig{
		SMTPHost: "smtp.example.com", SMTPPort: 587,
		SMTPUsername: "u", SMTPPassword: "p", DefaultSender: "s@example.com",
	}
	if got := smtp.MissingFields(); len(got) != 0 {
		t.Errorf("Expected no missing fields, got %v", got)
	}
	if !smtp.SMTPConfigured() || !smtp.Configured() {
		t.Error("Full SMTP settings must report configured")
	}

	sendgridOnly := EmailConfig{SendGridAPIKey: "SG.x", DefaultSender: "s@example.com"}
	if sendgridOnly.SMTPConfigured() {
		t.Error("SendGrid-only config must not report SMTP configured")
	}
	if !sendgridOnly.SendGridConfigured() || !sendgridOnly.Configured() {
		t.Error("SendGrid-only config must report configured")
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	t.Setenv("APP_SECRET_TOKEN", testToken)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	m := NewManager(cfg)
	m.envPath = filepath.Join(t.TempDir(), ".env")
	return m
}

func TestManagerUpdateEmailEmpty(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.UpdateEmail(EmailUpdate{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestManagerUpdateEngineKeyBlank(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.UpdateEngineKey("   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestManagerRebuildAndSwap(t *testing.T) {
	m := newTestManager(t)
	t.Setenv("ENGINE_API_KEY", "")
	t.Setenv("SMTP_HOST", "")

	if m.Current().Engine.Configured() {
		t.Fatal("Engine should start unconfigured")
	}

	host := "smtp.example.com"
	cfg, err := m.UpdateEmail(EmailUpdate{SMTPHost: &host})
	if err != nil {
		t.Fatalf("UpdateEmail failed: %v", err)
	}
	if cfg.Email.SMTPHost != host {
		t.Errorf("Expected swapped config with host %s, got %s", host, cfg.Email.SMTPHost)
	}
	if m.Current().Email.SMTPHost != host {
		t.Error("Current() does not reflect the swapped config")
	}

	if _, err := m.UpdateEngineKey("sk-test"); err != nil {
		t.Fatalf("UpdateEngineKey failed: %v", err)
	}
	if !m.Current().Engine.Configured() {
		t.Error("Engine should be configured after key update")
	}

	data, err := os.ReadFile(m.envPath)
	if err != nil {
		t.Fatalf("Expected persisted env file: %v", err)
	}
	for _, want := range []string{"SMTP_HOST=smtp.example.com", "ENGINE_API_KEY=sk-test"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %q persisted, got:\n%s", want, data)
		}
	}
}

func TestPersistEnvVarPreservesLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	initial := "# comment\nFOO=bar\nBAZ=qux\n"
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := persistEnvVar(path, "FOO", "updated"); err != nil {
		t.Fatalf("persistEnvVar failed: %v", err)
	}
	if err := persistEnvVar(path, "NEW", "value"); err != nil {
		t.Fatalf("persistEnvVar failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	for _, want := range []string{"# comment", "FOO=updated", "BAZ=qux", "NEW=value"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected %q in env file, got:\n%s", want, got)
		}
	}
	if strings.Contains(got, "FOO=bar") {
		t.Error("Old value not replaced")
	}
}

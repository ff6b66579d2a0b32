// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultTrustedOrigins is used when APP_TRUSTED_ORIGINS is unset.
var DefaultTrustedOrigins = []string{"http://localhost:5173"}

// Config holds all application configuration.
type Config struct {
	Port            string
	AppBaseURL      string
	SecretToken     string
	TargetEmail     string
	ReportLanguage  string
	StoreFinished   bool
	TrustedOrigins  []string
	DefaultStandard string

	QuestionsPath      string
	StandardConfigRoot string
	ReportsDir         string
	AudioDir           string
	ArchiveDBPath      string
	FrontendDir        string

	Email  EmailConfig
	Engine EngineConfig
}

// EmailConfig holds email delivery settings for both supported providers.
type EmailConfig struct {
	Provider       string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SendGridAPIKey string
	DefaultSender  string
}

// MissingFields lists the settings still required to complete the SMTP
// provider configuration, plus the SendGrid key when neither provider is
// usable. An empty result means at least SMTP is fully configured.
func (c EmailConfig) MissingFields() []string {
	var missing []string
	if c.SMTPHost == "" {
		missing = append(missing, "smtp_host")
	}
	if c.SMTPUsername == "" {
		missing = append(missing, "smtp_username")
	}
	if c.SMTPPassword == "" {
		missing = append(missing, "smtp_password")
	}
	if c.DefaultSender == "" {
		missing = append(missing, "default_sender")
	}
	if c.SMTPPort == 0 {
		missing = append(missing, "smtp_port")
	}
	if len(missing) > 0 && c.SendGridAPIKey == "" {
		missing = append(missing, "sendgrid_api_key")
	}
	return missing
}

// SMTPConfigured reports whether direct SMTP delivery can be attempted.
func (c EmailConfig) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUsername != "" && c.SMTPPassword != "" &&
		c.DefaultSender != "" && c.SMTPPort != 0
}

// SendGridConfigured reports whether the transactional-email fallback can be
// attempted. SendGrid requires a verified sender address.
func (c EmailConfig) SendGridConfigured() bool {
	return c.SendGridAPIKey != "" && c.DefaultSender != ""
}

// Configured reports whether at least one delivery provider is usable.
func (c EmailConfig) Configured() bool {
	return c.SMTPConfigured() || c.SendGridConfigured()
}

// EngineConfig holds settings for the external evaluation engine, an
// OpenAI-compatible chat completions API.
type EngineConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64
}

// Configured reports whether the evaluation engine can be called.
func (c EngineConfig) Configured() bool {
	return c.APIKey != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token, err := loadSecretToken()
	if err != nil {
		return nil, err
	}

	targetEmail := getEnv("TARGET_EMAIL", "")

	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		AppBaseURL:      loadAppBaseURL(),
		SecretToken:     token,
		TargetEmail:     targetEmail,
		ReportLanguage:  getEnv("REPORT_LANGUAGE", "en"),
		StoreFinished:   getEnvBool("STORE_TRANSCRIPTS", true),
		TrustedOrigins:  loadTrustedOrigins(),
		DefaultStandard: getEnv("DEFAULT_INTERVIEW_STANDARD", "toefl"),

		QuestionsPath:      getEnv("QUESTIONS_PATH", "./questions.md"),
		StandardConfigRoot: getEnv("STANDARD_CONFIG_ROOT", "./configs"),
		ReportsDir:         getEnv("REPORTS_DIR", "./data/reports"),
		AudioDir:           getEnv("AUDIO_DIR", "./data/audio"),
		ArchiveDBPath:      getEnv("ARCHIVE_DB_PATH", "./data/speaklab.db"),
		FrontendDir:        getEnv("FRONTEND_DIR", "./frontend/dist"),

		Email: EmailConfig{
			Provider:       getEnv("EMAIL_PROVIDER", "smtp"),
			SMTPHost:       getEnv("SMTP_HOST", ""),
			SMTPPort:       getEnvInt("SMTP_PORT", 587),
			SMTPUsername:   getEnv("SMTP_USERNAME", ""),
			SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			DefaultSender:  getEnv("EMAIL_DEFAULT_SENDER", targetEmail),
		},
		Engine: EngineConfig{
			APIKey:      getEnv("ENGINE_API_KEY", ""),
			BaseURL:     getEnv("ENGINE_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnv("ENGINE_MODEL", "gpt-5"),
			Temperature: loadTemperature(),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.QuestionsPath == "" {
		return fmt.Errorf("QUESTIONS_PATH cannot be empty")
	}
	if c.ReportsDir == "" {
		return fmt.Errorf("REPORTS_DIR cannot be empty")
	}
	if c.AudioDir == "" {
		return fmt.Errorf("AUDIO_DIR cannot be empty")
	}
	if c.ArchiveDBPath == "" {
		return fmt.Errorf("ARCHIVE_DB_PATH cannot be empty")
	}
	return nil
}

func loadSecretToken() (string, error) {
	token := strings.TrimSpace(os.Getenv("APP_SECRET_TOKEN"))
	if token == "" {
		return "", fmt.Errorf("APP_SECRET_TOKEN must be set to a strong, non-empty value")
	}
	if strings.EqualFold(token, "dev-secret") || len(token) < 32 {
		return "", fmt.Errorf("APP_SECRET_TOKEN must be at least 32 characters and not use the insecure default")
	}
	return token, nil
}

// loadAppBaseURL resolves the public base URL used for report links.
// APP_BASE_URL wins; RENDER_EXTERNAL_URL covers managed deployments.
func loadAppBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("APP_BASE_URL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("RENDER_EXTERNAL_URL")); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func loadTrustedOrigins() []string {
	var origins []string
	if raw := strings.TrimSpace(os.Getenv("APP_TRUSTED_ORIGINS")); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}
	if len(origins) == 0 {
		origins = append(origins, DefaultTrustedOrigins...)
	}
	if v := strings.TrimSpace(os.Getenv("RENDER_EXTERNAL_URL")); v != "" {
		found := false
		for _, o := range origins {
			if o == v {
				found = true
				break
			}
		}
		if !found {
			origins = append(origins, v)
		}
	}
	return origins
}

func loadTemperature() *float64 {
	raw := strings.TrimSpace(os.Getenv("ENGINE_TEMPERATURE"))
	if raw == "" {
		return nil
	}
	t, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &t
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/speaklab-io/speaklab/internal/domain"
)

// Manager holds the current configuration and supports runtime updates as an
// explicit rebuild-and-swap: updated values are written to the environment
// (and persisted to the .env file), then the whole Config is reloaded and
// swapped in atomically. Readers always see a complete snapshot.
type Manager struct {
	mu      sync.RWMutex
	cfg     *Config
	envPath string
}

// NewManager wraps an already-loaded configuration.
func NewManager(cfg *Config) *Manager {
	return &Manager{cfg: cfg, envPath: ".env"}
}

// Current returns the active configuration snapshot.
func (m *Manager) Current() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// EmailUpdate carries partial email settings. Nil fields are left unchanged.
type EmailUpdate struct {
	Provider      *string `json:"provider,omitempty"`
	SMTPHost      *string `json:"smtp_host,omitempty"`
	SMTPPort      *int    `json:"smtp_port,omitempty"`
	SMTPUsername  *string `json:"smtp_username,omitempty"`
	SMTPPassword  *string `json:"smtp_password,omitempty"`
	DefaultSender *string `json:"default_sender,omitempty"`
	TargetEmail   *string `json:"target_email,omitempty"`
}

// UpdateEmail applies the given email settings and rebuilds the config.
// An update with no set fields is rejected.
func (m *Manager) UpdateEmail(upd EmailUpdate) (*Config, error) {
	vars := map[string]string{}
	setString := func(key string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			vars[key] = strings.TrimSpace(*v)
		}
	}
	setString("EMAIL_PROVIDER", upd.Provider)
	setString("SMTP_HOST", upd.SMTPHost)
	setString("SMTP_USERNAME", upd.SMTPUsername)
	setString("SMTP_PASSWORD", upd.SMTPPassword)
	setString("EMAIL_DEFAULT_SENDER", upd.DefaultSender)
	setString("TARGET_EMAIL", upd.TargetEmail)
	if upd.SMTPPort != nil && *upd.SMTPPort != 0 {
		vars["SMTP_PORT"] = strconv.Itoa(*upd.SMTPPort)
	}

	if len(vars) == 0 {
		return nil, fmt.Errorf("%w: no email settings provided", domain.ErrInvalidInput)
	}
	return m.apply(vars)
}

// UpdateEngineKey sets the evaluation engine API key and rebuilds the config.
func (m *Manager) UpdateEngineKey(key string) (*Config, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: API key cannot be blank", domain.ErrInvalidInput)
	}
	return m.apply(map[string]string{"ENGINE_API_KEY": key})
}

func (m *Manager) apply(vars map[string]string) (*Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range vars {
		if err := os.Setenv(key, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
		if err := persistEnvVar(m.envPath, key, value); err != nil {
			// The running process already has the value; a failed .env write
			// only affects the next restart.
			slog.Warn("Failed to persist setting to env file", "key", key, "error", err)
		}
	}

	cfg, err := Load()
	if err != nil {
		return nil, fmt.Errorf("reload configuration: %w", err)
	}
	m.cfg = cfg
	return cfg, nil
}

// persistEnvVar updates or appends KEY=value in the env file, keeping
// comments and unrelated lines intact.
func persistEnvVar(path, key, value string) error {
	var lines []string
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	case os.IsNotExist(err):
		lines = nil
	default:
		return err
	}

	updated := false
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		current, _, ok := strings.Cut(line, "=")
		if ok && strings.TrimSpace(current) == key && !updated {
			lines[i] = key + "=" + value
			updated = true
		}
	}
	if !updated {
		lines = append(lines, key+"="+value)
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o600)
}

// Package report persists rendered assessment reports and issues opaque
// retrieval tokens for them.
package report

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/evaluation"
)

// tokenBytes sets report token entropy. Tokens are the sole access control
// on report downloads (links must work when forwarded by email), so they
// must be unguessable.
const tokenBytes = 32

// Record describes one persisted report. The backing file path is owned
// exclusively by the registry.
type Record struct {
	Token     string
	Filename  string
	Path      string
	SessionID string
	CreatedAt time.Time
}

// SessionMetadata is the caller-supplied context rendered into the report.
type SessionMetadata struct {
	SessionID string `json:"session_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

// Registry renders reports to disk and resolves tokens for the process
// lifetime. Records are never evicted.
type Registry struct {
	dir     string
	baseURL string

	mu      sync.RWMutex
	byToken map[string]*Record
	latest  map[string]*Record
}

// NewRegistry creates a registry writing report files under dir. baseURL is
// the public prefix embedded in retrieval URLs.
func NewRegistry(dir, baseURL string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &Registry{
		dir:     dir,
		baseURL: baseURL,
		byToken: make(map[string]*Record),
		latest:  make(map[string]*Record),
	}, nil
}

// Persist renders the evaluation to HTML, writes it to storage, and returns
// the rendered HTML plus a token-bearing retrieval URL.
func (r *Registry) Persist(result *evaluation.DualResult, meta SessionMetadata) (string, string, error) {
	html, err := render(result, meta)
	if err != nil {
		return "", "", fmt.Errorf("render report: %w", err)
	}

	filename := fmt.Sprintf("report_%s_%s.html", time.Now().UTC().Format("20060102T150405"), uuid.NewString())
	path := filepath.Join(r.dir, filename)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", "", fmt.Errorf("write report file: %w", err)
	}

	record := &Record{
		Token:     randomHex(tokenBytes),
		Filename:  filename,
		Path:      path,
		SessionID: meta.SessionID,
		CreatedAt: time.Now(),
	}

	r.mu.Lock()
	r.byToken[record.Token] = record
	if record.SessionID != "" {
		r.latest[record.SessionID] = record
	}
	r.mu.Unlock()

	slog.Info("Report persisted", "filename", filename, "session_id", meta.SessionID)
	return html, r.baseURL + "/api/reports/" + record.Token, nil
}

// Resolve returns the record for a previously issued token.
func (r *Registry) Resolve(token string) (*Record, error) {
	r.mu.RLock()
	record, ok := r.byToken[token]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown report token", domain.ErrNotFound)
	}
	return record, nil
}

// LatestForSession returns the most recently persisted record for a session,
// or nil if that session has none.
func (r *Registry) LatestForSession(sessionID string) *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest[sessionID]
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the process cannot mint capability
		// tokens safely at all.
		panic(fmt.Sprintf("report: read random bytes: %v", err))
	}
	return hex.EncodeToString(buf)
}

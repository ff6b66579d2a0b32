// Package audio stores session audio recordings on disk.
package audio

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/speaklab-io/speaklab/internal/domain"
)

// Store writes uploaded recordings under a single directory and records the
// stored path on the owning session.
type Store struct {
	dir string
}

// NewStore creates an audio store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SaveRecording decodes and stores a base64 audio payload for the session,
// then records the path on the session. Returns the filename and full path.
func (s *Store) SaveRecording(sess *domain.Session, audioBase64 string) (string, string, error) {
	content, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid audio payload", domain.ErrInvalidInput)
	}

	filename := fmt.Sprintf("session_%s_%s.mp3", sess.ID, time.Now().UTC().Format("20060102T150405"))
	path := filepath.Join(s.dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", "", fmt.Errorf("write audio file: %w", err)
	}

	sess.SetAudioPath(path)
	slog.Info("Audio recording stored", "session_id", sess.ID, "path", path, "bytes", len(content))
	return filename, path, nil
}

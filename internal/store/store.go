// Package store archives finished assessments for record keeping. Live
// session state stays in memory; the archive is written best-effort after a
// session finishes or is evaluated.
package store

import (
	"context"

	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/evaluation"
)

// Archive persists finished sessions and their evaluations.
type Archive interface {
	// SaveSession records a finished session together with its transcript.
	SaveSession(ctx context.Context, sess *domain.Session) error

	// SaveEvaluation records a dual evaluation result for a session.
	SaveEvaluation(ctx context.Context, sessionID string, result *evaluation.DualResult) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Package evaluation assembles scoring requests and forwards them to the
// external evaluation engine.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/session"
)

// Metadata describes a transcript. Unset fields are backfilled from the
// session when the transcript was resolved from one.
type Metadata struct {
	StartedAt   *time.Time `json:"started_at,omitempty"`
	DurationSec *float64   `json:"duration_sec,omitempty"`
	WordCount   *int       `json:"word_count,omitempty"`
	Turns       *int       `json:"turns,omitempty"`
}

// DualResult carries the two independently produced evaluation variants plus
// the merged transcript metadata.
type DualResult struct {
	Analytic string   `json:"analytic_evaluation"`
	Examiner string   `json:"examiner_evaluation"`
	Metadata Metadata `json:"metadata"`
}

const analyticSystemPrompt = "You are a language assessment rater. Score the candidate's " +
	"spoken-style English from the transcript below on fluency, vocabulary range, grammar " +
	"accuracy and coherence, each 0-100 with a one-sentence justification, then give an " +
	"overall CEFR level. Respond in a compact scoring table followed by the level."

const examinerSystemPrompt = "You are an experienced oral examiner. Write a short narrative " +
	"evaluation of the candidate based on the transcript below: overall impression, two " +
	"strengths, two concrete areas to improve, and one study recommendation. Address the " +
	"candidate directly and keep it under 200 words."

// Dispatcher resolves transcripts and produces dual evaluations.
type Dispatcher struct {
	sessions *session.Store
	engine   Engine
}

// NewDispatcher creates an evaluation dispatcher.
func NewDispatcher(sessions *session.Store, engine Engine) *Dispatcher {
	return &Dispatcher{sessions: sessions, engine: engine}
}

// EvaluateTranscript scores a transcript. Callers supply either an explicit
// transcript or a session id; a session-resolved transcript requires granted
// consent. Engine failures propagate directly, there is no retry.
func (d *Dispatcher) EvaluateTranscript(ctx context.Context, transcript []domain.ChatMessage, sessionID string, meta Metadata) (*DualResult, error) {
	switch {
	case sessionID != "":
		sess, err := d.sessions.Get(sessionID)
		if err != nil {
			return nil, err
		}
		if !sess.ConsentGranted {
			return nil, fmt.Errorf("%w: participant consent is required for this session", domain.ErrForbidden)
		}
		transcript = sess.Transcript()
		meta = mergeSessionMetadata(meta, sess)
	case len(transcript) > 0:
		// Use the explicit transcript as given.
	default:
		return nil, fmt.Errorf("%w: provide session_id or transcript", domain.ErrInvalidInput)
	}

	text := renderTranscript(transcript)
	slog.Info("Dispatching transcript for evaluation", "session_id", sessionID, "messages", len(transcript))

	analytic, err := d.engine.Complete(ctx, analyticSystemPrompt, text)
	if err != nil {
		return nil, wrapEngineErr("analytic evaluation", err)
	}
	examiner, err := d.engine.Complete(ctx, examinerSystemPrompt, text)
	if err != nil {
		return nil, wrapEngineErr("examiner evaluation", err)
	}

	return &DualResult{Analytic: analytic, Examiner: examiner, Metadata: meta}, nil
}

// mergeSessionMetadata backfills unset metadata fields from the session.
// Explicit caller-supplied values always win.
func mergeSessionMetadata(meta Metadata, sess *domain.Session) Metadata {
	if meta.StartedAt == nil {
		started := sess.StartedAt
		meta.StartedAt = &started
	}
	if meta.DurationSec == nil {
		dur := sess.DurationSeconds()
		meta.DurationSec = &dur
	}
	if meta.WordCount == nil {
		wc := sess.WordCount()
		meta.WordCount = &wc
	}
	if meta.Turns == nil {
		turns := 0
		for _, m := range sess.Transcript() {
			if m.Role == domain.RoleUser {
				turns++
			}
		}
		meta.Turns = &turns
	}
	return meta
}

func renderTranscript(transcript []domain.ChatMessage) string {
	var b strings.Builder
	for _, m := range transcript {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func wrapEngineErr(stage string, err error) error {
	if isTaxonomyErr(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDelivery, stage, err)
}

func isTaxonomyErr(err error) bool {
	for _, sentinel := range []error{domain.ErrUnavailable, domain.ErrInvalidInput, domain.ErrForbidden, domain.ErrNotFound} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

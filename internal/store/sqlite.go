package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/speaklab-io/speaklab/internal/domain"
	"github.com/speaklab-io/speaklab/internal/evaluation"
	_ "modernc.org/sqlite"
)

// SQLiteArchive implements Archive using SQLite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed archive.
func NewSQLite(dbPath string) (Archive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	archive := &SQLiteArchive{db: db}
	if err := archive.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return archive, nil
}

func (a *SQLiteArchive) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		standard_id TEXT,
		user_name TEXT,
		user_email TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		duration_seconds REAL NOT NULL,
		word_count INTEGER NOT NULL,
		turn_count INTEGER NOT NULL,
		transcript_json TEXT NOT NULL,
		audio_path TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		analytic TEXT NOT NULL,
		examiner TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id);
	`
	if _, err := a.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (a *SQLiteArchive) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// SaveSession records a finished session together with its transcript.
func (a *SQLiteArchive) SaveSession(ctx context.Context, sess *domain.Session) error {
	transcript, err := json.Marshal(sess.Transcript())
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	var finishedAt sql.NullInt64
	if t := sess.FinishedAt(); !t.IsZero() {
		finishedAt = sql.NullInt64{Int64: t.Unix(), Valid: true}
	}

	query := `
		INSERT INTO sessions (
			session_id, mode, standard_id, user_name, user_email,
			started_at, finished_at, duration_seconds, word_count, turn_count,
			transcript_json, audio_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			duration_seconds = excluded.duration_seconds,
			word_count = excluded.word_count,
			turn_count = excluded.turn_count,
			transcript_json = excluded.transcript_json,
			audio_path = excluded.audio_path`

	_, err = a.db.ExecContext(ctx, query,
		sess.ID, sess.Mode, sess.Standard(), sess.UserName, sess.UserEmail,
		sess.StartedAt.Unix(), finishedAt, sess.DurationSeconds(), sess.WordCount(), sess.TurnCount(),
		string(transcript), sess.AudioPath(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// SaveEvaluation records a dual evaluation result for a session.
func (a *SQLiteArchive) SaveEvaluation(ctx context.Context, sessionID string, result *evaluation.DualResult) error {
	metadata, err := json.Marshal(result.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO evaluations (session_id, analytic, examiner, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err = a.db.ExecContext(ctx, query, sessionID, result.Analytic, result.Examiner, string(metadata), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}

// Package store persists recordings and their derived transcripts in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/minutelabs/minute-core/internal/config"
	_ "modernc.org/sqlite"
)

// Transcript kinds, one row per artifact produced for a recording.
const (
	KindPlain       = "plain"
	KindTimestamped = "timestamped"
	KindDiarized    = "diarized"
	KindSummary     = "summary"
)

// Recording is one processed audio input.
type Recording struct {
	ID         string
	SourcePath string
	Duration   float64
	SampleRate int
	Channels   int
	Status     string
	CreatedAt  time.Time
}

// Transcript is one derived artifact for a recording.
type Transcript struct {
	ID           int64
	RecordingID  string
	Kind         string
	Content      string
	WordCount    int
	SpeakerCount int
	Degraded     bool
	Warning      string
	CreatedAt    time.Time
}

// Store wraps a SQLite-backed recording archive.
type Store struct {
	db    *sql.DB
	cfg   config.StoreConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the store according to config. Ephemeral retention skips
// the database entirely; every write becomes a no-op.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (*Store, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Store{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := s.vacuum(ctx); err != nil {
			log.Warn("store vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := s.Prune(ctx); err != nil {
		log.Warn("store prune on start failed", slog.String("error", err.Error()))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS recordings (
    recording_id TEXT PRIMARY KEY,
    source_path TEXT,
    duration_seconds REAL,
    sample_rate INTEGER,
    channels INTEGER,
    status TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    recording_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    content TEXT,
    word_count INTEGER,
    speaker_count INTEGER,
    degraded INTEGER NOT NULL DEFAULT 0,
    warning TEXT,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(recording_id) REFERENCES recordings(recording_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_transcripts_recording_created ON transcripts(recording_id, created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) vacuum(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRecording upserts the recording row.
func (s *Store) SaveRecording(ctx context.Context, rec Recording) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings(recording_id, source_path, duration_seconds, sample_rate, channels, status, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(recording_id) DO UPDATE SET
		   source_path=excluded.source_path,
		   duration_seconds=excluded.duration_seconds,
		   sample_rate=excluded.sample_rate,
		   channels=excluded.channels,
		   status=excluded.status`,
		rec.ID, rec.SourcePath, rec.Duration, rec.SampleRate, rec.Channels, rec.Status, rec.CreatedAt)
	return err
}

// SetRecordingStatus updates the lifecycle status of a recording.
func (s *Store) SetRecordingStatus(ctx context.Context, recordingID, status string) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE recordings SET status = ? WHERE recording_id = ?`, status, recordingID)
	return err
}

// SaveTranscript writes one derived artifact for a recording.
func (s *Store) SaveTranscript(ctx context.Context, tr Transcript) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = s.clock().UTC()
	}
	degraded := 0
	if tr.Degraded {
		degraded = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts(recording_id, kind, content, word_count, speaker_count, degraded, warning, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		tr.RecordingID, tr.Kind, tr.Content, tr.WordCount, tr.SpeakerCount, degraded, tr.Warning, tr.CreatedAt)
	return err
}

// ListTranscripts retrieves up to limit artifacts for a recording ordered
// ascending by time.
func (s *Store) ListTranscripts(ctx context.Context, recordingID string, limit int) ([]Transcript, error) {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recording_id, kind, content, word_count, speaker_count, degraded, warning, created_at
		 FROM transcripts WHERE recording_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, recordingID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transcript
	for rows.Next() {
		var tr Transcript
		var degraded int
		var created string
		if err := rows.Scan(&tr.ID, &tr.RecordingID, &tr.Kind, &tr.Content, &tr.WordCount, &tr.SpeakerCount, &degraded, &tr.Warning, &created); err != nil {
			return nil, err
		}
		tr.Degraded = degraded != 0
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			tr.CreatedAt = ts
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// Prune applies configured retention (called on startup and can be scheduled).
func (s *Store) Prune(ctx context.Context) error {
	if s.cfg.RetentionMode == "ephemeral" || s.db == nil {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionDays > 0 {
		cutoff := s.clock().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM transcripts WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM recordings WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if s.cfg.MaxRecordings > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM recordings WHERE recording_id IN (
			SELECT recording_id FROM recordings ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxRecordings)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// Ensure verifies the ephemeral invariant: no database handle is held when
// persistence is disabled.
func (s *Store) Ensure() error {
	if s.cfg.RetentionMode == "ephemeral" && s.db != nil {
		return errors.New("ephemeral store should not have database connection")
	}
	return nil
}

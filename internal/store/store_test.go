package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/minutelabs/minute-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	cfg := config.StoreConfig{RetentionMode: "ephemeral"}
	s, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Ensure(); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := s.SaveRecording(ctx, Recording{ID: "rec-1"}); err != nil {
		t.Fatalf("ephemeral save should be a no-op: %v", err)
	}
}

func TestSaveAndListTranscripts(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.StoreConfig{Path: filepath.Join(tmp, "minute.db"), RetentionMode: "session"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	rec := Recording{
		ID:         "rec-123",
		SourcePath: "/tmp/meeting.wav",
		Duration:   42.5,
		SampleRate: 16000,
		Channels:   1,
		Status:     "processing",
	}
	if err := s.SaveRecording(context.Background(), rec); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	if err := s.SaveTranscript(context.Background(), Transcript{
		RecordingID:  "rec-123",
		Kind:         KindDiarized,
		Content:      "[00:00 - 00:05] Speaker 1:\nhello",
		WordCount:    1,
		SpeakerCount: 1,
	}); err != nil {
		t.Fatalf("save transcript: %v", err)
	}
	if err := s.SaveTranscript(context.Background(), Transcript{
		RecordingID: "rec-123",
		Kind:        KindSummary,
		Content:     "**KEY DECISIONS**",
		Degraded:    true,
		Warning:     "speaker diarization failed: engine crashed",
	}); err != nil {
		t.Fatalf("save summary: %v", err)
	}
	if err := s.SetRecordingStatus(context.Background(), "rec-123", "done"); err != nil {
		t.Fatalf("set status: %v", err)
	}

	transcripts, err := s.ListTranscripts(context.Background(), "rec-123", 10)
	if err != nil {
		t.Fatalf("list transcripts: %v", err)
	}
	if len(transcripts) != 2 {
		t.Fatalf("expected 2 transcripts, got %d", len(transcripts))
	}
	if transcripts[0].Kind != KindDiarized || transcripts[0].Content == "" {
		t.Fatalf("unexpected first transcript: %+v", transcripts[0])
	}
	if !transcripts[1].Degraded || transcripts[1].Warning == "" {
		t.Fatalf("degraded flag lost: %+v", transcripts[1])
	}
}

func TestSaveRecordingUpserts(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.StoreConfig{Path: filepath.Join(tmp, "minute.db"), RetentionMode: "session"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.SaveRecording(context.Background(), Recording{ID: "rec-1", Status: "processing"}); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	if err := s.SaveRecording(context.Background(), Recording{ID: "rec-1", Status: "done", Duration: 12.0}); err != nil {
		t.Fatalf("upsert recording: %v", err)
	}
	if err := s.SaveTranscript(context.Background(), Transcript{RecordingID: "rec-1", Kind: KindPlain, Content: "hi"}); err != nil {
		t.Fatalf("save transcript after upsert: %v", err)
	}
}

func TestPruneByDaysAndRecordings(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.StoreConfig{
		Path:          filepath.Join(tmp, "minute.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
		MaxRecordings: 1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.SaveRecording(context.Background(), Recording{ID: "old-rec"}); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	if err := s.SaveTranscript(context.Background(), Transcript{RecordingID: "old-rec", Kind: KindPlain, Content: "old"}); err != nil {
		t.Fatalf("save transcript: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.SaveRecording(context.Background(), Recording{ID: "new-rec"}); err != nil {
		t.Fatalf("save recording: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	transcripts, err := s.ListTranscripts(context.Background(), "old-rec", 10)
	if err != nil {
		t.Fatalf("list transcripts: %v", err)
	}
	if len(transcripts) != 0 {
		t.Fatalf("expected old recording pruned, got %d transcripts", len(transcripts))
	}
}

package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/minutelabs/minute-core/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() config.SummarizeConfig {
	return config.SummarizeConfig{
		Enabled:     true,
		Mode:        "mock",
		Model:       "llama3.2:3b",
		MaxTokens:   600,
		Temperature: 0.1,
	}
}

func TestBuildPromptIncludesTranscript(t *testing.T) {
	prompt := BuildPrompt("we agreed to ship on tuesday")
	if !strings.Contains(prompt, "we agreed to ship on tuesday") {
		t.Fatal("transcript missing from prompt")
	}
	for _, heading := range []string{"**KEY DECISIONS**", "**ACTION ITEMS**", "**NEXT STEPS**", "**KEY RISKS**"} {
		if !strings.Contains(prompt, heading) {
			t.Fatalf("prompt missing heading %s", heading)
		}
	}
}

func TestBuildPromptTruncatesLongTranscript(t *testing.T) {
	long := strings.Repeat("a", transcriptCharLimit+500)
	prompt := BuildPrompt(long)
	if strings.Contains(prompt, strings.Repeat("a", transcriptCharLimit+1)) {
		t.Fatal("transcript not truncated")
	}
	if !strings.Contains(prompt, strings.Repeat("a", transcriptCharLimit)) {
		t.Fatal("truncated transcript missing")
	}
}

func TestSummarizeWithMockBackend(t *testing.T) {
	s, err := New(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary, err := s.Summarize(context.Background(), "the team discussed the roadmap")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(summary, "**KEY DECISIONS**") {
		t.Fatalf("expected structured summary, got %q", summary)
	}
}

func TestSummarizeRejectsEmptyTranscript(t *testing.T) {
	s, err := New(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Summarize(context.Background(), "   \n"); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestNewRejectsUnknownMode(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = "telepathy"
	if _, err := New(cfg, testLogger()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

type failingGenerator struct{ err error }

func (f *failingGenerator) Generate(context.Context, Request, func(Chunk) error) error {
	return f.err
}

func TestSummarizeWrapsGeneratorFailure(t *testing.T) {
	s, err := New(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cause := errors.New("model offline")
	s.gen = &failingGenerator{err: cause}

	_, err = s.Summarize(context.Background(), "some transcript")
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestOllamaGeneratorStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"response":"**KEY DECISIONS**","done":false}`+"\n")
		io.WriteString(w, `{"response":"\n• ship tuesday","done":true,"eval_count":12,"prompt_eval_count":40}`+"\n")
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Mode = "ollama"
	cfg.Endpoint = srv.URL
	s, err := New(cfg, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := s.Summarize(context.Background(), "we decided to ship tuesday")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "**KEY DECISIONS**\n• ship tuesday" {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

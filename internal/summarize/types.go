// Package summarize turns a finished transcript into a structured meeting
// summary through a pluggable generation backend.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/minutelabs/minute-core/internal/config"
)

// transcriptCharLimit bounds the prompt so small local models stay inside
// their context window.
const transcriptCharLimit = 4000

// Request describes one summary generation.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
	TraceID     string
}

// Chunk represents streamed generator output.
type Chunk struct {
	Content          string
	Partial          bool
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// Generator defines a pluggable summary backend.
type Generator interface {
	Generate(ctx context.Context, req Request, consumer func(Chunk) error) error
}

// BuildPrompt wraps the transcript in the structured meeting template,
// truncating it to transcriptCharLimit first.
func BuildPrompt(transcript string) string {
	if len(transcript) > transcriptCharLimit {
		transcript = transcript[:transcriptCharLimit]
	}
	return fmt.Sprintf(`Meeting Transcript:
%s

Output ONLY in this exact format:

**KEY DECISIONS**
• Decision point 1
• Decision point 2

**ACTION ITEMS**
• [Name]: [Specific task] by [deadline]
• [Name]: [Specific task] by [deadline]

**NEXT STEPS**
• Next immediate action needed
• Follow-up required

**KEY RISKS**
• Potential risk or concern identified
• Another risk that needs attention`, transcript)
}

// Summarizer runs the configured backend over a transcript and collects the
// streamed output into one document.
type Summarizer struct {
	cfg config.SummarizeConfig
	gen Generator
	log *slog.Logger
}

func New(cfg config.SummarizeConfig, log *slog.Logger) (*Summarizer, error) {
	var gen Generator
	var err error
	switch cfg.Mode {
	case "mock":
		gen = NewMockGenerator()
	case "ollama":
		gen = NewOllamaGenerator(cfg.Endpoint, cfg.Model)
	case "exec":
		gen, err = NewExecGenerator(cfg.Command)
	default:
		err = fmt.Errorf("unknown summarize mode %q", cfg.Mode)
	}
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		cfg: cfg,
		gen: gen,
		log: log.With(slog.String("component", "summarize")),
	}, nil
}

// Summarize generates the structured summary for transcript. An empty
// transcript is an error: there is nothing to summarize.
func (s *Summarizer) Summarize(ctx context.Context, transcript string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", fmt.Errorf("empty transcript")
	}

	req := Request{
		Prompt:      BuildPrompt(transcript),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	start := time.Now()
	var b strings.Builder
	err := s.gen.Generate(ctx, req, func(chunk Chunk) error {
		b.WriteString(chunk.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	s.log.Info("summary generated",
		slog.Int("transcript_chars", len(transcript)),
		slog.Int("summary_chars", b.Len()),
		slog.Duration("latency", time.Since(start)))
	return strings.TrimSpace(b.String()), nil
}

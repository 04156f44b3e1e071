package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/minutelabs/minute-core/internal/audio"
	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/textclean"
)

// Factory builds a recognizer backend for one streaming run.
type Factory func(wordMode bool) (Recognizer, error)

// Transcriber drives a recognizer backend over canonical PCM files in fixed
// chunks. One instance is safe for sequential reuse; each run gets a fresh
// backend from the factory.
type Transcriber struct {
	cfg config.RecognizerConfig
	log *slog.Logger

	// Factory may be replaced to inject a scripted backend.
	Factory Factory
}

func NewTranscriber(cfg config.RecognizerConfig, log *slog.Logger) *Transcriber {
	t := &Transcriber{
		cfg: cfg,
		log: log.With(slog.String("component", "transcriber")),
	}
	t.Factory = func(wordMode bool) (Recognizer, error) {
		return New(cfg, wordMode, log)
	}
	return t
}

// ChunkSeconds reports the duration of one chunk, used by the energy
// segmenter to estimate elapsed time from result counts.
func (t *Transcriber) ChunkSeconds() float64 {
	return float64(t.cfg.ChunkFrames) / float64(t.cfg.SampleRate)
}

// SampleRate reports the frame rate the recognizer expects.
func (t *Transcriber) SampleRate() int {
	return t.cfg.SampleRate
}

// StreamFile reads the canonical WAV at path in chunks of ChunkFrames frames,
// submitting each to a fresh recognizer backend. onFinal is invoked for every
// finalized utterance in stream order; the engine's pending result after
// stream exhaustion is returned. Any engine failure aborts the whole run and
// the caller discards accumulated progress.
func (t *Transcriber) StreamFile(ctx context.Context, path string, wordMode bool, onFinal func(Result) error) (Result, error) {
	rec, err := t.Factory(wordMode)
	if err != nil {
		return Result{}, err
	}
	defer rec.Close()

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open audio stream: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return Result{}, fmt.Errorf("%w: %s", audio.ErrCorruptAudio, path)
	}

	frames := &gaudio.IntBuffer{
		Format: &gaudio.Format{NumChannels: 1, SampleRate: t.cfg.SampleRate},
		Data:   make([]int, t.cfg.ChunkFrames),
	}
	chunk := make([]byte, 0, t.cfg.ChunkFrames*2)

	for {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}

		n, err := dec.PCMBuffer(frames)
		if err != nil {
			return Result{}, fmt.Errorf("read pcm chunk: %w", err)
		}
		if n == 0 {
			break
		}

		chunk = chunk[:0]
		for _, s := range frames.Data[:n] {
			v := uint16(int16(s))
			chunk = append(chunk, byte(v), byte(v>>8))
		}

		final, err := rec.Accept(chunk)
		if err != nil {
			return Result{}, err
		}
		if !final {
			continue
		}
		res, err := rec.Result()
		if err != nil {
			return Result{}, err
		}
		if onFinal != nil {
			if err := onFinal(res); err != nil {
				return Result{}, err
			}
		}
	}

	return rec.FinalResult()
}

// Transcribe runs the plain pass: finalized fragments joined with single
// spaces, sanitized. Word timings are not requested.
func (t *Transcriber) Transcribe(ctx context.Context, path string) (string, error) {
	var parts []string
	final, err := t.StreamFile(ctx, path, false, func(res Result) error {
		if strings.TrimSpace(res.Text) != "" {
			parts = append(parts, res.Text)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(final.Text) != "" {
		parts = append(parts, final.Text)
	}
	return textclean.Sanitize(strings.Join(parts, " ")), nil
}

// TranscribeWithWords runs the word-mode pass, returning the sanitized full
// transcript plus the complete word event list in stream order.
func (t *Transcriber) TranscribeWithWords(ctx context.Context, path string) (string, []Word, error) {
	var parts []string
	var words []Word
	collect := func(res Result) error {
		if strings.TrimSpace(res.Text) != "" {
			parts = append(parts, res.Text)
		}
		words = append(words, res.Words...)
		return nil
	}
	final, err := t.StreamFile(ctx, path, true, collect)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(final.Text) != "" {
		parts = append(parts, final.Text)
	}
	words = append(words, final.Words...)
	return textclean.Sanitize(strings.Join(parts, " ")), words, nil
}

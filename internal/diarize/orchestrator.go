package diarize

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minutelabs/minute-core/internal/audio"
	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/recognize"
)

// Strategy selects the segmentation heuristic.
type Strategy string

const (
	StrategySilence Strategy = "silence"
	StrategyEnergy  Strategy = "energy"
)

// Orchestrator runs the chosen segmenter over a normalized recording and
// degrades to a plain single-speaker transcription when segmentation fails.
// The fallback is a first-class result, not an error: callers always get a
// usable transcript unless transcription itself is impossible.
type Orchestrator struct {
	cfg config.DiarizeConfig
	tr  *recognize.Transcriber
	log *slog.Logger
}

func NewOrchestrator(cfg config.DiarizeConfig, tr *recognize.Transcriber, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg: cfg,
		tr:  tr,
		log: log.With(slog.String("component", "diarize")),
	}
}

// Run segments the recording at path with the given strategy. On segmenter
// failure it returns a degraded single-speaker result with Warning set; an
// error is returned only when the fallback transcription fails too.
func (o *Orchestrator) Run(ctx context.Context, path string, strategy Strategy) (Result, error) {
	var (
		result Result
		err    error
	)
	switch strategy {
	case StrategyEnergy:
		result, err = o.runEnergy(ctx, path)
	case StrategySilence, "":
		result, err = o.runSilence(ctx, path)
	default:
		err = fmt.Errorf("unknown diarization strategy %q", strategy)
	}
	if err == nil {
		return result, nil
	}

	o.log.Warn("diarization failed, falling back to single speaker",
		slog.String("strategy", string(strategy)),
		slog.String("error", err.Error()))
	return o.fallback(ctx, path, err)
}

func (o *Orchestrator) ensureCanonical(path string) error {
	channels, bitDepth, sampleRate, err := audio.Probe(path)
	if err != nil {
		return err
	}
	if channels != 1 || bitDepth != 16 || sampleRate != o.tr.SampleRate() {
		return fmt.Errorf("%w: got %d channels, %d-bit, %d Hz",
			ErrInvalidAudioFormat, channels, bitDepth, sampleRate)
	}
	return nil
}

func (o *Orchestrator) runSilence(ctx context.Context, path string) (Result, error) {
	if err := o.ensureCanonical(path); err != nil {
		return Result{}, err
	}

	seg := NewSilenceSegmenter(o.cfg)
	final, err := o.tr.StreamFile(ctx, path, true, func(res recognize.Result) error {
		seg.Observe(res)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	segments := seg.Flush(final)
	if len(segments) == 0 {
		return Result{SpeakerCount: 1}, nil
	}
	return Result{
		FullTranscript: formatSegments(segments),
		Segments:       segments,
		SpeakerCount:   distinctSpeakers(segments),
		TotalDuration:  segments[len(segments)-1].End,
	}, nil
}

func (o *Orchestrator) runEnergy(ctx context.Context, path string) (Result, error) {
	if err := o.ensureCanonical(path); err != nil {
		return Result{}, err
	}

	samples, sampleRate, err := audio.ReadSamples(path)
	if err != nil {
		return Result{}, err
	}

	seg := NewEnergySegmenter(o.cfg, o.tr.ChunkSeconds())
	seg.AnalyzeSignal(samples, sampleRate)

	final, err := o.tr.StreamFile(ctx, path, true, func(res recognize.Result) error {
		seg.Observe(res)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	seg.ObserveFinal(final)

	totalDuration := float64(len(samples)) / float64(sampleRate)
	return seg.Render(totalDuration), nil
}

// fallback reuses the plain transcription path with a visible degradation
// marker. The failed pass's partial progress is discarded entirely.
func (o *Orchestrator) fallback(ctx context.Context, path string, cause error) (Result, error) {
	text, err := o.tr.Transcribe(ctx, path)
	if err != nil {
		return Result{}, fmt.Errorf("fallback transcription: %w", err)
	}
	full := fmt.Sprintf("[Single Speaker - Diarization Failed: %v]", cause)
	if text != "" {
		full += "\n\n" + text
	}
	return Result{
		FullTranscript: full,
		Segments: []Segment{{
			SpeakerID: 1,
			Text:      text,
		}},
		SpeakerCount: 1,
		Warning:      fmt.Sprintf("speaker diarization failed: %v", cause),
		Degraded:     true,
	}, nil
}

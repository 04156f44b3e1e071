// Package pipeline runs recordings through normalization, recognition,
// segmentation and summarization, persisting every artifact it produces.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/minutelabs/minute-core/internal/audio"
	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/diarize"
	"github.com/minutelabs/minute-core/internal/protocol"
	"github.com/minutelabs/minute-core/internal/recognize"
	"github.com/minutelabs/minute-core/internal/store"
	"github.com/minutelabs/minute-core/internal/summarize"
	"github.com/minutelabs/minute-core/internal/transcript"
)

// Processor executes one transcription job end to end.
type Processor struct {
	cfg   config.Config
	tr    *recognize.Transcriber
	agg   transcript.Aggregator
	orch  *diarize.Orchestrator
	sum   *summarize.Summarizer
	store *store.Store
	log   *slog.Logger

	meter       metric.Meter
	jobCounter  metric.Int64Counter
	jobDuration metric.Float64Histogram
}

func NewProcessor(cfg config.Config, st *store.Store, log *slog.Logger) (*Processor, error) {
	tr := recognize.NewTranscriber(cfg.Recognizer, log)

	var sum *summarize.Summarizer
	if cfg.Summarize.Enabled {
		var err error
		sum, err = summarize.New(cfg.Summarize, log)
		if err != nil {
			return nil, fmt.Errorf("init summarizer: %w", err)
		}
	}

	p := &Processor{
		cfg:   cfg,
		tr:    tr,
		agg:   transcript.NewAggregator(cfg.Transcript),
		orch:  diarize.NewOrchestrator(cfg.Diarize, tr, log),
		sum:   sum,
		store: st,
		log:   log.With(slog.String("component", "pipeline")),
		meter: otel.Meter("github.com/minutelabs/minute-core/runtime"),
	}

	if err := p.initMetrics(); err != nil {
		p.log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return p, nil
}

func (p *Processor) initMetrics() error {
	if p.meter == nil {
		return nil
	}
	counter, err := p.meter.Int64Counter("minute.jobs.processed",
		metric.WithDescription("Completed transcription jobs by outcome"))
	if err != nil {
		return err
	}
	duration, err := p.meter.Float64Histogram("minute.jobs.duration",
		metric.WithDescription("Job processing time in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return err
	}
	p.jobCounter = counter
	p.jobDuration = duration
	return nil
}

func (p *Processor) recordJob(ctx context.Context, outcome string, elapsed time.Duration) {
	if p.jobCounter != nil {
		p.jobCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if p.jobDuration != nil {
		p.jobDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

// Transcriber exposes the underlying recognizer driver, mainly so tests can
// inject a scripted backend.
func (p *Processor) Transcriber() *recognize.Transcriber { return p.tr }

// Process runs one job. Degraded diarization results are reported, not
// failed; an error means no transcript could be produced at all.
func (p *Processor) Process(ctx context.Context, req protocol.TranscribeRequest) (protocol.TranscribeResult, error) {
	start := time.Now()
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	log := p.log.With(slog.String("job_id", jobID), slog.String("audio_path", req.AudioPath))

	res, err := p.process(ctx, jobID, req, log)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.Degraded:
		outcome = "degraded"
	}
	p.recordJob(ctx, outcome, time.Since(start))
	if err != nil {
		log.Error("job failed", slog.String("error", err.Error()))
		if serr := p.store.SetRecordingStatus(ctx, jobID, "failed"); serr != nil {
			log.Warn("failed to mark recording failed", slog.String("error", serr.Error()))
		}
		return protocol.TranscribeResult{}, err
	}
	log.Info("job complete",
		slog.String("outcome", outcome),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("speaker_count", res.SpeakerCount))
	return res, nil
}

func (p *Processor) process(ctx context.Context, jobID string, req protocol.TranscribeRequest, log *slog.Logger) (protocol.TranscribeResult, error) {
	canonical, cleanup, err := audio.Normalize(req.AudioPath, log)
	if err != nil {
		return protocol.TranscribeResult{}, fmt.Errorf("normalize audio: %w", err)
	}
	defer cleanup()

	channels, _, sampleRate, err := audio.Probe(canonical)
	if err != nil {
		return protocol.TranscribeResult{}, fmt.Errorf("probe audio: %w", err)
	}
	samples, _, err := audio.ReadSamples(canonical)
	if err != nil {
		return protocol.TranscribeResult{}, fmt.Errorf("read audio: %w", err)
	}
	duration := float64(len(samples)) / float64(sampleRate)

	if err := p.store.SaveRecording(ctx, store.Recording{
		ID:         jobID,
		SourcePath: req.AudioPath,
		Duration:   duration,
		SampleRate: sampleRate,
		Channels:   channels,
		Status:     "processing",
	}); err != nil {
		return protocol.TranscribeResult{}, fmt.Errorf("save recording: %w", err)
	}

	result := protocol.TranscribeResult{JobID: jobID, Duration: duration}

	switch {
	case req.Diarize:
		strategy := diarize.Strategy(req.Strategy)
		if strategy == "" {
			strategy = diarize.Strategy(p.cfg.Diarize.Strategy)
		}
		dres, err := p.orch.Run(ctx, canonical, strategy)
		if err != nil {
			return protocol.TranscribeResult{}, fmt.Errorf("diarize: %w", err)
		}
		result.Transcript = dres.FullTranscript
		result.SpeakerCount = dres.SpeakerCount
		result.Warning = dres.Warning
		result.Degraded = dres.Degraded
		for _, seg := range dres.Segments {
			result.Segments = append(result.Segments, protocol.SpeakerSegment{
				SpeakerID: seg.SpeakerID,
				Start:     seg.Start,
				End:       seg.End,
				Duration:  seg.Duration,
				Text:      seg.Text,
			})
		}
		if err := p.store.SaveTranscript(ctx, store.Transcript{
			RecordingID:  jobID,
			Kind:         store.KindDiarized,
			Content:      dres.FullTranscript,
			WordCount:    len(strings.Fields(dres.FullTranscript)),
			SpeakerCount: dres.SpeakerCount,
			Degraded:     dres.Degraded,
			Warning:      dres.Warning,
		}); err != nil {
			return protocol.TranscribeResult{}, fmt.Errorf("save diarized transcript: %w", err)
		}

	case req.Timestamped:
		text, words, err := p.tr.TranscribeWithWords(ctx, canonical)
		if err != nil {
			return protocol.TranscribeResult{}, fmt.Errorf("transcribe: %w", err)
		}
		doc := p.agg.Aggregate(words)
		result.Transcript = text
		result.Timestamped = doc.Timestamped
		if err := p.store.SaveTranscript(ctx, store.Transcript{
			RecordingID: jobID,
			Kind:        store.KindTimestamped,
			Content:     doc.Timestamped,
			WordCount:   doc.Stats.WordCount,
		}); err != nil {
			return protocol.TranscribeResult{}, fmt.Errorf("save timestamped transcript: %w", err)
		}

	default:
		text, err := p.tr.Transcribe(ctx, canonical)
		if err != nil {
			return protocol.TranscribeResult{}, fmt.Errorf("transcribe: %w", err)
		}
		result.Transcript = text
		if err := p.store.SaveTranscript(ctx, store.Transcript{
			RecordingID: jobID,
			Kind:        store.KindPlain,
			Content:     text,
			WordCount:   len(strings.Fields(text)),
		}); err != nil {
			return protocol.TranscribeResult{}, fmt.Errorf("save transcript: %w", err)
		}
	}

	if req.Summarize && p.sum != nil && strings.TrimSpace(result.Transcript) != "" {
		summary, err := p.sum.Summarize(ctx, result.Transcript)
		if err != nil {
			log.Warn("summary generation failed", slog.String("error", err.Error()))
		} else {
			result.Summary = summary
			if err := p.store.SaveTranscript(ctx, store.Transcript{
				RecordingID: jobID,
				Kind:        store.KindSummary,
				Content:     summary,
			}); err != nil {
				return protocol.TranscribeResult{}, fmt.Errorf("save summary: %w", err)
			}
		}
	}

	if err := p.store.SetRecordingStatus(ctx, jobID, "done"); err != nil {
		return protocol.TranscribeResult{}, fmt.Errorf("mark recording done: %w", err)
	}
	result.CompletedAt = time.Now().UTC()
	return result, nil
}

package diarize

import (
	"fmt"
	"math"
	"strings"

	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/recognize"
	"github.com/minutelabs/minute-core/internal/textclean"
)

// Window is one fixed-duration slice of signal used to estimate loudness.
type Window struct {
	Index      int
	MeanSquare float64
	Normalized float64
}

// EnergyWindows partitions samples into non-overlapping windows of
// windowFrames frames (the last window may be shorter) and computes the
// mean-square energy of each, normalized by the loudest window observed.
// A fully silent signal normalizes against 1 instead of dividing by zero.
func EnergyWindows(samples []int16, windowFrames int) []Window {
	if windowFrames <= 0 || len(samples) == 0 {
		return nil
	}
	var windows []Window
	for start := 0; start < len(samples); start += windowFrames {
		end := start + windowFrames
		if end > len(samples) {
			end = len(samples)
		}
		var sum float64
		for _, s := range samples[start:end] {
			sum += float64(s) * float64(s)
		}
		windows = append(windows, Window{
			Index:      len(windows),
			MeanSquare: sum / float64(end-start),
		})
	}

	max := 0.0
	for _, w := range windows {
		if w.MeanSquare > max {
			max = w.MeanSquare
		}
	}
	if max == 0 {
		max = 1
	}
	for i := range windows {
		windows[i].Normalized = windows[i].MeanSquare / max
	}
	return windows
}

// Boundaries walks windows in order tracking the current speaker's energy
// level and records every window whose normalized energy departs from it by
// more than threshold. Window 0 is always in the set: the first speaker
// starts there.
func Boundaries(windows []Window, threshold float64) map[int]struct{} {
	set := map[int]struct{}{0: {}}
	if len(windows) == 0 {
		return set
	}
	current := windows[0].Normalized
	for _, w := range windows[1:] {
		if math.Abs(w.Normalized-current) > threshold {
			set[w.Index] = struct{}{}
			current = w.Normalized
		}
	}
	return set
}

type taggedChunk struct {
	speakerID int
	text      string
	estimated float64
}

// EnergySegmenter runs the signal-driven second pass: energy windows mark
// candidate speaker changes, then finalized chunk results are tagged with
// speaker ids by estimating each chunk's time from its position in the
// stream. The estimate is coarse by design; boundaries are approximate, not
// measured.
type EnergySegmenter struct {
	Threshold float64
	WindowSec float64
	ChunkSec  float64

	boundaries map[int]struct{}
	chunks     []taggedChunk
	speakerID  int
	collected  int
}

func NewEnergySegmenter(cfg config.DiarizeConfig, chunkSec float64) *EnergySegmenter {
	return &EnergySegmenter{
		Threshold: cfg.EnergyThreshold,
		WindowSec: cfg.EnergyWindowSec,
		ChunkSec:  chunkSec,
		speakerID: 1,
	}
}

// AnalyzeSignal computes the boundary set for the whole recording. Must run
// before the recognition pass feeds Observe.
func (e *EnergySegmenter) AnalyzeSignal(samples []int16, sampleRate int) {
	windowFrames := int(e.WindowSec * float64(sampleRate))
	e.boundaries = Boundaries(EnergyWindows(samples, windowFrames), e.Threshold)
}

// Observe tags one finalized chunk result with the current speaker,
// advancing the speaker id when the chunk's estimated time lands in a
// boundary window and at least one chunk has already been assigned.
func (e *EnergySegmenter) Observe(res recognize.Result) {
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return
	}
	estimated := float64(e.collected) * e.ChunkSec
	window := int(estimated / e.WindowSec)
	if _, ok := e.boundaries[window]; ok && len(e.chunks) > 0 {
		e.speakerID++
	}
	e.chunks = append(e.chunks, taggedChunk{speakerID: e.speakerID, text: text, estimated: estimated})
	e.collected++
}

// ObserveFinal appends the engine's final pending text to the current
// speaker without testing for a boundary.
func (e *EnergySegmenter) ObserveFinal(final recognize.Result) {
	text := strings.TrimSpace(final.Text)
	if text == "" {
		return
	}
	e.chunks = append(e.chunks, taggedChunk{
		speakerID: e.speakerID,
		text:      text,
		estimated: float64(e.collected) * e.ChunkSec,
	})
}

// Render merges consecutive same-speaker chunks into paragraphs and builds
// the labeled transcript. totalDuration is measured from the signal, not
// estimated.
func (e *EnergySegmenter) Render(totalDuration float64) Result {
	if len(e.chunks) == 0 {
		return Result{SpeakerCount: 1, TotalDuration: totalDuration}
	}

	var segments []Segment
	var paragraphs []string
	start := 0
	for i := 1; i <= len(e.chunks); i++ {
		if i < len(e.chunks) && e.chunks[i].speakerID == e.chunks[start].speakerID {
			continue
		}
		group := e.chunks[start:i]
		var texts []string
		for _, c := range group {
			texts = append(texts, c.text)
		}
		text := textclean.Sanitize(strings.Join(texts, " "))
		first := group[0].estimated
		last := group[len(group)-1].estimated + e.ChunkSec
		segments = append(segments, Segment{
			SpeakerID: group[0].speakerID,
			Start:     first,
			End:       last,
			Duration:  last - first,
			Text:      text,
		})
		paragraphs = append(paragraphs, fmt.Sprintf("Speaker %d:\n%s", group[0].speakerID, text))
		start = i
	}

	return Result{
		FullTranscript: strings.TrimSpace(strings.Join(paragraphs, "\n\n")),
		Segments:       segments,
		SpeakerCount:   e.speakerID,
		TotalDuration:  totalDuration,
	}
}

package diarize

import (
	"strings"
	"testing"

	"github.com/minutelabs/minute-core/internal/recognize"
)

func TestEnergyWindowsNormalization(t *testing.T) {
	// Two full windows: mean squares 4 and 16, so 0.25 and 1.0 normalized.
	samples := []int16{2, -2, 2, -2, 4, -4, 4, -4}
	windows := EnergyWindows(samples, 4)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].MeanSquare != 4 || windows[1].MeanSquare != 16 {
		t.Fatalf("unexpected mean squares: %v, %v", windows[0].MeanSquare, windows[1].MeanSquare)
	}
	if windows[0].Normalized != 0.25 || windows[1].Normalized != 1.0 {
		t.Fatalf("unexpected normalized energies: %v, %v", windows[0].Normalized, windows[1].Normalized)
	}
}

func TestEnergyWindowsPartialTail(t *testing.T) {
	windows := EnergyWindows([]int16{1, 1, 1, 1, 3, 3}, 4)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[1].MeanSquare != 9 {
		t.Fatalf("partial window should average its own frames, got %v", windows[1].MeanSquare)
	}
}

func TestEnergyWindowsSilentSignal(t *testing.T) {
	windows := EnergyWindows(make([]int16, 8), 4)
	for _, w := range windows {
		if w.Normalized != 0 {
			t.Fatalf("silent window %d normalized to %v", w.Index, w.Normalized)
		}
	}
}

func TestBoundariesTracksLevelChanges(t *testing.T) {
	windows := []Window{
		{Index: 0, Normalized: 0.10},
		{Index: 1, Normalized: 0.15},
		{Index: 2, Normalized: 0.90},
		{Index: 3, Normalized: 0.85},
		{Index: 4, Normalized: 0.20},
	}
	set := Boundaries(windows, 0.3)
	for _, idx := range []int{0, 2, 4} {
		if _, ok := set[idx]; !ok {
			t.Fatalf("expected boundary at window %d, set %v", idx, set)
		}
	}
	if len(set) != 3 {
		t.Fatalf("expected 3 boundaries, got %v", set)
	}
}

func TestBoundariesMonotonicInThreshold(t *testing.T) {
	// Alternating quiet/loud seconds: lowering the threshold can only admit
	// more boundaries, never fewer.
	var windows []Window
	for i := 0; i < 12; i++ {
		level := 0.1
		if i%2 == 1 {
			level = 0.9
		}
		windows = append(windows, Window{Index: i, Normalized: level})
	}
	loose := Boundaries(windows, 0.5)
	tight := Boundaries(windows, 0.2)
	if len(tight) < len(loose) {
		t.Fatalf("boundary count shrank as threshold dropped: %d -> %d", len(loose), len(tight))
	}
	for idx := range loose {
		if _, ok := tight[idx]; !ok {
			t.Fatalf("boundary %d lost at tighter threshold", idx)
		}
	}
}

func TestEnergySegmenterTagsChunksByEstimatedTime(t *testing.T) {
	cfg := diarizeConfig()
	seg := NewEnergySegmenter(cfg, 1.0)
	seg.boundaries = map[int]struct{}{0: {}, 2: {}}

	seg.Observe(recognize.Result{Text: "good morning"})
	seg.Observe(recognize.Result{Text: "everyone"})
	seg.Observe(recognize.Result{Text: "thanks for joining"}) // estimated 2.0 lands in boundary window
	seg.Observe(recognize.Result{Text: "let us begin"})
	seg.ObserveFinal(recognize.Result{Text: "first item"})

	res := seg.Render(4.0)
	if res.SpeakerCount != 2 {
		t.Fatalf("expected 2 speakers, got %d", res.SpeakerCount)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	if res.Segments[0].Text != "good morning everyone" {
		t.Fatalf("unexpected first segment text: %q", res.Segments[0].Text)
	}
	if res.Segments[1].Text != "thanks for joining let us begin first item" {
		t.Fatalf("unexpected second segment text: %q", res.Segments[1].Text)
	}
	if res.Segments[0].Start != 0 || res.Segments[0].End != 2.0 {
		t.Fatalf("unexpected first segment span: [%v, %v]", res.Segments[0].Start, res.Segments[0].End)
	}
	if res.TotalDuration != 4.0 {
		t.Fatalf("expected measured duration 4.0, got %v", res.TotalDuration)
	}
	if !strings.Contains(res.FullTranscript, "Speaker 1:\ngood morning everyone") {
		t.Fatalf("missing first speaker paragraph:\n%s", res.FullTranscript)
	}
	if !strings.Contains(res.FullTranscript, "\n\nSpeaker 2:\nthanks for joining") {
		t.Fatalf("missing second speaker paragraph:\n%s", res.FullTranscript)
	}
}

func TestEnergySegmenterSkipsEmptyResults(t *testing.T) {
	seg := NewEnergySegmenter(diarizeConfig(), 1.0)
	seg.boundaries = map[int]struct{}{0: {}, 1: {}}

	seg.Observe(recognize.Result{Text: "hello"})
	seg.Observe(recognize.Result{Text: "  "})
	seg.Observe(recognize.Result{Text: ""})

	// Only one result collected: estimated time never reached window 1.
	res := seg.Render(3.0)
	if res.SpeakerCount != 1 {
		t.Fatalf("expected 1 speaker, got %d", res.SpeakerCount)
	}
	if len(res.Segments) != 1 || res.Segments[0].Text != "hello" {
		t.Fatalf("unexpected segments: %+v", res.Segments)
	}
}

func TestEnergySegmenterEmptyRender(t *testing.T) {
	seg := NewEnergySegmenter(diarizeConfig(), 0.25)
	seg.AnalyzeSignal(make([]int16, 16000), 16000)
	res := seg.Render(1.0)
	if res.SpeakerCount != 1 {
		t.Fatalf("expected speaker count 1 for empty render, got %d", res.SpeakerCount)
	}
	if res.FullTranscript != "" || len(res.Segments) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.TotalDuration != 1.0 {
		t.Fatalf("expected duration 1.0, got %v", res.TotalDuration)
	}
}

func TestAnalyzeSignalBoundariesFromSignal(t *testing.T) {
	// One quiet second then one loud second at a 100 Hz rate.
	samples := make([]int16, 200)
	for i := 0; i < 100; i++ {
		samples[i] = 10
	}
	for i := 100; i < 200; i++ {
		samples[i] = 1000
	}
	seg := NewEnergySegmenter(diarizeConfig(), 0.25)
	seg.AnalyzeSignal(samples, 100)
	if _, ok := seg.boundaries[1]; !ok {
		t.Fatalf("expected boundary at the loud window, set %v", seg.boundaries)
	}
	if len(seg.boundaries) != 2 {
		t.Fatalf("expected windows {0, 1}, got %v", seg.boundaries)
	}
}

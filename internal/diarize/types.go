// Package diarize partitions a recognized word stream into speaker segments
// using two heuristics: silence-gap analysis over word timings and
// energy-delta analysis over the raw signal.
package diarize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/minutelabs/minute-core/internal/transcript"
)

// ErrInvalidAudioFormat reports a segmenter invoked on non-canonical PCM.
var ErrInvalidAudioFormat = errors.New("audio must be mono 16-bit PCM")

// Segment is a contiguous time span attributed to one speaker.
type Segment struct {
	SpeakerID int     `json:"speaker_id"`
	Start     float64 `json:"start_time"`
	End       float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
}

// Result is the speaker-labeled transcript produced once per recording.
// Degraded marks the single-speaker fallback path.
type Result struct {
	FullTranscript string    `json:"full_transcript"`
	Segments       []Segment `json:"segments"`
	SpeakerCount   int       `json:"speaker_count"`
	TotalDuration  float64   `json:"total_duration"`
	Warning        string    `json:"warning,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// formatSegments renders the silence-gap display transcript:
// a timestamped speaker header followed by the segment text.
func formatSegments(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "\n[%s - %s] Speaker %d:\n%s\n",
			transcript.FormatTimestamp(seg.Start),
			transcript.FormatTimestamp(seg.End),
			seg.SpeakerID,
			seg.Text)
	}
	return strings.TrimSpace(b.String())
}

func distinctSpeakers(segments []Segment) int {
	seen := make(map[int]struct{}, len(segments))
	for _, seg := range segments {
		seen[seg.SpeakerID] = struct{}{}
	}
	return len(seen)
}

// Package protocol defines the bus messages exchanged between submitters and
// the processing pipeline.
package protocol

import "time"

// TranscribeRequest asks the pipeline to process one recording on disk.
type TranscribeRequest struct {
	JobID       string `json:"job_id"`
	AudioPath   string `json:"audio_path"`
	Timestamped bool   `json:"timestamped,omitempty"`
	Diarize     bool   `json:"diarize,omitempty"`
	Strategy    string `json:"strategy,omitempty"`
	Summarize   bool   `json:"summarize,omitempty"`
}

// SpeakerSegment mirrors one attributed span in a diarized result.
type SpeakerSegment struct {
	SpeakerID int     `json:"speaker_id"`
	Start     float64 `json:"start_time"`
	End       float64 `json:"end_time"`
	Duration  float64 `json:"duration"`
	Text      string  `json:"text"`
}

// TranscribeResult carries the finished artifacts for one job.
type TranscribeResult struct {
	JobID        string           `json:"job_id"`
	Transcript   string           `json:"transcript"`
	Timestamped  string           `json:"timestamped,omitempty"`
	Segments     []SpeakerSegment `json:"segments,omitempty"`
	SpeakerCount int              `json:"speaker_count,omitempty"`
	Summary      string           `json:"summary,omitempty"`
	Warning      string           `json:"warning,omitempty"`
	Degraded     bool             `json:"degraded,omitempty"`
	Error        string           `json:"error,omitempty"`
	Duration     float64          `json:"duration_seconds,omitempty"`
	CompletedAt  time.Time        `json:"completed_at"`
}

const (
	SubjectJobRequest = "minute.job.request"
	SubjectJobResult  = "minute.job.result"
)

package diarize

import (
	"strings"

	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/recognize"
	"github.com/minutelabs/minute-core/internal/textclean"
)

// SilenceSegmenter attributes speaker changes to long pauses in the word
// stream. State is carried explicitly across chunk boundaries: a segment
// closes when the pause since the last utterance boundary exceeds GapSec and
// the open segment already spans more than MinSegmentSec.
type SilenceSegmenter struct {
	GapSec        float64
	MinSegmentSec float64
	FinalFlushSec float64

	segmentStart float64
	lastBoundary float64
	speakerID    int
	words        []recognize.Word
	segments     []Segment
}

func NewSilenceSegmenter(cfg config.DiarizeConfig) *SilenceSegmenter {
	return &SilenceSegmenter{
		GapSec:        cfg.SilenceGapSec,
		MinSegmentSec: cfg.MinSegmentSec,
		FinalFlushSec: cfg.FinalFlushSec,
		speakerID:     1,
	}
}

// Observe consumes one finalized utterance. Utterances without text or word
// timings advance nothing.
func (s *SilenceSegmenter) Observe(res recognize.Result) {
	if strings.TrimSpace(res.Text) == "" || len(res.Words) == 0 {
		return
	}
	s.words = append(s.words, res.Words...)
	latestEnd := res.Words[len(res.Words)-1].End

	gap := latestEnd - s.lastBoundary
	if gap > s.GapSec && latestEnd-s.segmentStart > s.MinSegmentSec {
		s.close(latestEnd)
	}
	s.lastBoundary = latestEnd
}

// close ends the open segment at end, assigning it every word whose start
// falls inside [segmentStart, end], and hands the floor to the next speaker.
func (s *SilenceSegmenter) close(end float64) {
	s.segments = append(s.segments, Segment{
		SpeakerID: s.speakerID,
		Start:     s.segmentStart,
		End:       end,
		Duration:  end - s.segmentStart,
		Text:      textclean.Sanitize(s.textBetween(s.segmentStart, end)),
	})
	s.speakerID++
	s.segmentStart = end
}

func (s *SilenceSegmenter) textBetween(start, end float64) string {
	var parts []string
	for _, w := range s.words {
		if w.Start >= start && w.Start <= end {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}

// Flush closes the trailing segment after stream exhaustion: words not yet
// attributed to a segment plus the engine's final pending text. When the
// final result carries no word timings the end time is estimated as the last
// boundary plus FinalFlushSec.
func (s *SilenceSegmenter) Flush(final recognize.Result) []Segment {
	var parts []string
	for _, w := range s.words {
		if w.Start >= s.segmentStart {
			parts = append(parts, w.Text)
		}
	}
	if t := strings.TrimSpace(final.Text); t != "" {
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return s.segments
	}

	end := s.lastBoundary + s.FinalFlushSec
	if len(final.Words) > 0 {
		end = final.Words[len(final.Words)-1].End
	}
	s.segments = append(s.segments, Segment{
		SpeakerID: s.speakerID,
		Start:     s.segmentStart,
		End:       end,
		Duration:  end - s.segmentStart,
		Text:      textclean.Sanitize(strings.Join(parts, " ")),
	})
	return s.segments
}

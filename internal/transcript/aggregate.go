// Package transcript turns ordered word events into human-readable,
// line-wrapped timestamped transcripts with aggregate statistics.
package transcript

import (
	"fmt"
	"strings"

	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/recognize"
)

// Line is one rendered transcript line. Immutable once emitted.
type Line struct {
	Start     float64
	End       float64
	Text      string
	WordCount int
}

// Stats aggregates over the whole word stream. TotalDuration is the end time
// of the last word.
type Stats struct {
	WordCount      int
	TotalDuration  float64
	MeanConfidence float64
}

// Document is the full aggregation output for one recording.
type Document struct {
	FullText    string
	Timestamped string
	Lines       []Line
	Stats       Stats
}

// Aggregator groups words into lines greedily: a line closes when it reaches
// WordsPerLine words or when the pause before the next word exceeds
// LinePause seconds.
type Aggregator struct {
	WordsPerLine int
	LinePause    float64
}

func NewAggregator(cfg config.TranscriptConfig) Aggregator {
	return Aggregator{WordsPerLine: cfg.WordsPerLine, LinePause: cfg.LinePauseSec}
}

// Aggregate builds the document for an ordered word sequence. An empty
// sequence yields an empty document with zero stats.
func (a Aggregator) Aggregate(words []recognize.Word) Document {
	if len(words) == 0 {
		return Document{}
	}

	var (
		lines     []Line
		lineWords []string
		lineStart float64
		confSum   float64
	)
	started := false

	flush := func(end float64) {
		lines = append(lines, Line{
			Start:     lineStart,
			End:       end,
			Text:      strings.Join(lineWords, " "),
			WordCount: len(lineWords),
		})
		lineWords = lineWords[:0]
		started = false
	}

	for i, w := range words {
		if !started {
			lineStart = w.Start
			started = true
		}
		lineWords = append(lineWords, w.Text)
		confSum += w.Confidence

		if len(lineWords) >= a.WordsPerLine {
			flush(w.End)
			continue
		}
		if i < len(words)-1 && words[i+1].Start-w.End > a.LinePause {
			flush(w.End)
		}
	}
	if len(lineWords) > 0 {
		flush(words[len(words)-1].End)
	}

	rendered := make([]string, len(lines))
	texts := make([]string, 0, len(words))
	for i, ln := range lines {
		rendered[i] = fmt.Sprintf("[%s - %s] %s", FormatTimestamp(ln.Start), FormatTimestamp(ln.End), ln.Text)
	}
	for _, w := range words {
		texts = append(texts, w.Text)
	}

	return Document{
		FullText:    strings.Join(texts, " "),
		Timestamped: strings.Join(rendered, "\n"),
		Lines:       lines,
		Stats: Stats{
			WordCount:      len(words),
			TotalDuration:  words[len(words)-1].End,
			MeanConfidence: confSum / float64(len(words)),
		},
	}
}

// FormatTimestamp renders seconds as mm:ss, truncating fractions.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

package transcript

import (
	"strings"
	"testing"

	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/recognize"
)

func defaultAggregator() Aggregator {
	return NewAggregator(config.TranscriptConfig{WordsPerLine: 10, LinePauseSec: 1.0})
}

func word(text string, start, end float64) recognize.Word {
	return recognize.Word{Text: text, Start: start, End: end, Confidence: 1.0}
}

func TestAggregateSplitsOnPause(t *testing.T) {
	words := []recognize.Word{
		word("hello", 0.0, 0.5),
		word("world", 0.5, 1.0),
		word("pause", 3.5, 4.0),
	}
	doc := defaultAggregator().Aggregate(words)

	want := "[00:00 - 00:01] hello world\n[00:03 - 00:04] pause"
	if doc.Timestamped != want {
		t.Fatalf("expected:\n%s\ngot:\n%s", want, doc.Timestamped)
	}
	if doc.FullText != "hello world pause" {
		t.Fatalf("unexpected full text: %q", doc.FullText)
	}
}

func TestAggregateSplitsAtWordCap(t *testing.T) {
	var words []recognize.Word
	for i := 0; i < 25; i++ {
		start := float64(i) * 0.3
		words = append(words, word("w", start, start+0.3))
	}
	doc := defaultAggregator().Aggregate(words)

	if len(doc.Lines) != 3 {
		t.Fatalf("expected 3 lines for 25 words at cap 10, got %d", len(doc.Lines))
	}
	if doc.Lines[0].WordCount != 10 || doc.Lines[1].WordCount != 10 || doc.Lines[2].WordCount != 5 {
		t.Fatalf("unexpected line word counts: %+v", doc.Lines)
	}
}

func TestAggregateLineTextsReproduceWordSequence(t *testing.T) {
	words := []recognize.Word{
		word("a", 0, 0.2),
		word("b", 0.2, 0.4),
		word("c", 2.0, 2.2),
		word("d", 2.2, 2.4),
		word("e", 5.0, 5.2),
	}
	doc := defaultAggregator().Aggregate(words)

	var joined []string
	for _, ln := range doc.Lines {
		joined = append(joined, ln.Text)
	}
	if got := strings.Join(joined, " "); got != doc.FullText {
		t.Fatalf("line concatenation %q does not reproduce full text %q", got, doc.FullText)
	}
}

func TestAggregateIdempotentGrouping(t *testing.T) {
	words := []recognize.Word{
		word("one", 0, 0.5),
		word("two", 0.5, 1.0),
		word("three", 1.0, 1.5),
	}
	first := defaultAggregator().Aggregate(words)
	second := defaultAggregator().Aggregate(words)
	if first.Timestamped != second.Timestamped {
		t.Fatalf("expected identical groupings, got:\n%s\nvs:\n%s", first.Timestamped, second.Timestamped)
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	doc := defaultAggregator().Aggregate(nil)
	if doc.FullText != "" || doc.Timestamped != "" || len(doc.Lines) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
	if doc.Stats.WordCount != 0 || doc.Stats.TotalDuration != 0 || doc.Stats.MeanConfidence != 0 {
		t.Fatalf("expected zero stats, got %+v", doc.Stats)
	}
}

func TestAggregateStats(t *testing.T) {
	words := []recognize.Word{
		{Text: "hi", Start: 0, End: 0.4, Confidence: 0.8},
		{Text: "there", Start: 0.4, End: 1.2, Confidence: 1.0},
	}
	doc := defaultAggregator().Aggregate(words)
	if doc.Stats.WordCount != 2 {
		t.Fatalf("expected 2 words, got %d", doc.Stats.WordCount)
	}
	if doc.Stats.TotalDuration != 1.2 {
		t.Fatalf("expected duration 1.2, got %v", doc.Stats.TotalDuration)
	}
	if doc.Stats.MeanConfidence != 0.9 {
		t.Fatalf("expected mean confidence 0.9, got %v", doc.Stats.MeanConfidence)
	}
}

func TestFormatTimestampTruncates(t *testing.T) {
	cases := map[float64]string{
		0:     "00:00",
		59.9:  "00:59",
		60:    "01:00",
		125.7: "02:05",
	}
	for in, want := range cases {
		if got := FormatTimestamp(in); got != want {
			t.Fatalf("FormatTimestamp(%v): expected %s, got %s", in, want, got)
		}
	}
}

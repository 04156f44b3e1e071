package textclean

import "testing"

func TestSanitizeDropsNullAndSurrogate(t *testing.T) {
	in := "hello\x00 wor\xed\xa0\x80ld"
	got := Sanitize(in)
	if got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
	if again := Sanitize(got); again != got {
		t.Fatalf("expected idempotence, got %q then %q", got, again)
	}
}

func TestSanitizeCollapsesWhitespace(t *testing.T) {
	got := Sanitize("  one \t two\n\nthree  ")
	if got != "one two three" {
		t.Fatalf("expected %q, got %q", "one two three", got)
	}
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	got := Sanitize("a\x07b\x1bc")
	if got != "abc" {
		t.Fatalf("expected control chars deleted without separating, got %q", got)
	}
}

func TestSanitizeCleanInputUnchanged(t *testing.T) {
	in := "already clean text"
	if got := Sanitize(in); got != in {
		t.Fatalf("expected unchanged, got %q", got)
	}
}

func TestSanitizeKeepsNonASCII(t *testing.T) {
	in := "café naïve"
	if got := Sanitize(in); got != in {
		t.Fatalf("expected valid non-ASCII preserved, got %q", got)
	}
}

func TestASCIIFallbackDropsHighCodePoints(t *testing.T) {
	if got := asciiFallback("café"); got != "caf" {
		t.Fatalf("expected %q, got %q", "caf", got)
	}
}

func TestSanitizeEmpty(t *testing.T) {
	if got := Sanitize(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

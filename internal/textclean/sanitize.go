// Package textclean normalizes recognizer output before it reaches
// transcripts or the summarizer prompt.
package textclean

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize maps recognizer text to clean UTF-8: invalid sequences and
// surrogate halves are dropped, control characters other than newline and tab
// are deleted, whitespace runs collapse to single spaces and the result is
// trimmed. It never fails; if cleaning panics for any reason the ASCII-only
// fallback is returned instead. Sanitize is idempotent on clean input.
func Sanitize(text string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = asciiFallback(text)
		}
	}()
	return clean(text)
}

func clean(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r == utf8.RuneError && size == 1 {
			continue // invalid byte or unpaired surrogate
		}
		if unicode.Is(unicode.Cs, r) {
			continue
		}
		if r == '\n' || r == '\t' {
			b.WriteRune(r)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	// Newline and tab survive control stripping so they still separate words
	// here instead of gluing them together.
	return strings.Join(strings.Fields(b.String()), " ")
}

// asciiFallback drops every code point above 127. Lossy, but it cannot fail.
func asciiFallback(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r >= 128 {
			continue
		}
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

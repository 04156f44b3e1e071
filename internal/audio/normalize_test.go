package audio

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeWAV(t *testing.T, path string, channels, sampleRate int, samples []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
}

func TestNormalizeMonoPassthrough(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.wav")
	writeWAV(t, path, 1, 16000, []int{100, -100, 200, -200})

	got, cleanup, err := Normalize(path, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if got != path {
		t.Fatalf("expected passthrough path %s, got %s", path, got)
	}
}

func TestNormalizeStereoDownmix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	// Interleaved L/R pairs; averages are 150, 400, -100.
	writeWAV(t, path, 2, 16000, []int{100, 200, 300, 500, -200, 0})

	got, cleanup, err := Normalize(path, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if got == path {
		t.Fatal("expected a converted file, got passthrough")
	}

	samples, rate, err := ReadSamples(got)
	if err != nil {
		t.Fatalf("read converted samples: %v", err)
	}
	if rate != 16000 {
		t.Fatalf("expected frame rate preserved, got %d", rate)
	}
	want := []int16{150, 400, -100}
	if len(samples) != len(want) {
		t.Fatalf("expected %d mono samples (one per frame), got %d", len(want), len(samples))
	}
	for i, s := range samples {
		if s != want[i] {
			t.Fatalf("sample %d: expected average %d, got %d", i, want[i], s)
		}
	}
}

func TestNormalizeCleanupRemovesConvertedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeWAV(t, path, 2, 16000, []int{1, 1, 2, 2})

	got, cleanup, err := Normalize(path, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cleanup()
	if _, err := os.Stat(got); !os.IsNotExist(err) {
		t.Fatalf("expected converted file removed, stat err = %v", err)
	}
}

func TestNormalizeRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.mp3")
	if err := os.WriteFile(path, []byte("ID3 not a wav"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, _, err := Normalize(path, discardLogger())
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNormalizeRejectsGarbageHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("definitely not riff data"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	_, _, err := Normalize(path, discardLogger())
	if !errors.Is(err, ErrCorruptAudio) {
		t.Fatalf("expected ErrCorruptAudio, got %v", err)
	}
}

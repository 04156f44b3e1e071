package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Canonical form expected by every stage downstream of Normalize: mono,
// 16-bit, uncompressed PCM. Frame rate is preserved from the source.
const (
	canonicalChannels = 1
	canonicalBitDepth = 16
	pcmFormat         = 1
)

var (
	// ErrUnsupportedFormat reports a container that is not a WAV file.
	ErrUnsupportedFormat = errors.New("unsupported audio format: only WAV is supported")
	// ErrCorruptAudio reports a WAV file whose headers cannot be parsed.
	ErrCorruptAudio = errors.New("corrupt audio: unreadable WAV headers")
)

// Normalize validates the WAV container at path and, when the encoding is not
// already mono 16-bit PCM, writes a converted temp file. The returned path is
// safe to feed to the recognizer; the returned cleanup must be called once the
// caller is done with it and is a no-op when no conversion happened. Cleanup
// failures are logged and swallowed.
func Normalize(path string, log *slog.Logger) (string, func(), error) {
	noop := func() {}

	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return "", noop, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", noop, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return "", noop, fmt.Errorf("%w: %s", ErrCorruptAudio, filepath.Base(path))
	}

	if int(dec.NumChans) == canonicalChannels &&
		int(dec.BitDepth) == canonicalBitDepth &&
		int(dec.WavAudioFormat) == pcmFormat {
		return path, noop, nil
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", ErrCorruptAudio, err)
	}

	converted, err := writeCanonical(buf, int(dec.NumChans), int(dec.SampleRate))
	if err != nil {
		return "", noop, err
	}

	cleanup := func() {
		if err := os.Remove(converted); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove converted audio file",
				slog.String("path", converted),
				slog.String("error", err.Error()))
		}
	}
	return converted, cleanup, nil
}

// writeCanonical downmixes to mono and forces 16-bit samples, preserving the
// source frame rate. Stereo pairs are averaged with integer division.
func writeCanonical(buf *gaudio.IntBuffer, channels, sampleRate int) (string, error) {
	samples := buf.Data
	if channels == 2 {
		mono := make([]int, 0, len(samples)/2)
		for i := 0; i+1 < len(samples); i += 2 {
			mono = append(mono, (samples[i]+samples[i+1])/2)
		}
		samples = mono
	}
	for i, s := range samples {
		if s > 32767 {
			samples[i] = 32767
		} else if s < -32768 {
			samples[i] = -32768
		}
	}

	out, err := os.CreateTemp("", "minute_norm_*.wav")
	if err != nil {
		return "", fmt.Errorf("create converted audio file: %w", err)
	}

	enc := wav.NewEncoder(out, sampleRate, canonicalBitDepth, canonicalChannels, pcmFormat)
	werr := enc.Write(&gaudio.IntBuffer{
		Format:         &gaudio.Format{NumChannels: canonicalChannels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: canonicalBitDepth,
	})
	if werr == nil {
		werr = enc.Close()
	}
	cerr := out.Close()
	if werr != nil || cerr != nil {
		os.Remove(out.Name())
		if werr == nil {
			werr = cerr
		}
		return "", fmt.Errorf("write converted audio file: %w", werr)
	}
	return out.Name(), nil
}

// ReadSamples decodes a canonical WAV file into raw samples plus its frame
// rate. Used by the energy pass, which needs the whole signal at once.
func ReadSamples(path string) ([]int16, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s", ErrCorruptAudio, filepath.Base(path))
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCorruptAudio, err)
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}
	return samples, int(dec.SampleRate), nil
}

// Probe reports the container parameters without decoding sample data.
func Probe(path string) (channels, bitDepth, sampleRate int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrCorruptAudio, filepath.Base(path))
	}
	return int(dec.NumChans), int(dec.BitDepth), int(dec.SampleRate), nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/minutelabs/minute-core/internal/config"
	"github.com/minutelabs/minute-core/internal/pipeline"
	"github.com/minutelabs/minute-core/internal/protocol"
	"github.com/minutelabs/minute-core/internal/store"
)

var version = "0.1.0-dev"

func main() {
	processCmd := flag.NewFlagSet("process", flag.ExitOnError)
	configPath := processCmd.String("config", "", "Path to configuration file (defaults used when empty)")
	outDir := processCmd.String("out", "", "Output directory (defaults to the audio file's directory)")
	timestamped := processCmd.Bool("timestamped", false, "Produce a timestamped transcript")
	diarize := processCmd.Bool("diarize", false, "Attribute speakers before transcribing")
	strategy := processCmd.String("strategy", "", "Diarization strategy: silence or energy")
	summary := processCmd.Bool("summary", true, "Generate a structured meeting summary")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'process' or 'version'")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "process":
		processCmd.Parse(os.Args[2:])
		if processCmd.NArg() != 1 {
			fmt.Fprintln(os.Stderr, "usage: minute-cli process [flags] <audio.wav>")
			os.Exit(2)
		}
		if err := runProcess(*configPath, processCmd.Arg(0), *outDir, *timestamped, *diarize, *strategy, *summary); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
}

func runProcess(configPath, audioPath, outDir string, timestamped, diarize bool, strategy string, summary bool) error {
	if _, err := os.Stat(audioPath); err != nil {
		return fmt.Errorf("audio file not found: %s", audioPath)
	}
	if outDir == "" {
		outDir = filepath.Dir(audioPath)
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var cfg config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	} else {
		cfg = config.Default()
		// One-shot runs keep no archive unless a config says so.
		cfg.Store.RetentionMode = "ephemeral"
		cfg.Summarize.Mode = "ollama"
	}
	if summary {
		cfg.Summarize.Enabled = true
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	proc, err := pipeline.NewProcessor(cfg, st, logger)
	if err != nil {
		return err
	}

	res, err := proc.Process(ctx, protocol.TranscribeRequest{
		AudioPath:   audioPath,
		Timestamped: timestamped,
		Diarize:     diarize,
		Strategy:    strategy,
		Summarize:   summary,
	})
	if err != nil {
		return err
	}
	if res.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", res.Warning)
	}

	body := res.Transcript
	if timestamped && res.Timestamped != "" {
		body = res.Timestamped
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("empty transcript generated")
	}

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	transcriptPath := filepath.Join(outDir, stem+"_transcript.txt")
	if err := os.WriteFile(transcriptPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	fmt.Println("transcript:", transcriptPath)

	if res.Summary != "" {
		summaryPath := filepath.Join(outDir, stem+"_summary.md")
		content := fmt.Sprintf("# Meeting Summary: %s\n\n%s", stem, res.Summary)
		if err := os.WriteFile(summaryPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		fmt.Println("summary:", summaryPath)
	}

	return nil
}

package recognize

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"

	"github.com/mattn/go-shellwords"
	"github.com/minutelabs/minute-core/internal/config"
)

// execRecognizer speaks line-delimited JSON with a recognizer subprocess.
// Each submitted chunk produces exactly one reply line: either a partial
// hypothesis ({"partial": ...}) or a finalized utterance ({"text": ...,
// "result": [...]}). An eof line flushes the engine's pending result.
type execRecognizer struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	log     *slog.Logger

	pending  Result
	hasFinal bool
}

type wireChunk struct {
	PCM string `json:"pcm,omitempty"`
	EOF bool   `json:"eof,omitempty"`
}

type wireResult struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
	Words   []Word  `json:"result"`
}

func newExecRecognizer(cfg config.RecognizerConfig, wordMode bool, log *slog.Logger) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}

	base := args[0]
	cmdArgs := append([]string{}, args[1:]...)
	if cfg.ModelPath != "" {
		cmdArgs = append(cmdArgs, "--model", cfg.ModelPath)
	}
	if cfg.Language != "" {
		cmdArgs = append(cmdArgs, "--language", cfg.Language)
	}
	cmdArgs = append(cmdArgs, "--sample-rate", strconv.Itoa(cfg.SampleRate))
	if wordMode {
		cmdArgs = append(cmdArgs, "--words")
	}

	cmd := exec.Command(base, cmdArgs...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("recognizer stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start recognizer command: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	return &execRecognizer{
		cmd:     cmd,
		stdin:   stdin,
		scanner: scanner,
		log:     log.With(slog.String("component", "exec-recognizer")),
	}, nil
}

func (r *execRecognizer) Accept(chunk []byte) (bool, error) {
	line, err := json.Marshal(wireChunk{PCM: base64.StdEncoding.EncodeToString(chunk)})
	if err != nil {
		return false, &EngineError{Op: "accept", Err: err}
	}
	if _, err := r.stdin.Write(append(line, '\n')); err != nil {
		return false, &EngineError{Op: "accept", Err: err}
	}

	reply, err := r.readReply()
	if err != nil {
		return false, &EngineError{Op: "accept", Err: err}
	}
	if reply.Text == nil {
		return false, nil
	}
	r.pending = Result{Text: *reply.Text, Words: reply.Words}
	defaultConfidence(r.pending.Words)
	r.hasFinal = true
	return true, nil
}

func (r *execRecognizer) Result() (Result, error) {
	if !r.hasFinal {
		return Result{}, &EngineError{Op: "result", Err: fmt.Errorf("no finalized utterance pending")}
	}
	r.hasFinal = false
	return r.pending, nil
}

func (r *execRecognizer) FinalResult() (Result, error) {
	line, err := json.Marshal(wireChunk{EOF: true})
	if err != nil {
		return Result{}, &EngineError{Op: "final", Err: err}
	}
	if _, err := r.stdin.Write(append(line, '\n')); err != nil {
		return Result{}, &EngineError{Op: "final", Err: err}
	}
	reply, err := r.readReply()
	if err != nil {
		return Result{}, &EngineError{Op: "final", Err: err}
	}
	result := Result{Words: reply.Words}
	if reply.Text != nil {
		result.Text = *reply.Text
	}
	defaultConfidence(result.Words)
	return result, nil
}

func (r *execRecognizer) readReply() (wireResult, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return wireResult{}, err
		}
		return wireResult{}, io.ErrUnexpectedEOF
	}
	var reply wireResult
	if err := json.Unmarshal(r.scanner.Bytes(), &reply); err != nil {
		return wireResult{}, fmt.Errorf("decode recognizer reply: %w", err)
	}
	return reply, nil
}

func (r *execRecognizer) Close() error {
	_ = r.stdin.Close()
	if err := r.cmd.Wait(); err != nil {
		r.log.Warn("recognizer command exited with error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

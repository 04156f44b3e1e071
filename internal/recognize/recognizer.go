package recognize

import (
	"fmt"
	"log/slog"

	"github.com/minutelabs/minute-core/internal/config"
)

// Word is a recognized word with timing information in seconds.
type Word struct {
	Text       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"conf,omitempty"`
}

// Result is one finalized utterance from the engine. Words is populated only
// when the recognizer was built in word mode.
type Result struct {
	Text  string `json:"text"`
	Words []Word `json:"result,omitempty"`
}

// Recognizer abstracts the external streaming engine. Accept submits one PCM
// chunk and reports whether a finalized utterance boundary was reached;
// Result retrieves that utterance. FinalResult flushes whatever the engine
// still holds after the stream ends.
type Recognizer interface {
	Accept(chunk []byte) (bool, error)
	Result() (Result, error)
	FinalResult() (Result, error)
	Close() error
}

// EngineError wraps a failure reported by the external engine. Any partial
// transcript accumulated before the failure is discarded by callers.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string { return fmt.Sprintf("recognizer %s: %v", e.Op, e.Err) }
func (e *EngineError) Unwrap() error { return e.Err }

// New builds a recognizer backend from config. wordMode is fixed for the
// lifetime of the instance.
func New(cfg config.RecognizerConfig, wordMode bool, log *slog.Logger) (Recognizer, error) {
	switch cfg.Mode {
	case "mock":
		return &MockRecognizer{}, nil
	case "exec":
		return newExecRecognizer(cfg, wordMode, log)
	default:
		return nil, fmt.Errorf("unknown recognizer mode %q", cfg.Mode)
	}
}

// defaultConfidence fills in 1.0 for words the engine reported without a
// confidence score.
func defaultConfidence(words []Word) {
	for i := range words {
		if words[i].Confidence == 0 {
			words[i].Confidence = 1.0
		}
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel       string `yaml:"log_level"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	OTLPInsecure   bool   `yaml:"otlp_insecure"`
	PrometheusBind string `yaml:"prometheus_bind"`
}

type HTTPConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type Config struct {
	RuntimeName string           `yaml:"runtime_name"`
	Environment string           `yaml:"environment"`
	HTTP        HTTPConfig       `yaml:"http"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	Bus         BusConfig        `yaml:"bus"`
	Store       StoreConfig      `yaml:"store"`
	Recognizer  RecognizerConfig `yaml:"recognizer"`
	Transcript  TranscriptConfig `yaml:"transcript"`
	Diarize     DiarizeConfig    `yaml:"diarize"`
	Summarize   SummarizeConfig  `yaml:"summarize"`
}

type BusConfig struct {
	Embedded       bool     `yaml:"embedded"`
	Port           int      `yaml:"port"`
	StoreDir       string   `yaml:"store_dir"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type StoreConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxRecordings int    `yaml:"max_recordings"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type RecognizerConfig struct {
	Mode        string `yaml:"mode"` // mock, exec
	Command     string `yaml:"command"`
	ModelPath   string `yaml:"model_path"`
	Language    string `yaml:"language"`
	SampleRate  int    `yaml:"sample_rate"`
	ChunkFrames int    `yaml:"chunk_frames"`
}

// TranscriptConfig holds the line-wrapping knobs for timestamped output.
type TranscriptConfig struct {
	WordsPerLine int     `yaml:"words_per_line"`
	LinePauseSec float64 `yaml:"line_pause_sec"`
}

// DiarizeConfig exposes every segmentation heuristic as an explicit setting.
type DiarizeConfig struct {
	Strategy        string  `yaml:"strategy"` // silence, energy
	SilenceGapSec   float64 `yaml:"silence_gap_sec"`
	MinSegmentSec   float64 `yaml:"min_segment_sec"`
	FinalFlushSec   float64 `yaml:"final_flush_sec"`
	EnergyThreshold float64 `yaml:"energy_threshold"`
	EnergyWindowSec float64 `yaml:"energy_window_sec"`
}

type SummarizeConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Mode        string  `yaml:"mode"` // mock, ollama, exec
	Endpoint    string  `yaml:"endpoint"`
	Command     string  `yaml:"command"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

func Default() Config {
	return Config{
		RuntimeName: "minute-runtime",
		Environment: "development",
		HTTP: HTTPConfig{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Telemetry: TelemetryConfig{
			LogLevel:       "info",
			OTLPEndpoint:   "",
			OTLPInsecure:   true,
			PrometheusBind: ":9091",
		},
		Bus: BusConfig{
			Embedded:       true,
			Port:           4222,
			StoreDir:       "./data/nats",
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
		Store: StoreConfig{
			Path:          "./data/minute.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxRecordings: 10000,
		},
		Recognizer: RecognizerConfig{
			Mode:        "mock",
			SampleRate:  16000,
			ChunkFrames: 4000,
		},
		Transcript: TranscriptConfig{
			WordsPerLine: 10,
			LinePauseSec: 1.0,
		},
		Diarize: DiarizeConfig{
			Strategy:        "silence",
			SilenceGapSec:   2.0,
			MinSegmentSec:   3.0,
			FinalFlushSec:   1.0,
			EnergyThreshold: 0.3,
			EnergyWindowSec: 1.0,
		},
		Summarize: SummarizeConfig{
			Enabled:     false,
			Mode:        "mock",
			Endpoint:    "http://localhost:11434",
			Model:       "llama3.2:3b",
			MaxTokens:   600,
			Temperature: 0.1,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "MINUTE_RUNTIME_NAME")
	overrideString(&cfg.Environment, "MINUTE_RUNTIME_ENVIRONMENT")
	overrideString(&cfg.HTTP.Bind, "MINUTE_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "MINUTE_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "MINUTE_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "MINUTE_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "MINUTE_TELEMETRY_OTLP_INSECURE")
	overrideString(&cfg.Telemetry.PrometheusBind, "MINUTE_TELEMETRY_PROMETHEUS_BIND")
	overrideBool(&cfg.Bus.Embedded, "MINUTE_BUS_EMBEDDED")
	overrideInt(&cfg.Bus.Port, "MINUTE_BUS_PORT")
	overrideString(&cfg.Bus.StoreDir, "MINUTE_BUS_STORE_DIR")
	overrideStringSlice(&cfg.Bus.Servers, "MINUTE_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "MINUTE_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "MINUTE_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "MINUTE_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "MINUTE_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "MINUTE_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Store.Path, "MINUTE_STORE_PATH")
	overrideString(&cfg.Store.RetentionMode, "MINUTE_STORE_RETENTION_MODE")
	overrideInt(&cfg.Store.RetentionDays, "MINUTE_STORE_RETENTION_DAYS")
	overrideInt(&cfg.Store.MaxRecordings, "MINUTE_STORE_MAX_RECORDINGS")
	overrideBool(&cfg.Store.VacuumOnStart, "MINUTE_STORE_VACUUM_ON_START")
	overrideString(&cfg.Recognizer.Mode, "MINUTE_RECOGNIZER_MODE")
	overrideString(&cfg.Recognizer.Command, "MINUTE_RECOGNIZER_COMMAND")
	overrideString(&cfg.Recognizer.ModelPath, "MINUTE_RECOGNIZER_MODEL_PATH")
	overrideString(&cfg.Recognizer.Language, "MINUTE_RECOGNIZER_LANGUAGE")
	overrideInt(&cfg.Recognizer.SampleRate, "MINUTE_RECOGNIZER_SAMPLE_RATE")
	overrideInt(&cfg.Recognizer.ChunkFrames, "MINUTE_RECOGNIZER_CHUNK_FRAMES")
	overrideInt(&cfg.Transcript.WordsPerLine, "MINUTE_TRANSCRIPT_WORDS_PER_LINE")
	overrideFloat(&cfg.Transcript.LinePauseSec, "MINUTE_TRANSCRIPT_LINE_PAUSE_SEC")
	overrideString(&cfg.Diarize.Strategy, "MINUTE_DIARIZE_STRATEGY")
	overrideFloat(&cfg.Diarize.SilenceGapSec, "MINUTE_DIARIZE_SILENCE_GAP_SEC")
	overrideFloat(&cfg.Diarize.MinSegmentSec, "MINUTE_DIARIZE_MIN_SEGMENT_SEC")
	overrideFloat(&cfg.Diarize.FinalFlushSec, "MINUTE_DIARIZE_FINAL_FLUSH_SEC")
	overrideFloat(&cfg.Diarize.EnergyThreshold, "MINUTE_DIARIZE_ENERGY_THRESHOLD")
	overrideFloat(&cfg.Diarize.EnergyWindowSec, "MINUTE_DIARIZE_ENERGY_WINDOW_SEC")
	overrideBool(&cfg.Summarize.Enabled, "MINUTE_SUMMARIZE_ENABLED")
	overrideString(&cfg.Summarize.Mode, "MINUTE_SUMMARIZE_MODE")
	overrideString(&cfg.Summarize.Endpoint, "MINUTE_SUMMARIZE_ENDPOINT")
	overrideString(&cfg.Summarize.Command, "MINUTE_SUMMARIZE_COMMAND")
	overrideString(&cfg.Summarize.Model, "MINUTE_SUMMARIZE_MODEL")
	overrideInt(&cfg.Summarize.MaxTokens, "MINUTE_SUMMARIZE_MAX_TOKENS")
	overrideFloat(&cfg.Summarize.Temperature, "MINUTE_SUMMARIZE_TEMPERATURE")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return errors.New("http.port must be between 1 and 65535")
	}
	if cfg.Bus.Embedded {
		if cfg.Bus.Port <= 0 || cfg.Bus.Port > 65535 {
			return errors.New("bus.port must be between 1 and 65535 when embedded mode is enabled")
		}
	} else {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when embedded mode is disabled")
		}
	}
	if cfg.Store.Path == "" {
		return errors.New("store.path must not be empty")
	}
	switch cfg.Store.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("store.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.Store.RetentionDays < 0 {
		return errors.New("store.retention_days must be >= 0")
	}
	if cfg.Telemetry.PrometheusBind == "" {
		return errors.New("telemetry.prometheus_bind must not be empty")
	}
	switch cfg.Recognizer.Mode {
	case "mock", "exec":
	default:
		return errors.New("recognizer.mode must be one of mock|exec")
	}
	if cfg.Recognizer.Mode == "exec" && cfg.Recognizer.Command == "" {
		return errors.New("recognizer.command must be set when mode=exec")
	}
	if cfg.Recognizer.SampleRate <= 0 {
		return errors.New("recognizer.sample_rate must be positive")
	}
	if cfg.Recognizer.ChunkFrames <= 0 {
		return errors.New("recognizer.chunk_frames must be positive")
	}
	if cfg.Transcript.WordsPerLine <= 0 {
		return errors.New("transcript.words_per_line must be >= 1")
	}
	if cfg.Transcript.LinePauseSec <= 0 {
		return errors.New("transcript.line_pause_sec must be positive")
	}
	switch cfg.Diarize.Strategy {
	case "silence", "energy":
	default:
		return errors.New("diarize.strategy must be one of silence|energy")
	}
	if cfg.Diarize.SilenceGapSec <= 0 {
		return errors.New("diarize.silence_gap_sec must be positive")
	}
	if cfg.Diarize.MinSegmentSec < 0 {
		return errors.New("diarize.min_segment_sec must be >= 0")
	}
	if cfg.Diarize.EnergyThreshold <= 0 || cfg.Diarize.EnergyThreshold > 1 {
		return errors.New("diarize.energy_threshold must be in (0, 1]")
	}
	if cfg.Diarize.EnergyWindowSec <= 0 {
		return errors.New("diarize.energy_window_sec must be positive")
	}
	if cfg.Summarize.Enabled {
		switch cfg.Summarize.Mode {
		case "mock", "ollama", "exec":
		default:
			return errors.New("summarize.mode must be one of mock|ollama|exec")
		}
		if cfg.Summarize.Mode == "ollama" && cfg.Summarize.Endpoint == "" {
			return errors.New("summarize.endpoint must be set when mode=ollama")
		}
		if cfg.Summarize.Mode == "exec" && cfg.Summarize.Command == "" {
			return errors.New("summarize.command must be set when mode=exec")
		}
		if cfg.Summarize.MaxTokens < 0 {
			return errors.New("summarize.max_tokens must be >= 0")
		}
	}
	return nil
}

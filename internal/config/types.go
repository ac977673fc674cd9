// Package config resolves, parses, validates, and defaults vinu configuration.
package config

import "time"

// SampleRate is the only PCM rate the Whisper model family accepts.
const SampleRate = 16000

// Engine backends.
const (
	BackendNative = "native"
	BackendServer = "server"
	BackendExec   = "exec"
)

// Config is the fully materialized runtime configuration used by vinu.
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Engine     EngineConfig     `yaml:"engine"`
	Batch      BatchConfig      `yaml:"batch"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Sinks      SinksConfig      `yaml:"sinks"`
	History    HistoryConfig    `yaml:"history"`
	Observe    ObserveConfig    `yaml:"observe"`
	Log        LogConfig        `yaml:"log"`
	Debug      DebugConfig      `yaml:"debug"`
}

// AudioConfig controls input-source selection and chunking.
type AudioConfig struct {
	Input      string `yaml:"input"`
	Fallback   string `yaml:"fallback"`
	SampleRate int    `yaml:"sample_rate"`
	ChunkMS    int    `yaml:"chunk_ms"`
}

// ChunkDuration is the configured capture block length.
func (a AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(a.ChunkMS) * time.Millisecond
}

// ChunkSamples is the number of PCM samples per capture block.
func (a AudioConfig) ChunkSamples() int {
	return a.SampleRate * a.ChunkMS / 1000
}

// EngineConfig selects and tunes the transcription backend.
type EngineConfig struct {
	Backend   string `yaml:"backend"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
	Translate bool   `yaml:"translate"`
	Threads   int    `yaml:"threads"`
	BeamSize  int    `yaml:"beam_size"`
	ServerURL string `yaml:"server_url"`
	Command   string `yaml:"command"`
}

// BatchConfig controls utterance batching thresholds.
type BatchConfig struct {
	SilenceMS    int     `yaml:"silence_ms"`
	MaxWindowMS  int     `yaml:"max_window_ms"`
	MinSpeechMS  int     `yaml:"min_speech_ms"`
	RMSThreshold float64 `yaml:"rms_threshold"`
}

// Silence is the trailing-silence duration that flushes an utterance.
func (b BatchConfig) Silence() time.Duration {
	return time.Duration(b.SilenceMS) * time.Millisecond
}

// MaxWindow bounds how much audio a single utterance may accumulate.
func (b BatchConfig) MaxWindow() time.Duration {
	return time.Duration(b.MaxWindowMS) * time.Millisecond
}

// MinSpeech is the minimum speech duration worth transcribing.
func (b BatchConfig) MinSpeech() time.Duration {
	return time.Duration(b.MinSpeechMS) * time.Millisecond
}

// TranscriptConfig controls transcript assembly formatting.
type TranscriptConfig struct {
	Timestamps        bool `yaml:"timestamps"`
	FilterAnnotations bool `yaml:"filter_annotations"`
}

// SinksConfig enables optional utterance destinations beyond the console.
type SinksConfig struct {
	File      string     `yaml:"file"`
	Clipboard bool       `yaml:"clipboard"`
	NATS      NATSConfig `yaml:"nats"`
}

// NATSConfig points the bus sink at a broker.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// HistoryConfig controls the on-disk utterance store.
type HistoryConfig struct {
	Path string `yaml:"path"`
	Keep int    `yaml:"keep"`
}

// ObserveConfig controls the optional metrics endpoint.
type ObserveConfig struct {
	Bind string `yaml:"bind"`
}

// LogConfig controls diagnostic log output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool `yaml:"audio_dump"`
}

// Warning is a non-fatal load/validation message.
type Warning struct {
	Message string
}

package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate enforces config invariants, normalizes values in place, and
// returns non-fatal warnings.
func Validate(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Audio.Input) == "" {
		cfg.Audio.Input = "default"
		warnings = append(warnings, Warning{Message: `audio.input is empty; using "default"`})
	}
	if strings.TrimSpace(cfg.Audio.Fallback) == "" {
		cfg.Audio.Fallback = "default"
	}
	if cfg.Audio.SampleRate != SampleRate {
		return nil, fmt.Errorf("audio.sample_rate must be %d", SampleRate)
	}
	if cfg.Audio.ChunkMS < 100 || cfg.Audio.ChunkMS > 2000 {
		return nil, fmt.Errorf("audio.chunk_ms must be between 100 and 2000")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Engine.Backend))
	cfg.Engine.Backend = backend
	switch backend {
	case BackendNative, BackendServer, BackendExec:
	case "":
		return nil, fmt.Errorf("engine.backend must not be empty")
	default:
		return nil, fmt.Errorf("engine.backend must be one of: native, server, exec")
	}

	cfg.Engine.Language = strings.ToLower(strings.TrimSpace(cfg.Engine.Language))
	if cfg.Engine.Language == "" {
		return nil, fmt.Errorf("engine.language must not be empty")
	}
	if cfg.Engine.Threads < 0 {
		return nil, fmt.Errorf("engine.threads must be >= 0")
	}
	if cfg.Engine.BeamSize <= 0 {
		return nil, fmt.Errorf("engine.beam_size must be > 0")
	}

	switch backend {
	case BackendNative:
		if strings.TrimSpace(cfg.Engine.ModelPath) == "" {
			return nil, fmt.Errorf("engine.model_path must not be empty when engine.backend=native")
		}
	case BackendServer:
		u, err := url.Parse(strings.TrimSpace(cfg.Engine.ServerURL))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("engine.server_url %q is not a valid URL", cfg.Engine.ServerURL)
		}
		cfg.Engine.ServerURL = strings.TrimRight(u.String(), "/")
	case BackendExec:
		if strings.TrimSpace(cfg.Engine.Command) == "" {
			return nil, fmt.Errorf("engine.command must not be empty when engine.backend=exec")
		}
	}

	if cfg.Batch.SilenceMS <= 0 {
		return nil, fmt.Errorf("batch.silence_ms must be > 0")
	}
	if cfg.Batch.MaxWindowMS < cfg.Audio.ChunkMS {
		return nil, fmt.Errorf("batch.max_window_ms must cover at least one chunk")
	}
	if cfg.Batch.MinSpeechMS < 0 {
		return nil, fmt.Errorf("batch.min_speech_ms must be >= 0")
	}
	if cfg.Batch.RMSThreshold < 0 || cfg.Batch.RMSThreshold >= 1 {
		return nil, fmt.Errorf("batch.rms_threshold must be in [0, 1)")
	}
	if cfg.Batch.MaxWindowMS < cfg.Batch.SilenceMS {
		warnings = append(warnings, Warning{
			Message: "batch.max_window_ms is shorter than batch.silence_ms; every flush will be window-driven",
		})
	}

	if cfg.Sinks.NATS.URL != "" && strings.TrimSpace(cfg.Sinks.NATS.Subject) == "" {
		return nil, fmt.Errorf("sinks.nats.subject must not be empty when sinks.nats.url is set")
	}

	if cfg.History.Keep <= 0 {
		return nil, fmt.Errorf("history.keep must be > 0")
	}

	if bind := strings.TrimSpace(cfg.Observe.Bind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return nil, fmt.Errorf("observe.bind %q is not host:port", bind)
		}
		cfg.Observe.Bind = bind
	}

	level := strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		cfg.Log.Level = level
	case "":
		cfg.Log.Level = "info"
		warnings = append(warnings, Warning{Message: `log.level is empty; using "info"`})
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// Environment overrides (VINU_ENGINE, VINU_MODEL_PATH, VINU_LANGUAGE,
// VINU_NATS_URL) are applied after the file and before validation.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	loaded := Loaded{Path: resolvedPath}

	content, err := os.ReadFile(resolvedPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = append(loaded.Warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	case err != nil:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	default:
		if err := parse(content, &cfg); err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		loaded.Exists = true
	}

	applyEnv(&cfg)

	if err := resolvePaths(&cfg); err != nil {
		return Loaded{}, err
	}

	warnings, err := Validate(&cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	loaded.Config = cfg
	loaded.Warnings = append(loaded.Warnings, warnings...)
	return loaded, nil
}

func parse(content []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file keeps the defaults.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("VINU_ENGINE"); ok {
		cfg.Engine.Backend = v
	}
	if v, ok := os.LookupEnv("VINU_MODEL_PATH"); ok {
		cfg.Engine.ModelPath = v
	}
	if v, ok := os.LookupEnv("VINU_LANGUAGE"); ok {
		cfg.Engine.Language = v
	}
	if v, ok := os.LookupEnv("VINU_NATS_URL"); ok {
		cfg.Sinks.NATS.URL = v
	}
}

// resolvePaths fills path defaults that depend on the XDG environment.
func resolvePaths(cfg *Config) error {
	if cfg.Engine.Backend == BackendNative && strings.TrimSpace(cfg.Engine.ModelPath) == "" {
		dir, err := DataDir()
		if err != nil {
			return err
		}
		cfg.Engine.ModelPath = filepath.Join(dir, "models", "ggml-small.bin")
	}

	switch strings.TrimSpace(cfg.History.Path) {
	case "":
		dir, err := StateDir()
		if err != nil {
			return err
		}
		cfg.History.Path = filepath.Join(dir, "history.db")
	case "off":
		cfg.History.Path = ""
	}

	return nil
}

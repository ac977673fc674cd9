package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"github.com/ravitez/vinu/internal/config"
	"github.com/ravitez/vinu/internal/wave"
)

// execEngine shells out to an external recognizer: the window is written as
// a temp WAV whose path is appended to the configured argv. Stdout carries
// either {"text": ...} JSON or the plain transcription.
type execEngine struct {
	argv     []string
	language string

	mu sync.Mutex
}

func newExecEngine(cfg config.EngineConfig) (Engine, error) {
	parser := shellwords.NewParser()
	argv, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse engine.command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("engine.command is empty")
	}
	return &execEngine{argv: argv, language: cfg.Language}, nil
}

func (e *execEngine) Transcribe(ctx context.Context, samples []float32) ([]Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	dir, err := os.MkdirTemp("", "vinu-asr-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "window.wav")
	if err := wave.WriteFile(wavPath, samples, config.SampleRate); err != nil {
		return nil, fmt.Errorf("write inference window: %w", err)
	}

	args := append(append([]string{}, e.argv[1:]...), wavPath)
	cmd := osexec.CommandContext(ctx, e.argv[0], args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("engine command failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	text := parseExecOutput(stdout.Bytes())
	if text == "" {
		return nil, nil
	}
	return []Segment{{Text: text, End: windowDuration(len(samples))}}, nil
}

func (e *execEngine) Close() error {
	return nil
}

// parseExecOutput accepts {"text": ...} JSON and falls back to treating the
// whole stdout as the transcription.
func parseExecOutput(out []byte) string {
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(out, &result); err == nil {
		return strings.TrimSpace(result.Text)
	}
	return strings.TrimSpace(string(out))
}

// Package asr wraps the pretrained speech-recognition backends behind one
// Engine interface. Supported backends: whisper.cpp in process (native), a
// whisper-server HTTP endpoint (server), and an external command (exec).
package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/ravitez/vinu/internal/config"
)

// ErrEngineUnavailable signals that the selected backend cannot run in this
// build or environment.
var ErrEngineUnavailable = errors.New("transcription engine unavailable")

// Segment is one decoded stretch of speech within a transcription window.
type Segment struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Engine transcribes one mono 16 kHz float32 window per call.
// Implementations are not required to be safe for concurrent calls; the
// pipeline serializes decodes.
type Engine interface {
	Transcribe(ctx context.Context, samples []float32) ([]Segment, error)
	Close() error
}

// Open selects and constructs the configured backend.
func Open(cfg config.EngineConfig, logger *slog.Logger) (Engine, error) {
	switch cfg.Backend {
	case config.BackendNative:
		return newWhisperEngine(cfg, logger)
	case config.BackendServer:
		return newServerEngine(cfg)
	case config.BackendExec:
		return newExecEngine(cfg)
	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Backend)
	}
}

// decodeThreads resolves the worker thread count for in-process decoding.
func decodeThreads(configured int) int {
	if configured > 0 {
		return configured
	}
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}

//go:build !vinu_nowhisper

// The whisper.cpp static library (libwhisper.a) and headers must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH. Build with
// -tags vinu_nowhisper to compile without them.

package asr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/ravitez/vinu/internal/config"
)

// whisperEngine runs whisper.cpp in process through the Go bindings. The
// model is loaded once; one decode context is reused for every window.
type whisperEngine struct {
	model whisperlib.Model
	wctx  whisperlib.Context

	language  string
	translate bool
	beamSize  int

	mu     sync.Mutex
	closed bool
}

func newWhisperEngine(cfg config.EngineConfig, logger *slog.Logger) (Engine, error) {
	model, err := whisperlib.New(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model %q: %w", cfg.ModelPath, err)
	}

	wctx, err := model.NewContext()
	if err != nil {
		_ = model.Close()
		return nil, fmt.Errorf("create whisper context: %w", err)
	}

	if err := wctx.SetLanguage(cfg.Language); err != nil {
		if logger != nil {
			logger.Warn("whisper language not accepted; model default in effect",
				"language", cfg.Language, "error", err.Error())
		}
	}
	wctx.SetTranslate(cfg.Translate)
	wctx.SetThreads(uint(decodeThreads(cfg.Threads)))
	if cfg.BeamSize > 0 {
		wctx.SetBeamSize(cfg.BeamSize)
	}

	return &whisperEngine{
		model:     model,
		wctx:      wctx,
		language:  cfg.Language,
		translate: cfg.Translate,
		beamSize:  cfg.BeamSize,
	}, nil
}

func (e *whisperEngine) Transcribe(ctx context.Context, samples []float32) ([]Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.New("whisper engine is closed")
	}

	samples = padToMinWindow(samples)

	if err := e.wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, fmt.Errorf("whisper decode: %w", err)
	}

	var segments []Segment
	for {
		seg, err := e.wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read whisper segment: %w", err)
		}
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Text: text, Start: seg.Start, End: seg.End})
	}

	return segments, nil
}

func (e *whisperEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.model.Close()
}

// padToMinWindow zero-pads windows below roughly 1.1 s; whisper.cpp rejects
// sub-second input.
func padToMinWindow(samples []float32) []float32 {
	minSamples := whisperlib.SampleRate * 11 / 10
	if len(samples) >= minSamples {
		return samples
	}
	padded := make([]float32, minSamples)
	copy(padded, samples)
	return padded
}

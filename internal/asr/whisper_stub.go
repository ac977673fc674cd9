//go:build vinu_nowhisper

package asr

import (
	"fmt"
	"log/slog"

	"github.com/ravitez/vinu/internal/config"
)

func newWhisperEngine(_ config.EngineConfig, _ *slog.Logger) (Engine, error) {
	return nil, fmt.Errorf("native whisper backend disabled in this build: %w", ErrEngineUnavailable)
}

package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravitez/vinu/internal/asr"
	"github.com/ravitez/vinu/internal/audio"
	"github.com/ravitez/vinu/internal/config"
	"github.com/ravitez/vinu/internal/observe"
	"github.com/ravitez/vinu/internal/sink"
	"github.com/ravitez/vinu/internal/transcript"
	"github.com/ravitez/vinu/internal/wave"
)

// Source is the capture side of the pipeline; *audio.Capture satisfies it.
type Source interface {
	Chunks() <-chan []byte
	Dropped() int64
	Stop() error
}

// Stats summarizes one completed live loop.
type Stats struct {
	Utterances int64
	Dropped    int64
	Errors     int64
}

// Runner drives the live loop: capture chunks feed the batcher, flushed
// windows go to the engine, assembled utterances go to every sink. Decode
// errors are logged and reported but never stop the loop.
type Runner struct {
	cfg     config.Config
	logger  *slog.Logger
	engine  asr.Engine
	sinks   sink.Sink
	metrics *observe.Metrics
	source  Source
	notices io.Writer
	session string

	seq     atomic.Int64
	windows atomic.Int64
	errs    atomic.Int64
	aborted atomic.Bool
	started time.Time
}

// NewRunner wires a live loop over an already-started source and engine.
func NewRunner(
	cfg config.Config,
	logger *slog.Logger,
	engine asr.Engine,
	sinks sink.Sink,
	metrics *observe.Metrics,
	source Source,
	notices io.Writer,
	session string,
) *Runner {
	if notices == nil {
		notices = io.Discard
	}
	return &Runner{
		cfg:     cfg,
		logger:  logger,
		engine:  engine,
		sinks:   sinks,
		metrics: metrics,
		source:  source,
		notices: notices,
		session: session,
	}
}

// Run consumes the source until it closes, then flushes the pending batch.
// It returns when the feed loop has fully drained.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	r.started = time.Now()
	batcher := NewBatcher(r.cfg.Batch, r.cfg.Audio.SampleRate)

	// Signal cancellation stops the capture, not the decodes: the drain
	// flush after Ctrl-C must still reach the engine, so decode calls run
	// under a context detached from the signal context.
	decodeCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.Go(func() error {
		for chunk := range r.source.Chunks() {
			if r.aborted.Load() {
				continue
			}
			r.metrics.AudioChunks.Add(decodeCtx, 1)
			if window := batcher.Push(audio.ToFloat32(chunk)); window != nil {
				r.handleWindow(decodeCtx, window)
			}
		}

		if r.aborted.Load() {
			batcher.Reset()
			return nil
		}
		if window := batcher.Flush(); window != nil {
			r.handleWindow(decodeCtx, window)
		}
		return nil
	})

	err := g.Wait()

	dropped := r.source.Dropped()
	r.metrics.AudioDropped.Add(decodeCtx, dropped)

	return Stats{
		Utterances: r.seq.Load(),
		Dropped:    dropped,
		Errors:     r.errs.Load(),
	}, err
}

// Drain stops the source gracefully; Run flushes the pending batch and
// returns once the chunk channel closes.
func (r *Runner) Drain() error {
	return r.source.Stop()
}

// Abort discards pending audio and stops the source without a final decode.
func (r *Runner) Abort() error {
	r.aborted.Store(true)
	return r.source.Stop()
}

// handleWindow decodes one flushed window and fans the utterance out.
func (r *Runner) handleWindow(ctx context.Context, window *Window) {
	windowSeq := r.windows.Add(1)

	decodeStart := time.Now()
	segments, err := r.engine.Transcribe(ctx, window.Samples)
	latency := time.Since(decodeStart)

	r.dumpWindowAudio(window, windowSeq)

	if err != nil {
		r.errs.Add(1)
		r.metrics.EngineErrors.Add(ctx, 1)
		if r.logger != nil {
			r.logger.Error("decode failed", "reason", string(window.Reason), "error", err.Error())
		}
		fmt.Fprintf(r.notices, "transcription error: %v\n", err)
		return
	}

	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		texts = append(texts, seg.Text)
	}
	text := transcript.Assemble(texts, transcript.Options{
		FilterAnnotations: r.cfg.Transcript.FilterAnnotations,
	})
	if text == "" {
		return
	}

	seq := r.seq.Add(1)
	u := sink.Utterance{
		Session: r.session,
		Seq:     seq,
		Text:    text,
		Start:   window.Start,
		End:     window.Start + windowDuration(len(window.Samples), r.cfg.Audio.SampleRate),
		Latency: latency,
		Reason:  string(window.Reason),
	}

	r.metrics.RecordUtterance(ctx, string(window.Reason))
	r.metrics.TranscribeDuration.Record(ctx, latency.Seconds())
	r.metrics.TranscriptChars.Add(ctx, int64(len([]rune(text))))

	if err := r.sinks.Write(ctx, u); err != nil && r.logger != nil {
		r.logger.Warn("utterance delivery incomplete", "seq", seq, "error", err.Error())
	}

	if r.logger != nil {
		r.logger.Info("utterance",
			"seq", seq,
			"reason", string(window.Reason),
			"chars", len([]rune(text)),
			"window_ms", windowDuration(len(window.Samples), r.cfg.Audio.SampleRate).Milliseconds(),
			"latency_ms", latency.Milliseconds(),
		)
	}
}

// dumpWindowAudio writes the flushed window as a WAV under the state dir
// when debug.audio_dump is enabled. Names carry the per-window sequence so
// failed or empty decodes never overwrite an earlier dump.
func (r *Runner) dumpWindowAudio(window *Window, windowSeq int64) {
	if !r.cfg.Debug.AudioDump {
		return
	}
	stateDir, err := config.StateDir()
	if err != nil {
		return
	}
	dumpDir := filepath.Join(stateDir, "dump")
	if err := os.MkdirAll(dumpDir, 0o700); err != nil {
		return
	}
	name := fmt.Sprintf("window-%s-%d-%s.wav", r.session, windowSeq, window.Reason)
	if err := wave.WriteFile(filepath.Join(dumpDir, name), window.Samples, r.cfg.Audio.SampleRate); err != nil {
		if r.logger != nil {
			r.logger.Warn("audio dump failed", "error", err.Error())
		}
	}
}

func windowDuration(samples, rate int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(rate)
}

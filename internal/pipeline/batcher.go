// Package pipeline owns the live capture -> batch -> decode -> sink loop.
package pipeline

import (
	"time"

	"github.com/ravitez/vinu/internal/audio"
	"github.com/ravitez/vinu/internal/config"
)

// FlushReason records what closed an utterance window.
type FlushReason string

const (
	// ReasonSilence: the trailing-silence threshold was reached.
	ReasonSilence FlushReason = "silence"
	// ReasonWindow: the window hit its maximum duration.
	ReasonWindow FlushReason = "window"
	// ReasonDrain: a shutdown or stop forced the pending audio out.
	ReasonDrain FlushReason = "drain"
)

// Window is one batched utterance handed to the engine.
type Window struct {
	Samples []float32
	// Start is the offset of the window within the session audio timeline.
	Start  time.Duration
	Reason FlushReason
}

// Batcher groups fixed capture chunks into utterance windows with an RMS
// silence gate. Leading silence is discarded; trailing silence at or above
// the configured threshold flushes; a window at the maximum duration flushes
// immediately. It is not safe for concurrent use; the feed loop owns it.
type Batcher struct {
	cfg        config.BatchConfig
	sampleRate int

	buf      []float32
	bufStart time.Duration
	offset   time.Duration

	speech     bool
	speechDur  time.Duration
	silenceDur time.Duration

	// Trailing silent run, in samples, and the size of its newest chunk.
	// On a silence flush everything beyond one chunk of that run is cut.
	tailSamples     int
	tailChunkSample int
}

// NewBatcher builds a batcher for the configured thresholds.
func NewBatcher(cfg config.BatchConfig, sampleRate int) *Batcher {
	return &Batcher{cfg: cfg, sampleRate: sampleRate}
}

// Push feeds one capture chunk and returns a flushed window, or nil while
// the utterance is still accumulating.
func (b *Batcher) Push(chunk []float32) *Window {
	if len(chunk) == 0 {
		return nil
	}

	dur := b.duration(len(chunk))
	silent := audio.RMS(chunk) < b.cfg.RMSThreshold

	defer func() { b.offset += dur }()

	if silent {
		if !b.speech {
			// Leading silence never enters the window.
			return nil
		}
		b.buf = append(b.buf, chunk...)
		b.silenceDur += dur
		b.tailSamples += len(chunk)
		b.tailChunkSample = len(chunk)
		if b.silenceDur >= b.cfg.Silence() {
			return b.flush(ReasonSilence)
		}
		return nil
	}

	if !b.speech {
		b.speech = true
		b.bufStart = b.offset
	}
	b.buf = append(b.buf, chunk...)
	b.speechDur += dur
	b.silenceDur = 0
	b.tailSamples = 0
	b.tailChunkSample = 0

	if b.duration(len(b.buf)) >= b.cfg.MaxWindow() {
		return b.flush(ReasonWindow)
	}
	return nil
}

// Flush force-flushes whatever is pending; used at shutdown and on stop.
func (b *Batcher) Flush() *Window {
	return b.flush(ReasonDrain)
}

// Reset discards pending audio without producing a window; used on cancel.
func (b *Batcher) Reset() {
	b.clear()
}

// Pending reports the buffered duration awaiting a flush.
func (b *Batcher) Pending() time.Duration {
	return b.duration(len(b.buf))
}

func (b *Batcher) flush(reason FlushReason) *Window {
	defer b.clear()

	if !b.speech || b.speechDur < b.cfg.MinSpeech() {
		// Too little speech to be worth a decode.
		return nil
	}

	samples := b.buf
	if reason == ReasonSilence && b.tailSamples > b.tailChunkSample {
		samples = samples[:len(samples)-(b.tailSamples-b.tailChunkSample)]
	}

	out := make([]float32, len(samples))
	copy(out, samples)
	return &Window{Samples: out, Start: b.bufStart, Reason: reason}
}

func (b *Batcher) clear() {
	b.buf = nil
	b.speech = false
	b.speechDur = 0
	b.silenceDur = 0
	b.tailSamples = 0
	b.tailChunkSample = 0
}

func (b *Batcher) duration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(b.sampleRate)
}

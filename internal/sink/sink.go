// Package sink delivers finished utterances to their configured
// destinations: console, file, history store, NATS, and clipboard.
package sink

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Utterance is one finished transcription delivered to every sink.
type Utterance struct {
	Session string
	Seq     int64
	Text    string
	// Start and End are offsets within the session's audio timeline.
	Start time.Duration
	End   time.Duration
	// Latency is the decode time for this utterance's window.
	Latency time.Duration
	// Reason records what flushed the window ("silence", "window", "drain").
	Reason string
}

// Sink receives finished utterances.
type Sink interface {
	Write(ctx context.Context, u Utterance) error
	Close() error
}

// Multi fans one utterance out to every sink. A failing sink does not stop
// delivery to the others; failures are logged and aggregated.
type Multi struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewMulti bundles sinks for fan-out delivery.
func NewMulti(logger *slog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, logger: logger}
}

func (m *Multi) Write(ctx context.Context, u Utterance) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, u); err != nil {
			if m.logger != nil {
				m.logger.Error("sink write failed", "sink", name(s), "seq", u.Seq, "error", err.Error())
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// name returns a short identifier for log lines.
func name(s Sink) string {
	switch s.(type) {
	case *Console:
		return "console"
	case *File:
		return "file"
	case *History:
		return "history"
	case *Bus:
		return "bus"
	case *Clipboard:
		return "clipboard"
	default:
		return "sink"
	}
}

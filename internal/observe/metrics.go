package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for all vinu metrics.
const meterName = "github.com/ravitez/vinu"

// latencyBuckets covers decode latencies from tens of milliseconds up to the
// ten-second maximum window.
var latencyBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Metrics holds every instrument the pipeline records into. The OTel types
// are safe for concurrent use.
type Metrics struct {
	// AudioChunks counts capture chunks delivered to the batcher.
	AudioChunks metric.Int64Counter

	// AudioDropped counts capture chunks discarded under backpressure.
	AudioDropped metric.Int64Counter

	// Utterances counts flushed windows by flush reason.
	Utterances metric.Int64Counter

	// TranscribeDuration tracks decode latency per window in seconds.
	TranscribeDuration metric.Float64Histogram

	// TranscriptChars counts emitted transcript characters.
	TranscriptChars metric.Int64Counter

	// EngineErrors counts failed decode calls.
	EngineErrors metric.Int64Counter
}

// NewMetrics creates every instrument up front from the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.AudioChunks, err = m.Int64Counter("vinu.audio.chunks",
		metric.WithDescription("Capture chunks delivered to the batcher."),
	); err != nil {
		return nil, err
	}
	if met.AudioDropped, err = m.Int64Counter("vinu.audio.dropped",
		metric.WithDescription("Capture chunks dropped under backpressure."),
	); err != nil {
		return nil, err
	}
	if met.Utterances, err = m.Int64Counter("vinu.utterances",
		metric.WithDescription("Flushed utterance windows by reason."),
	); err != nil {
		return nil, err
	}
	if met.TranscribeDuration, err = m.Float64Histogram("vinu.transcribe.duration",
		metric.WithDescription("Decode latency per utterance window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptChars, err = m.Int64Counter("vinu.transcript.chars",
		metric.WithDescription("Characters of emitted transcript text."),
	); err != nil {
		return nil, err
	}
	if met.EngineErrors, err = m.Int64Counter("vinu.engine.errors",
		metric.WithDescription("Failed transcription engine calls."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordUtterance registers one flushed window with its flush reason.
func (m *Metrics) RecordUtterance(ctx context.Context, reason string) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

package observe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ravitez/vinu/internal/config"
)

func TestNewMetricsCreatesAllInstruments(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, m.AudioChunks)
	require.NotNil(t, m.AudioDropped)
	require.NotNil(t, m.Utterances)
	require.NotNil(t, m.TranscribeDuration)
	require.NotNil(t, m.TranscriptChars)
	require.NotNil(t, m.EngineErrors)
}

func TestSetupWithoutBindStillRecords(t *testing.T) {
	rt, err := Setup(context.Background(), config.ObserveConfig{}, nil)
	require.NoError(t, err)
	require.NotNil(t, rt.Metrics)

	// Recording through the no-op backed provider must not panic.
	rt.Metrics.AudioChunks.Add(context.Background(), 1)
	rt.Metrics.RecordUtterance(context.Background(), "silence")
	require.NoError(t, rt.Shutdown(context.Background()))
}

func TestRecordUtteranceTagsReason(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	m, err := NewMetrics(mp)
	require.NoError(t, err)

	m.RecordUtterance(context.Background(), "window")
	m.RecordUtterance(context.Background(), "window")
	m.RecordUtterance(context.Background(), "silence")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	var points int
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			if met.Name != "vinu.utterances" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			points = len(sum.DataPoints)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	require.Equal(t, 2, points) // one series per reason
	require.Equal(t, int64(3), total)
}

package mel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpectrogramRejectsEmptyInput(t *testing.T) {
	_, err := Spectrogram(nil, DefaultConfig())
	require.Error(t, err)
}

func TestSpectrogramRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HopLength = 0
	_, err := Spectrogram(make([]float32, 1600), cfg)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.FMax = 9000 // above Nyquist
	_, err = Spectrogram(make([]float32, 1600), cfg)
	require.Error(t, err)
}

func TestSpectrogramFrameCount(t *testing.T) {
	cfg := DefaultConfig()

	// One second of audio: 1 + 16000/160 = 101 frames.
	m, err := Spectrogram(make([]float32, 16000), cfg)
	require.NoError(t, err)
	require.Equal(t, 101, m.Frames)
	require.Equal(t, 80, m.Bands)
	require.Len(t, m.Data, 101*80)

	// Short input still produces at least one frame.
	m, err = Spectrogram(make([]float32, 100), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, m.Frames)
}

func TestSpectrogramZeroInputIsAllZeroDB(t *testing.T) {
	m, err := Spectrogram(make([]float32, 8000), DefaultConfig())
	require.NoError(t, err)
	for _, v := range m.Data {
		require.Zero(t, v)
	}
}

func TestSpectrogramTonePeaksInMatchingBand(t *testing.T) {
	cfg := DefaultConfig()

	// A 1 kHz tone: energy must concentrate around the band whose center
	// frequency is closest to 1 kHz, and fade at the extremes.
	samples := make([]float32, 16000)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*1000*float64(i)/float64(cfg.SampleRate)))
	}

	m, err := Spectrogram(samples, cfg)
	require.NoError(t, err)

	// Average each band over the middle frames to avoid edge effects.
	bandMean := make([]float64, m.Bands)
	for f := 10; f < m.Frames-10; f++ {
		for b := 0; b < m.Bands; b++ {
			bandMean[b] += m.At(f, b)
		}
	}

	peak := 0
	for b := 1; b < m.Bands; b++ {
		if bandMean[b] > bandMean[peak] {
			peak = b
		}
	}

	// 1 kHz sits at the top of the linear region of the Slaney scale:
	// band centers are spaced ~66.7 Hz apart there, so 1 kHz lands in the
	// neighborhood of band 14 of 80.
	require.InDelta(t, 14, peak, 2)

	// dB values are referenced to the maximum and floored 80 dB below it.
	min, max := m.MinMax()
	require.Equal(t, 0.0, max)
	require.GreaterOrEqual(t, min, -80.0)
	require.Less(t, min, max)
}

func TestReflectIndex(t *testing.T) {
	// For n=4, the reflected extension of [0 1 2 3] reads 1,2,3 backwards
	// past each edge without repeating the boundary sample.
	require.Equal(t, 1, reflectIndex(-1, 4))
	require.Equal(t, 2, reflectIndex(-2, 4))
	require.Equal(t, 2, reflectIndex(4, 4))
	require.Equal(t, 1, reflectIndex(5, 4))
	require.Equal(t, 0, reflectIndex(0, 1))
}

func TestMelScaleRoundTrip(t *testing.T) {
	for _, hz := range []float64{0, 100, 500, 999, 1000, 2000, 4000, 8000} {
		require.InDelta(t, hz, melToHz(hzToMel(hz)), 1e-6)
	}
	// The Slaney scale is linear below 1 kHz.
	require.InDelta(t, hzToMel(500), hzToMel(1000)/2, 1e-9)
}

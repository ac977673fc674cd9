package wave

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tone(freq float64, n int, rate int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestMarshalProducesDecodableWAV(t *testing.T) {
	samples := tone(440, 1600, 16000)

	data, err := Marshal(samples, 16000)
	require.NoError(t, err)
	require.Equal(t, "RIFF", string(data[:4]))
	require.Equal(t, "WAVE", string(data[8:12]))

	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	decoded, rate, err := DecodeFile(path)
	require.NoError(t, err)
	require.Equal(t, 16000, rate)
	require.Len(t, decoded, len(samples))
	for i := range samples {
		require.InDelta(t, samples[i], decoded[i], 1e-3)
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	samples := tone(880, 800, 16000)

	require.NoError(t, WriteFile(path, samples, 16000))

	decoded, rate, err := DecodeFile(path)
	require.NoError(t, err)
	require.Equal(t, 16000, rate)
	require.Len(t, decoded, len(samples))
	require.InDelta(t, samples[100], decoded[100], 1e-3)
}

func TestMarshalClipsOutOfRangeSamples(t *testing.T) {
	data, err := Marshal([]float32{2, -2, 0}, 16000)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	decoded, _, err := DecodeFile(path)
	require.NoError(t, err)
	require.InDelta(t, 1.0, decoded[0], 1e-3)
	require.InDelta(t, -1.0, decoded[1], 1e-3)
	require.InDelta(t, 0.0, decoded[2], 1e-6)
}

func TestMarshalRejectsBadRate(t *testing.T) {
	_, err := Marshal([]float32{0}, 0)
	require.Error(t, err)
}

func TestDecodeFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav"), 0o600))

	_, _, err := DecodeFile(path)
	require.Error(t, err)
}

func TestDecodeFileMissing(t *testing.T) {
	_, _, err := DecodeFile(filepath.Join(t.TempDir(), "absent.wav"))
	require.Error(t, err)
}

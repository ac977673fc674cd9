// Package mel computes log-Mel spectrograms for the features command. The
// live transcription path does not use it; the model computes its own
// features from raw PCM.
package mel

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Config fixes the analysis parameters: 512-point FFT, 160-sample hop, and
// 80 Mel bands over 0-8000 Hz at 16 kHz.
type Config struct {
	SampleRate int
	FFTSize    int
	HopLength  int
	MelBands   int
	FMin       float64
	FMax       float64
}

// DefaultConfig returns the canonical analysis parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		FFTSize:    512,
		HopLength:  160,
		MelBands:   80,
		FMin:       0,
		FMax:       8000,
	}
}

// Matrix is a frame-major log-Mel spectrogram.
type Matrix struct {
	Frames int
	Bands  int
	Data   []float64
}

// At returns the dB value for one frame/band cell.
func (m *Matrix) At(frame, band int) float64 {
	return m.Data[frame*m.Bands+band]
}

// MinMax returns the smallest and largest dB values in the matrix.
func (m *Matrix) MinMax() (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range m.Data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

const (
	// amin floors power values before the log, matching the reference
	// extractor's numerical guard.
	amin = 1e-10
	// topDB floors the output at max-80 dB.
	topDB = 80.0
)

// Spectrogram computes the log-Mel spectrogram of mono samples: a centered
// reflect-padded STFT with a periodic Hann window, a power spectrum, a
// Slaney-normalized Mel filterbank, and dB conversion referenced to the
// matrix maximum.
func Spectrogram(samples []float32, cfg Config) (*Matrix, error) {
	if len(samples) == 0 {
		return nil, errors.New("no samples to analyze")
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	padded := reflectPad(samples, cfg.FFTSize/2)
	window := hannPeriodic(cfg.FFTSize)
	filters := melFilterbank(cfg)

	frames := 1 + len(samples)/cfg.HopLength
	bins := cfg.FFTSize/2 + 1

	fft := fourier.NewFFT(cfg.FFTSize)
	frame := make([]float64, cfg.FFTSize)
	coeffs := make([]complex128, bins)
	power := make([]float64, bins)

	out := &Matrix{Frames: frames, Bands: cfg.MelBands, Data: make([]float64, frames*cfg.MelBands)}

	for f := 0; f < frames; f++ {
		offset := f * cfg.HopLength
		for i := 0; i < cfg.FFTSize; i++ {
			frame[i] = padded[offset+i] * window[i]
		}

		fft.Coefficients(coeffs, frame)
		for i, c := range coeffs {
			mag := cmplx.Abs(c)
			power[i] = mag * mag
		}

		row := out.Data[f*cfg.MelBands : (f+1)*cfg.MelBands]
		for b, filter := range filters {
			var sum float64
			for _, w := range filter {
				sum += w.weight * power[w.bin]
			}
			row[b] = sum
		}
	}

	toDB(out.Data)
	return out, nil
}

func validate(cfg Config) error {
	if cfg.SampleRate <= 0 || cfg.FFTSize <= 0 || cfg.HopLength <= 0 || cfg.MelBands <= 0 {
		return errors.New("mel config values must be positive")
	}
	if cfg.FMax <= cfg.FMin {
		return errors.New("mel fmax must exceed fmin")
	}
	if cfg.FMax > float64(cfg.SampleRate)/2 {
		return fmt.Errorf("mel fmax %.0f exceeds Nyquist %.0f", cfg.FMax, float64(cfg.SampleRate)/2)
	}
	return nil
}

// reflectPad mirrors pad samples around each edge, converting to float64.
func reflectPad(samples []float32, pad int) []float64 {
	n := len(samples)
	out := make([]float64, n+2*pad)
	for i := 0; i < n; i++ {
		out[pad+i] = float64(samples[i])
	}
	for i := 1; i <= pad; i++ {
		out[pad-i] = float64(samples[reflectIndex(i, n)])
		out[pad+n-1+i] = float64(samples[reflectIndex(n-1-i, n)])
	}
	return out
}

// reflectIndex maps an out-of-range index back into [0, n) by reflection
// without repeating edge samples.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i = ((i % period) + period) % period
	if i >= n {
		i = period - i
	}
	return i
}

// hannPeriodic builds the periodic Hann window of length n.
func hannPeriodic(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n)))
	}
	return w
}

// filterWeight is one non-zero triangular filter coefficient.
type filterWeight struct {
	bin    int
	weight float64
}

// melFilterbank builds Slaney-normalized triangular filters over FFT bins.
func melFilterbank(cfg Config) [][]filterWeight {
	bins := cfg.FFTSize/2 + 1

	// Band edge frequencies, evenly spaced on the Slaney mel scale.
	edges := make([]float64, cfg.MelBands+2)
	melLo := hzToMel(cfg.FMin)
	melHi := hzToMel(cfg.FMax)
	for i := range edges {
		edges[i] = melToHz(melLo + (melHi-melLo)*float64(i)/float64(cfg.MelBands+1))
	}

	binHz := make([]float64, bins)
	for i := range binHz {
		binHz[i] = float64(i) * float64(cfg.SampleRate) / float64(cfg.FFTSize)
	}

	filters := make([][]filterWeight, cfg.MelBands)
	for b := 0; b < cfg.MelBands; b++ {
		lower, center, upper := edges[b], edges[b+1], edges[b+2]
		norm := 2.0 / (upper - lower)

		var filter []filterWeight
		for i, hz := range binHz {
			var w float64
			switch {
			case hz <= lower || hz >= upper:
				continue
			case hz <= center:
				w = (hz - lower) / (center - lower)
			default:
				w = (upper - hz) / (upper - center)
			}
			if w > 0 {
				filter = append(filter, filterWeight{bin: i, weight: w * norm})
			}
		}
		filters[b] = filter
	}
	return filters
}

// hzToMel converts Hz to the Slaney mel scale: linear below 1 kHz,
// logarithmic above.
func hzToMel(hz float64) float64 {
	const (
		fSp      = 200.0 / 3.0
		minLogHz = 1000.0
	)
	minLogMel := minLogHz / fSp
	logStep := math.Log(6.4) / 27.0
	if hz < minLogHz {
		return hz / fSp
	}
	return minLogMel + math.Log(hz/minLogHz)/logStep
}

// melToHz is the inverse of hzToMel.
func melToHz(mel float64) float64 {
	const (
		fSp      = 200.0 / 3.0
		minLogHz = 1000.0
	)
	minLogMel := minLogHz / fSp
	logStep := math.Log(6.4) / 27.0
	if mel < minLogMel {
		return mel * fSp
	}
	return minLogHz * math.Exp(logStep*(mel-minLogMel))
}

// toDB converts power values to decibels referenced to the matrix maximum
// and floors the result at max-topDB.
func toDB(data []float64) {
	ref := amin
	for _, v := range data {
		if v > ref {
			ref = v
		}
	}
	logRef := 10 * math.Log10(ref)

	maxDB := math.Inf(-1)
	for i, v := range data {
		if v < amin {
			v = amin
		}
		db := 10*math.Log10(v) - logRef
		data[i] = db
		if db > maxDB {
			maxDB = db
		}
	}

	floor := maxDB - topDB
	for i, v := range data {
		if v < floor {
			data[i] = floor
		}
	}
}

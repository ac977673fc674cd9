// Package wave encodes and decodes 16-bit PCM WAV data.
package wave

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Marshal encodes float32 samples as a 16-bit mono WAV in memory.
func Marshal(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	var sb seekBuffer
	enc := wav.NewEncoder(&sb, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           quantize(samples),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return sb.buf, nil
}

// WriteFile encodes samples to path as a 16-bit mono WAV file.
func WriteFile(path string, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav %q: %w", path, err)
	}

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           quantize(samples),
		SourceBitDepth: 16,
	}

	writeErr := enc.Write(buf)
	closeErr := enc.Close()
	fileErr := f.Close()
	if err := errors.Join(writeErr, closeErr, fileErr); err != nil {
		return fmt.Errorf("write wav %q: %w", path, err)
	}
	return nil
}

// DecodeFile reads a PCM WAV file into mono float32 samples in [-1, 1].
// Multi-channel input is downmixed by averaging.
func DecodeFile(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open wav %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%q is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decode wav %q: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, 0, fmt.Errorf("wav %q has no channel format", path)
	}

	channels := buf.Format.NumChannels
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			v := float64(buf.Data[i*channels+ch])
			if depth == 8 {
				v -= 128 // 8-bit wav is unsigned
			}
			sum += v / scale
		}
		samples[i] = float32(sum / float64(channels))
	}

	return samples, buf.Format.SampleRate, nil
}

func quantize(samples []float32) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = int(s * 32767)
	}
	return out
}

// seekBuffer is a minimal in-memory io.WriteSeeker; the WAV encoder seeks
// back to rewrite chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if b.pos+len(p) > len(b.buf) {
		grown := make([]byte, b.pos+len(p))
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = b.pos + int(offset)
	case io.SeekEnd:
		next = len(b.buf) + int(offset)
	default:
		return 0, errors.New("unsupported seek whence")
	}
	if next < 0 {
		return 0, errors.New("seek before start of buffer")
	}
	b.pos = next
	return int64(next), nil
}

package pcm

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidBuffer is returned when a buffer's metadata does not describe its samples
var ErrInvalidBuffer = errors.New("invalid pcm buffer")

// Buffer holds decoded audio as interleaved float32 samples in [-1, 1].
// Frame i, channel c lives at Samples[i*Channels+c].
type Buffer struct {
	SampleRate int
	Channels   int
	Samples    []float32
}

// New validates the format and wraps samples in a Buffer. The slice is not copied.
func New(sampleRate, channels int, samples []float32) (Buffer, error) {
	if sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidBuffer, sampleRate)
	}
	if channels <= 0 {
		return Buffer{}, fmt.Errorf("%w: channel count must be positive, got %d", ErrInvalidBuffer, channels)
	}
	if len(samples)%channels != 0 {
		return Buffer{}, fmt.Errorf("%w: %d samples is not a multiple of %d channels", ErrInvalidBuffer, len(samples), channels)
	}
	return Buffer{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
}

// Frames returns the number of sample frames (samples per channel)
func (b Buffer) Frames() int {
	if b.Channels <= 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length of the buffer
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Channel copies out the samples of a single channel
func (b Buffer) Channel(c int) []float32 {
	if c < 0 || c >= b.Channels {
		return nil
	}
	out := make([]float32, b.Frames())
	for i := range out {
		out[i] = b.Samples[i*b.Channels+c]
	}
	return out
}

// Clone returns a deep copy that shares no memory with b
func (b Buffer) Clone() Buffer {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return Buffer{SampleRate: b.SampleRate, Channels: b.Channels, Samples: samples}
}

// Interleave builds a buffer from per-channel sample slices of equal length.
func Interleave(sampleRate int, planes ...[]float32) (Buffer, error) {
	if len(planes) == 0 {
		return Buffer{}, fmt.Errorf("%w: no channels", ErrInvalidBuffer)
	}
	frames := len(planes[0])
	for c, p := range planes {
		if len(p) != frames {
			return Buffer{}, fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInvalidBuffer, c, len(p), frames)
		}
	}
	samples := make([]float32, frames*len(planes))
	for i := 0; i < frames; i++ {
		for c, p := range planes {
			samples[i*len(planes)+c] = p[i]
		}
	}
	return New(sampleRate, len(planes), samples)
}

package pcm

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotMono is returned when a transform that only handles mono input gets more channels
var ErrNotMono = errors.New("buffer is not mono")

// OutputFrames returns how many frames Resample produces for the given input
// length, round(inFrames * dstRate / srcRate).
func OutputFrames(inFrames, srcRate, dstRate int) int {
	if inFrames <= 0 || srcRate <= 0 || dstRate <= 0 {
		return 0
	}
	n := int64(inFrames)*int64(dstRate) + int64(srcRate)/2
	return int(n / int64(srcRate))
}

// Resample converts a mono buffer to dstRate with linear interpolation.
// When the rates already match the input is returned as is; callers must not
// write to either value afterwards.
func Resample(b Buffer, dstRate int) (Buffer, error) {
	if b.Channels != 1 {
		return Buffer{}, fmt.Errorf("resample %d channels: %w", b.Channels, ErrNotMono)
	}
	if b.SampleRate <= 0 || dstRate <= 0 {
		return Buffer{}, fmt.Errorf("%w: cannot resample %d Hz to %d Hz", ErrInvalidBuffer, b.SampleRate, dstRate)
	}
	if b.SampleRate == dstRate {
		return b, nil
	}

	in := b.Samples
	outFrames := OutputFrames(len(in), b.SampleRate, dstRate)
	out := make([]float32, outFrames)
	last := len(in) - 1

	for j := range out {
		p := float64(int64(j)*int64(b.SampleRate)) / float64(dstRate)
		i := int(math.Floor(p))
		frac := p - float64(i)
		if i > last {
			i = last
		}
		next := i + 1
		if next > last {
			next = last
		}
		out[j] = float32(float64(in[i])*(1-frac) + float64(in[next])*frac)
	}

	return Buffer{SampleRate: dstRate, Channels: 1, Samples: out}, nil
}

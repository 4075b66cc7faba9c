package pcm

// Mixdown collapses all channels to one by taking the arithmetic mean of each
// frame. A mono buffer is returned unchanged.
func Mixdown(b Buffer) Buffer {
	if b.Channels <= 1 {
		return b
	}

	frames := b.Frames()
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		frame := b.Samples[i*b.Channels : (i+1)*b.Channels]
		for _, s := range frame {
			sum += float64(s)
		}
		mono[i] = float32(sum / float64(b.Channels))
	}

	return Buffer{SampleRate: b.SampleRate, Channels: 1, Samples: mono}
}

package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
)

func decodeFLAC(data []byte, _ audio.Constraints) (pcm.Buffer, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)
	if channels <= 0 || bitDepth <= 0 || bitDepth > 32 {
		return pcm.Buffer{}, fmt.Errorf("bad FLAC stream info: %d channels, %d bits", channels, bitDepth)
	}

	samples := make([]float32, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(samples) > 0 {
				// keep what decoded cleanly before a truncated tail
				break
			}
			return pcm.Buffer{}, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				samples = append(samples, intToFloat(int(frame.Subframes[ch].Samples[i]), bitDepth))
			}
		}
	}

	return pcm.New(int(info.SampleRate), channels, samples)
}

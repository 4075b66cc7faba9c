package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
)

// go-mp3 always emits interleaved stereo int16
const mp3Channels = 2

func decodeMP3(data []byte, _ audio.Constraints) (pcm.Buffer, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil && len(raw) == 0 {
		return pcm.Buffer{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	frames := len(raw) / (2 * mp3Channels)
	samples := make([]float32, frames*mp3Channels)
	for i := range samples {
		samples[i] = intToFloat(int(int16(binary.LittleEndian.Uint16(raw[i*2:]))), 16)
	}

	return pcm.New(dec.SampleRate(), mp3Channels, samples)
}

package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
)

// DecodeRaw interprets data as headerless little-endian int16 PCM at the
// hinted rate and channel count. A trailing partial frame is dropped.
func DecodeRaw(data []byte, hint audio.Constraints) (pcm.Buffer, error) {
	if hint.SampleRate <= 0 || hint.Channels <= 0 {
		return pcm.Buffer{}, fmt.Errorf("%w: raw pcm needs a sample rate and channel count, got %d Hz/%d ch",
			ErrDecodeFailed, hint.SampleRate, hint.Channels)
	}
	if hint.BitDepth != 0 && hint.BitDepth != 16 {
		return pcm.Buffer{}, fmt.Errorf("%w: raw pcm must be 16-bit, got %d", ErrDecodeFailed, hint.BitDepth)
	}

	frameBytes := 2 * hint.Channels
	frames := len(data) / frameBytes
	if frames == 0 {
		return pcm.Buffer{}, fmt.Errorf("%w: %d bytes is less than one frame", ErrDecodeFailed, len(data))
	}

	samples := make([]float32, frames*hint.Channels)
	for i := range samples {
		samples[i] = intToFloat(int(int16(binary.LittleEndian.Uint16(data[i*2:]))), 16)
	}

	return pcm.New(hint.SampleRate, hint.Channels, samples)
}

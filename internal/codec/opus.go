package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
	"gopkg.in/hraban/opus.v2"
)

// libopusfile always decodes at 48 kHz
const opusSampleRate = 48000

// 120 ms at 48 kHz, the largest Opus packet
const opusMaxFrame = 5760

func decodeOggOpus(data []byte, _ audio.Constraints) (pcm.Buffer, error) {
	channels, err := opusHeadChannels(data)
	if err != nil {
		return pcm.Buffer{}, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("failed to open ogg/opus stream: %w", err)
	}
	defer stream.Close()

	chunk := make([]float32, opusMaxFrame*channels)
	var samples []float32
	for {
		n, err := stream.ReadFloat32(chunk)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if len(samples) > 0 {
				break
			}
			return pcm.Buffer{}, fmt.Errorf("opus decode failed: %w", err)
		}
		samples = append(samples, chunk[:n*channels]...)
	}

	return pcm.New(opusSampleRate, channels, samples)
}

// opusHeadChannels reads the output channel count from the OpusHead packet
func opusHeadChannels(data []byte) (int, error) {
	idx := bytes.Index(data, []byte("OpusHead"))
	if idx < 0 || idx+9 >= len(data) {
		return 0, fmt.Errorf("missing OpusHead")
	}
	channels := int(data[idx+9])
	if channels == 0 {
		return 0, fmt.Errorf("OpusHead declares zero channels")
	}
	return channels, nil
}

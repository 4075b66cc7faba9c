package codec

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

func decodeWAV(data []byte, _ audio.Constraints) (pcm.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return pcm.Buffer{}, fmt.Errorf("invalid WAV file")
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return pcm.Buffer{}, fmt.Errorf("unsupported WAV audio format %d", dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("failed to read WAV samples: %w", err)
	}

	bitDepth := int(dec.BitDepth)
	channels := int(dec.NumChans)
	if channels <= 0 || bitDepth <= 0 || bitDepth > 32 {
		return pcm.Buffer{}, fmt.Errorf("bad WAV format: %d channels, %d bits", channels, bitDepth)
	}

	n := len(buf.Data) - len(buf.Data)%channels
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := buf.Data[i]
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = intToFloat(v, bitDepth)
	}

	return pcm.New(int(dec.SampleRate), channels, samples)
}

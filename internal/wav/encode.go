package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/petems/clipwav/internal/pcm"
)

// HeaderSize is the length of the canonical RIFF/WAVE header
const HeaderSize = 44

// ErrUnsupportedFormat is returned when a buffer is not in the canonical target format
var ErrUnsupportedFormat = errors.New("unsupported wav format")

// Target is the fixed output format every clip is normalized to before encoding
type Target struct {
	SampleRate int
	Channels   int
	BitDepth   int
	FormatCode int
}

// Canonical is mono, 16 kHz, 16-bit linear PCM.
var Canonical = Target{
	SampleRate: 16000,
	Channels:   1,
	BitDepth:   16,
	FormatCode: 1,
}

// ByteRate returns the number of data bytes per second of audio
func (t Target) ByteRate() int {
	return t.SampleRate * t.BlockAlign()
}

// BlockAlign returns the number of bytes per frame
func (t Target) BlockAlign() int {
	return t.Channels * t.BitDepth / 8
}

// Encode serializes a mono 16 kHz buffer as a canonical WAV byte stream:
// a 44-byte header followed by little-endian int16 samples.
func Encode(b pcm.Buffer) ([]byte, error) {
	if b.Channels != Canonical.Channels || b.SampleRate != Canonical.SampleRate {
		return nil, fmt.Errorf("%w: got %d Hz with %d channels, want %d Hz mono",
			ErrUnsupportedFormat, b.SampleRate, b.Channels, Canonical.SampleRate)
	}

	t := Canonical
	dataSize := len(b.Samples) * t.BlockAlign()
	buf := make([]byte, HeaderSize+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], uint16(t.FormatCode))
	binary.LittleEndian.PutUint16(buf[22:24], uint16(t.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(t.ByteRate()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(t.BlockAlign()))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(t.BitDepth))

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(buf[HeaderSize+i*2:], uint16(Quantize(s)))
	}

	return buf, nil
}

// Quantize maps a float sample to int16. Negative values scale by 32768 and
// non-negative values by 32767 so that both -1.0 and +1.0 fit exactly.
func Quantize(s float32) int16 {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	if v < 0 {
		return int16(math.Round(v * 32768))
	}
	return int16(math.Round(v * 32767))
}

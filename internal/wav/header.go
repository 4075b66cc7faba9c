package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Header mirrors the 44-byte canonical RIFF/WAVE header field by field
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + DataSize
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	DataSize      uint32
}

// ParseHeader reads and validates a canonical header. Only the exact layout
// produced by Encode is accepted.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < HeaderSize {
		return h, fmt.Errorf("%w: need at least %d bytes, got %d", ErrUnsupportedFormat, HeaderSize, len(data))
	}
	if err := binary.Read(bytes.NewReader(data[:HeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("failed to read WAV header: %w", err)
	}

	switch {
	case string(h.ChunkID[:]) != "RIFF":
		return h, fmt.Errorf("%w: missing RIFF header", ErrUnsupportedFormat)
	case string(h.Format[:]) != "WAVE":
		return h, fmt.Errorf("%w: missing WAVE format", ErrUnsupportedFormat)
	case string(h.Subchunk1ID[:]) != "fmt " || h.Subchunk1Size != 16:
		return h, fmt.Errorf("%w: non-canonical fmt chunk", ErrUnsupportedFormat)
	case string(h.Subchunk2ID[:]) != "data":
		return h, fmt.Errorf("%w: missing data chunk", ErrUnsupportedFormat)
	case h.AudioFormat != uint16(Canonical.FormatCode):
		return h, fmt.Errorf("%w: audio format %d is not PCM", ErrUnsupportedFormat, h.AudioFormat)
	case h.BitsPerSample != uint16(Canonical.BitDepth):
		return h, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, h.BitsPerSample)
	}

	return h, nil
}

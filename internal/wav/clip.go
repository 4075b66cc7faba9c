package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/petems/clipwav/internal/pcm"
)

// Clip is a finished canonical WAV. Its bytes are never modified after
// construction; accessors hand out copies or read-only views.
type Clip struct {
	data   []byte
	frames int
}

// NewClip encodes a normalized buffer into a Clip
func NewClip(b pcm.Buffer) (Clip, error) {
	data, err := Encode(b)
	if err != nil {
		return Clip{}, err
	}
	return Clip{data: data, frames: b.Frames()}, nil
}

// Bytes returns a copy of the encoded WAV
func (c Clip) Bytes() []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

// Reader returns a read-only view of the encoded WAV
func (c Clip) Reader() *bytes.Reader {
	return bytes.NewReader(c.data)
}

func (c Clip) Len() int    { return len(c.data) }
func (c Clip) Frames() int { return c.frames }
func (c Clip) IsZero() bool {
	return c.data == nil
}

// Duration is derived from the frame count, for diagnostics only
func (c Clip) Duration() time.Duration {
	return time.Duration(c.frames) * time.Second / time.Duration(Canonical.SampleRate)
}

// Samples decodes the clip's int16 payload back to floats in [-1, 1)
func (c Clip) Samples() ([]float32, error) {
	h, err := ParseHeader(c.data)
	if err != nil {
		return nil, err
	}
	payload := c.data[HeaderSize:]
	if int(h.DataSize) > len(payload) {
		return nil, fmt.Errorf("%w: data chunk declares %d bytes, have %d", ErrUnsupportedFormat, h.DataSize, len(payload))
	}
	n := int(h.DataSize) / 2
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(payload[i*2:]))) / 32768
	}
	return out, nil
}

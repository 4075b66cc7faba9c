package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
)

// ErrDecodeFailed is returned when bytes cannot be decoded as the given container
var ErrDecodeFailed = errors.New("decode failed")

// Decoder turns encoded bytes into an interleaved float buffer. The hint
// carries the constraints the capture was requested with; only headerless
// formats need it.
type Decoder interface {
	Decode(data []byte, hint audio.Constraints) (pcm.Buffer, error)
}

// DecoderFunc adapts a plain function to Decoder
type DecoderFunc func(data []byte, hint audio.Constraints) (pcm.Buffer, error)

func (f DecoderFunc) Decode(data []byte, hint audio.Constraints) (pcm.Buffer, error) {
	return f(data, hint)
}

// Registry maps container tags to decoders
type Registry struct {
	mu       sync.RWMutex
	decoders map[audio.Container]Decoder
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[audio.Container]Decoder)}
}

// DefaultRegistry returns a registry with every built-in decoder.
// webm-opus and unknown-browser-native are left unregistered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(audio.ContainerWAV, DecoderFunc(decodeWAV))
	r.Register(audio.ContainerMP3, DecoderFunc(decodeMP3))
	r.Register(audio.ContainerFLAC, DecoderFunc(decodeFLAC))
	r.Register(audio.ContainerOggOpus, DecoderFunc(decodeOggOpus))
	r.Register(audio.ContainerPCMS16LE, DecoderFunc(DecodeRaw))
	return r
}

func (r *Registry) Register(c audio.Container, d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[c] = d
}

// Decode looks up the container's decoder and runs it. Every failure,
// including an empty result, is reported as ErrDecodeFailed.
func (r *Registry) Decode(c audio.Container, data []byte, hint audio.Constraints) (pcm.Buffer, error) {
	r.mu.RLock()
	d, ok := r.decoders[c]
	r.mu.RUnlock()
	if !ok {
		return pcm.Buffer{}, fmt.Errorf("%w: no decoder for container %q", ErrDecodeFailed, c)
	}

	buf, err := d.Decode(data, hint)
	if err != nil {
		if errors.Is(err, ErrDecodeFailed) {
			return pcm.Buffer{}, err
		}
		return pcm.Buffer{}, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, c, err)
	}
	if buf.Frames() == 0 {
		return pcm.Buffer{}, fmt.Errorf("%w: %s: no audio frames", ErrDecodeFailed, c)
	}
	return buf, nil
}

// intToFloat scales a signed integer sample of the given bit depth to [-1, 1)
func intToFloat(v int, bitDepth int) float32 {
	return float32(v) / float32(int64(1)<<(bitDepth-1))
}

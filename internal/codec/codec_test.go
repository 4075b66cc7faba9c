package codec

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/pcm"
)

// writeWAV produces a WAV file with the go-audio encoder and returns its bytes
func writeWAV(t *testing.T, rate, bitDepth, channels int, data []int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}

	enc := gowav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestDecodeRaw(t *testing.T) {
	// 16384, -32768, 0x7fff, plus one stray byte
	data := []byte{0x00, 0x40, 0x00, 0x80, 0xff, 0x7f, 0x01}
	buf, err := DecodeRaw(data, audio.Constraints{SampleRate: 8000, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("DecodeRaw failed: %v", err)
	}
	if buf.SampleRate != 8000 || buf.Channels != 1 {
		t.Fatalf("unexpected format %d Hz/%d ch", buf.SampleRate, buf.Channels)
	}
	want := []float32{0.5, -1, 32767.0 / 32768}
	if len(buf.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(buf.Samples))
	}
	for i := range want {
		if buf.Samples[i] != want[i] {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], buf.Samples[i])
		}
	}
}

func TestDecodeRawStereoDropsPartialFrame(t *testing.T) {
	buf, err := DecodeRaw(make([]byte, 10), audio.Constraints{SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("DecodeRaw failed: %v", err)
	}
	if buf.Frames() != 2 {
		t.Fatalf("expected 2 frames, got %d", buf.Frames())
	}
}

func TestDecodeRawRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		hint audio.Constraints
	}{
		{"empty", nil, audio.Constraints{SampleRate: 16000, Channels: 1}},
		{"one byte", []byte{1}, audio.Constraints{SampleRate: 16000, Channels: 1}},
		{"no rate", make([]byte, 8), audio.Constraints{Channels: 1}},
		{"no channels", make([]byte, 8), audio.Constraints{SampleRate: 16000}},
		{"24 bit", make([]byte, 8), audio.Constraints{SampleRate: 16000, Channels: 1, BitDepth: 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRaw(tt.data, tt.hint); !errors.Is(err, ErrDecodeFailed) {
				t.Fatalf("expected ErrDecodeFailed, got %v", err)
			}
		})
	}
}

func TestDecodeWAVStereo16(t *testing.T) {
	data := writeWAV(t, 44100, 16, 2, []int{16384, -16384, 0, 32767, -32768, 8192})

	buf, err := DefaultRegistry().Decode(audio.ContainerWAV, data, audio.Constraints{})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if buf.SampleRate != 44100 || buf.Channels != 2 || buf.Frames() != 3 {
		t.Fatalf("unexpected buffer %d Hz/%d ch/%d frames", buf.SampleRate, buf.Channels, buf.Frames())
	}
	if buf.Samples[0] != 0.5 || buf.Samples[1] != -0.5 || buf.Samples[4] != -1 {
		t.Fatalf("unexpected samples %v", buf.Samples)
	}
}

func TestDecodeWAV8BitIsUnsigned(t *testing.T) {
	data := writeWAV(t, 8000, 8, 1, []int{128, 0, 192})

	buf, err := DefaultRegistry().Decode(audio.ContainerWAV, data, audio.Constraints{})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := []float32{0, -1, 0.5}
	for i := range want {
		if math.Abs(float64(buf.Samples[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], buf.Samples[i])
		}
	}
}

func TestRegistryRejectsGarbage(t *testing.T) {
	garbage := []byte("this is not audio at all, not even close")
	r := DefaultRegistry()

	for _, c := range []audio.Container{
		audio.ContainerWAV,
		audio.ContainerMP3,
		audio.ContainerFLAC,
		audio.ContainerOggOpus,
		audio.ContainerWebMOpus,
		audio.ContainerUnknown,
	} {
		if _, err := r.Decode(c, garbage, audio.Constraints{}); !errors.Is(err, ErrDecodeFailed) {
			t.Errorf("%s: expected ErrDecodeFailed, got %v", c, err)
		}
	}
}

func TestRegistryTreatsEmptyOutputAsFailure(t *testing.T) {
	r := NewRegistry()
	r.Register("silent", DecoderFunc(func([]byte, audio.Constraints) (pcm.Buffer, error) {
		return pcm.Buffer{SampleRate: 16000, Channels: 1}, nil
	}))

	if _, err := r.Decode("silent", []byte{1, 2}, audio.Constraints{}); !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed, got %v", err)
	}
}

func TestRegistryWrapsDecoderErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(audio.ContainerMP3, DecoderFunc(func([]byte, audio.Constraints) (pcm.Buffer, error) {
		return pcm.Buffer{}, boom
	}))

	_, err := r.Decode(audio.ContainerMP3, nil, audio.Constraints{})
	if !errors.Is(err, ErrDecodeFailed) {
		t.Fatalf("expected ErrDecodeFailed, got %v", err)
	}
}

func TestOpusHeadChannels(t *testing.T) {
	head := append([]byte("OggS....OpusHead"), 1, 2, 0x38, 0x01)
	ch, err := opusHeadChannels(head)
	if err != nil {
		t.Fatalf("opusHeadChannels failed: %v", err)
	}
	if ch != 2 {
		t.Fatalf("expected 2 channels, got %d", ch)
	}

	if _, err := opusHeadChannels([]byte("OggS")); err == nil {
		t.Fatal("expected missing OpusHead to fail")
	}
}

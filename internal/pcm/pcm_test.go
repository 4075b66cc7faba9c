package pcm

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestNewRejectsInvalidFormats(t *testing.T) {
	tests := []struct {
		name     string
		rate     int
		channels int
		samples  []float32
	}{
		{name: "zero channels", rate: 16000, channels: 0, samples: nil},
		{name: "negative rate", rate: -1, channels: 1, samples: nil},
		{name: "zero rate", rate: 0, channels: 1, samples: []float32{0}},
		{name: "ragged frames", rate: 48000, channels: 2, samples: []float32{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.rate, tt.channels, tt.samples)
			if !errors.Is(err, ErrInvalidBuffer) {
				t.Fatalf("expected ErrInvalidBuffer, got %v", err)
			}
		})
	}
}

func TestBufferFramesAndDuration(t *testing.T) {
	b, err := New(8000, 2, make([]float32, 8000*2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Frames() != 8000 {
		t.Errorf("expected 8000 frames, got %d", b.Frames())
	}
	if b.Duration() != time.Second {
		t.Errorf("expected 1s, got %s", b.Duration())
	}
}

func TestInterleaveAndChannel(t *testing.T) {
	b, err := Interleave(44100, []float32{1, 2, 3}, []float32{-1, -2, -3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float32{1, -1, 2, -2, 3, -3}
	for i := range want {
		if b.Samples[i] != want[i] {
			t.Fatalf("sample %d: expected %f, got %f", i, want[i], b.Samples[i])
		}
	}

	right := b.Channel(1)
	if len(right) != 3 || right[2] != -3 {
		t.Fatalf("unexpected right channel %v", right)
	}

	if _, err := Interleave(44100, []float32{1}, []float32{1, 2}); !errors.Is(err, ErrInvalidBuffer) {
		t.Fatalf("expected ErrInvalidBuffer for unequal planes, got %v", err)
	}
}

func TestMixdownStereoCancels(t *testing.T) {
	b, err := Interleave(16000, []float32{1.0, -1.0}, []float32{-1.0, 1.0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := Mixdown(b)
	if got.Channels != 1 {
		t.Fatalf("expected mono, got %d channels", got.Channels)
	}
	if got.SampleRate != 16000 {
		t.Fatalf("sample rate changed to %d", got.SampleRate)
	}
	for i, s := range got.Samples {
		if s != 0 {
			t.Fatalf("frame %d: expected 0, got %f", i, s)
		}
	}
}

func TestMixdownStereo(t *testing.T) {
	input := []float32{
		0.0, 1.0,
		0.5, 0.5,
		1.0, 0.0,
		-0.5, 0.5,
	}
	expected := []float32{0.5, 0.5, 0.5, 0.0}

	got := Mixdown(Buffer{SampleRate: 48000, Channels: 2, Samples: input})
	if len(got.Samples) != len(expected) {
		t.Fatalf("expected %d frames, got %d", len(expected), len(got.Samples))
	}
	for i := range expected {
		if got.Samples[i] != expected[i] {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], got.Samples[i])
		}
	}
}

func TestMixdownMoreChannels(t *testing.T) {
	input := []float32{
		0.1, 0.3, 0.5,
		0.2, 0.4, 0.6,
	}
	expected := []float32{0.3, 0.4}

	got := Mixdown(Buffer{SampleRate: 48000, Channels: 3, Samples: input})
	for i := range expected {
		if math.Abs(float64(got.Samples[i]-expected[i])) > 1e-6 {
			t.Fatalf("frame %d mismatch: expected %f, got %f", i, expected[i], got.Samples[i])
		}
	}
}

func TestMixdownLeavesInputUntouched(t *testing.T) {
	input := []float32{0.25, 0.75}
	Mixdown(Buffer{SampleRate: 8000, Channels: 2, Samples: input})
	if input[0] != 0.25 || input[1] != 0.75 {
		t.Fatalf("input mutated: %v", input)
	}
}

func TestResampleUpsamplePreservesDuration(t *testing.T) {
	in := make([]float32, 8000)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 8000))
	}

	out, err := Resample(Buffer{SampleRate: 8000, Channels: 1, Samples: in}, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d := out.Frames() - 16000; d < -1 || d > 1 {
		t.Fatalf("expected 16000±1 frames, got %d", out.Frames())
	}
	if out.SampleRate != 16000 {
		t.Fatalf("expected 16000 Hz, got %d", out.SampleRate)
	}
}

func TestResampleDownsampleFrameCounts(t *testing.T) {
	tests := []struct {
		src, dst, in, want int
	}{
		{src: 48000, dst: 16000, in: 48000, want: 16000},
		{src: 44100, dst: 16000, in: 44100, want: 16000},
		{src: 44100, dst: 16000, in: 1000, want: 363}, // 362.81 rounds up
		{src: 22050, dst: 16000, in: 3, want: 2},
		{src: 8000, dst: 16000, in: 1, want: 2},
	}

	for _, tt := range tests {
		out, err := Resample(Buffer{SampleRate: tt.src, Channels: 1, Samples: make([]float32, tt.in)}, tt.dst)
		if err != nil {
			t.Fatalf("%d->%d: unexpected error: %v", tt.src, tt.dst, err)
		}
		if out.Frames() != tt.want {
			t.Errorf("%d->%d with %d frames: expected %d, got %d", tt.src, tt.dst, tt.in, tt.want, out.Frames())
		}
	}
}

func TestResampleLinearInterpolation(t *testing.T) {
	in := Buffer{SampleRate: 8000, Channels: 1, Samples: []float32{0, 1, 0.5}}
	out, err := Resample(in, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// p = j/2: 0, 0.5, 1, 1.5, 2, 2.5 (tail clamps to the last sample)
	expected := []float32{0, 0.5, 1, 0.75, 0.5, 0.5}
	if len(out.Samples) != len(expected) {
		t.Fatalf("expected %d frames, got %d", len(expected), len(out.Samples))
	}
	for i := range expected {
		if math.Abs(float64(out.Samples[i]-expected[i])) > 1e-7 {
			t.Fatalf("frame %d: expected %f, got %f", i, expected[i], out.Samples[i])
		}
	}
}

func TestResampleIdentity(t *testing.T) {
	in := Buffer{SampleRate: 16000, Channels: 1, Samples: []float32{0.1, -0.2, 0.3}}
	out, err := Resample(in, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SampleRate != in.SampleRate || len(out.Samples) != len(in.Samples) {
		t.Fatalf("identity changed format: %+v", out)
	}
	for i := range in.Samples {
		if math.Float32bits(out.Samples[i]) != math.Float32bits(in.Samples[i]) {
			t.Fatalf("frame %d differs: %f vs %f", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestResampleIsDeterministic(t *testing.T) {
	in := Buffer{SampleRate: 44100, Channels: 1, Samples: make([]float32, 4410)}
	for i := range in.Samples {
		in.Samples[i] = float32(i%97) / 97
	}

	a, _ := Resample(in, 16000)
	b, _ := Resample(in, 16000)
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("frame %d differs between runs", i)
		}
	}
}

func TestResampleRejectsStereo(t *testing.T) {
	_, err := Resample(Buffer{SampleRate: 48000, Channels: 2, Samples: make([]float32, 4)}, 16000)
	if !errors.Is(err, ErrNotMono) {
		t.Fatalf("expected ErrNotMono, got %v", err)
	}
}

func TestResampleEmpty(t *testing.T) {
	out, err := Resample(Buffer{SampleRate: 48000, Channels: 1}, 16000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Frames() != 0 {
		t.Fatalf("expected empty output, got %d frames", out.Frames())
	}
}

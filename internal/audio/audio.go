package audio

import (
	"context"
	"errors"
)

// ErrDeviceUnavailable is returned when no input stream could be acquired
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// Container tags the encoding of captured bytes
type Container string

const (
	ContainerWAV      Container = "wav"
	ContainerMP3      Container = "mp3"
	ContainerFLAC     Container = "flac"
	ContainerOggOpus  Container = "ogg-opus"
	ContainerWebMOpus Container = "webm-opus"
	ContainerPCMS16LE Container = "pcm-s16le"
	ContainerUnknown  Container = "unknown-browser-native"
)

// Constraints are the format hints requested when acquiring a stream.
// The device may not honour them.
type Constraints struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// CaptureResult is what a stream hands back once flushed
type CaptureResult struct {
	Container Container
	Data      []byte
	Requested Constraints
}

// Capture defines the interface for audio capture
type Capture interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
	ListDevices() ([]AudioDevice, error)
	Close() error
}

// Stream is a single acquired input. Release must be safe to call more than once.
type Stream interface {
	Begin(ctx context.Context) error
	StopAndFlush(ctx context.Context) (CaptureResult, error)
	Release() error
}

// AudioDevice represents an audio input device
type AudioDevice struct {
	ID      string
	Name    string
	Default bool
}

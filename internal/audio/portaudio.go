package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/clipwav/internal/config"
	"github.com/rs/zerolog"
)

const framesPerBuffer = 512

// releaseTimeout bounds how long Release waits for the read loop
var releaseTimeout = time.Second

// inputStream is the part of *portaudio.Stream a capture uses
type inputStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

type portAudioCapture struct {
	cfg    config.AudioConfig
	logger zerolog.Logger
}

// New creates a new PortAudio-based audio capture
func New(cfg config.AudioConfig, logger zerolog.Logger) (Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &portAudioCapture{cfg: cfg, logger: logger}, nil
}

type openResult struct {
	stream *portAudioStream
	err    error
}

// Acquire opens the configured input device. Opening can hang on some
// drivers, so it runs in the background and is abandoned after the
// acquire timeout; a late stream is closed as soon as it shows up.
func (p *portAudioCapture) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	res := make(chan openResult, 1)
	go func() {
		s, err := p.open(c)
		res <- openResult{stream: s, err: err}
	}()

	select {
	case r := <-res:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, r.err)
		}
		return r.stream, nil
	case <-ctx.Done():
		go func() {
			if r := <-res; r.stream != nil {
				r.stream.Release()
			}
		}()
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, ctx.Err())
	}
}

func (p *portAudioCapture) open(c Constraints) (*portAudioStream, error) {
	device, err := p.findDevice()
	if err != nil {
		return nil, err
	}

	channels := c.Channels
	if channels <= 0 {
		channels = 1
	}
	if device.MaxInputChannels > 0 && channels > device.MaxInputChannels {
		channels = device.MaxInputChannels
	}
	rate := c.SampleRate
	if rate <= 0 {
		rate = int(device.DefaultSampleRate)
	}

	// Open stream: interleaved int16 at the requested rate
	buffer := make([]int16, framesPerBuffer*channels)
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      float64(rate),
		FramesPerBuffer: framesPerBuffer,
	}, buffer)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}

	p.logger.Debug().
		Str("device", device.Name).
		Int("sample_rate", rate).
		Int("channels", channels).
		Msg("Audio stream opened")

	return &portAudioStream{
		stream: stream,
		buffer: buffer,
		// The raw bytes are only meaningful at the format actually opened
		requested: Constraints{SampleRate: rate, Channels: channels, BitDepth: 16},
		logger:    p.logger,
	}, nil
}

func (p *portAudioCapture) findDevice() (*portaudio.DeviceInfo, error) {
	if p.cfg.DeviceID == "" {
		device, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("failed to get default input device: %w", err)
		}
		return device, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	for _, d := range devices {
		if d.Name == p.cfg.DeviceID && d.MaxInputChannels > 0 {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", p.cfg.DeviceID)
}

func (p *portAudioCapture) ListDevices() ([]AudioDevice, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]AudioDevice, 0, len(devices))
	defaultDevice, _ := portaudio.DefaultInputDevice()

	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			result = append(result, AudioDevice{
				ID:      d.Name,
				Name:    d.Name,
				Default: d == defaultDevice,
			})
		}
	}

	return result, nil
}

func (p *portAudioCapture) Close() error {
	return portaudio.Terminate()
}

type portAudioStream struct {
	stream    inputStream
	buffer    []int16
	requested Constraints
	logger    zerolog.Logger

	mu      sync.Mutex
	data    []byte
	readErr error
	stop    chan struct{}
	done    chan struct{}
	stopped bool
	closed  bool

	releaseOnce sync.Once
	releaseErr  error
}

func (s *portAudioStream) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return fmt.Errorf("stream already started")
	}

	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("%w: failed to start audio stream: %v", ErrDeviceUnavailable, err)
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.readLoop(s.stop, s.done)
	return nil
}

// readLoop accumulates little-endian int16 bytes until stop is closed
func (s *portAudioStream) readLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := s.stream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				s.logger.Debug().Msg("Input overflowed, continuing")
			} else {
				s.mu.Lock()
				s.readErr = err
				s.mu.Unlock()
				return
			}
		}

		chunk := make([]byte, len(s.buffer)*2)
		for i, v := range s.buffer {
			binary.LittleEndian.PutUint16(chunk[i*2:], uint16(v))
		}

		s.mu.Lock()
		s.data = append(s.data, chunk...)
		s.mu.Unlock()
	}
}

// halt signals the read loop and waits for it, so the stream is never
// stopped underneath a blocking Read. It is safe to call from StopAndFlush
// and Release at the same time; both wait for the loop.
func (s *portAudioStream) halt(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop = nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if done == nil {
		return nil
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.closed {
		return nil
	}
	s.stopped = true
	return s.stream.Stop()
}

func (s *portAudioStream) StopAndFlush(ctx context.Context) (CaptureResult, error) {
	if err := s.halt(ctx); err != nil {
		return CaptureResult{}, fmt.Errorf("failed to stop audio stream: %w", err)
	}

	s.mu.Lock()
	data, readErr := s.data, s.readErr
	s.data = nil
	s.mu.Unlock()

	if readErr != nil && len(data) == 0 {
		return CaptureResult{}, fmt.Errorf("%w: %v", ErrDeviceUnavailable, readErr)
	}
	if readErr != nil {
		s.logger.Warn().Err(readErr).Msg("Capture ended early, keeping partial audio")
	}

	return CaptureResult{
		Container: ContainerPCMS16LE,
		Data:      data,
		Requested: s.requested,
	}, nil
}

func (s *portAudioStream) Release() error {
	s.releaseOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := s.halt(ctx); errors.Is(err, context.DeadlineExceeded) {
			// The read loop is still inside Read; closing now would free
			// the stream under it.
			s.logger.Warn().Err(err).Msg("Read loop did not stop, leaving stream open")
			s.releaseErr = err
			return
		} else if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to stop stream before release")
		}
		s.mu.Lock()
		s.closed = true
		s.releaseErr = s.stream.Close()
		s.data = nil
		s.mu.Unlock()
	})
	return s.releaseErr
}

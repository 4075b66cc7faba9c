package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/metrics"
	"github.com/petems/clipwav/internal/wav"
	"github.com/rs/zerolog"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrReset            = errors.New("session reset")
)

// State is a position in the capture lifecycle
type State int

const (
	Idle State = iota
	Recording
	Stopping
	Encoding
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Encoding:
		return "encoding"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// busy reports whether a session currently owns the device or pipeline
func (s State) busy() bool {
	return s == Recording || s == Stopping || s == Encoding
}

// Acquirer hands out input streams
type Acquirer interface {
	Acquire(ctx context.Context, c audio.Constraints) (audio.Stream, error)
}

// Processor turns a flushed capture into a clip
type Processor interface {
	Process(capture audio.CaptureResult) (wav.Clip, error)
}

// Notifier shows a message to the user
type Notifier interface {
	Notify(title, message string) error
}

// Config holds session dependencies
type Config struct {
	Capture     Acquirer
	Processor   Processor
	Constraints audio.Constraints
	Notifier    Notifier // optional
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Session runs one capture at a time. Concurrent starts are rejected,
// never queued.
type Session struct {
	capture     Acquirer
	processor   Processor
	constraints audio.Constraints
	notifier    Notifier
	metrics     *metrics.Metrics
	logger      zerolog.Logger

	mu        sync.Mutex
	state     State
	acquiring bool
	// gen is bumped by every Start and Reset; an operation that finds it
	// changed after blocking has been superseded.
	gen    uint64
	stream audio.Stream
	// draining is the stream a Stop is flushing. Reset may take it.
	draining audio.Stream
	// releasing counts streams taken from the session whose Release has
	// not returned yet. Start is refused until it drops to zero.
	releasing int
	id        string
}

func New(cfg Config) *Session {
	return &Session{
		capture:     cfg.Capture,
		processor:   cfg.Processor,
		constraints: cfg.Constraints,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		state:       Idle,
	}
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID returns the id of the current or last session, empty before the first Start
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Start acquires a stream and begins recording. Completed and Failed count
// as idle.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state.busy() || s.acquiring || s.releasing > 0 {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug().Str("state", state.String()).Msg("Start rejected, session busy")
		return ErrAlreadyRecording
	}
	s.acquiring = true
	s.gen++
	gen := s.gen
	id := uuid.NewString()
	s.id = id
	s.mu.Unlock()

	log := s.logger.With().Str("session", id).Logger()

	stream, err := s.acquire(ctx)

	s.mu.Lock()
	if s.gen != gen {
		// Reset ran while the device was opening
		if stream != nil {
			s.releasing++
		}
		s.mu.Unlock()
		if stream != nil {
			s.handOff(log, stream)
		}
		log.Info().Msg("Start superseded by reset")
		return ErrReset
	}
	s.acquiring = false
	if err != nil {
		s.state = Idle
		s.mu.Unlock()
		log.Error().Err(err).Msg("Failed to acquire audio device")
		s.metrics.RecordSession("device_unavailable")
		s.notify(log, err)
		return err
	}
	s.stream = stream
	s.state = Recording
	s.mu.Unlock()

	log.Info().Msg("Recording started")
	return nil
}

// acquire opens and begins a stream. Any failure releases what was opened
// and is reported as ErrDeviceUnavailable.
func (s *Session) acquire(ctx context.Context) (audio.Stream, error) {
	stream, err := s.capture.Acquire(ctx, s.constraints)
	if err != nil {
		if !errors.Is(err, audio.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
		}
		return nil, err
	}

	if err := stream.Begin(ctx); err != nil {
		stream.Release()
		if !errors.Is(err, audio.ErrDeviceUnavailable) {
			err = fmt.Errorf("%w: %v", audio.ErrDeviceUnavailable, err)
		}
		return nil, err
	}
	return stream, nil
}

// Stop flushes and releases the stream, then runs the pipeline. The raw
// capture is dropped whatever the outcome.
func (s *Session) Stop(ctx context.Context) (wav.Clip, error) {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return wav.Clip{}, ErrNotRecording
	}
	s.state = Stopping
	stream := s.stream
	s.stream = nil
	s.draining = stream
	gen := s.gen
	log := s.logger.With().Str("session", s.id).Logger()
	s.mu.Unlock()

	capture, flushErr := stream.StopAndFlush(ctx)

	s.mu.Lock()
	owned := s.gen == gen && s.draining == stream
	if owned {
		s.draining = nil
		s.releasing++
	}
	s.mu.Unlock()
	if owned {
		s.handOff(log, stream)
	}

	if !s.advance(gen, Encoding, flushErr) {
		log.Info().Msg("Stop superseded by reset during flush")
		s.metrics.RecordSession("reset")
		return wav.Clip{}, ErrReset
	}
	if flushErr != nil {
		log.Error().Err(flushErr).Msg("Failed to flush capture")
		s.metrics.RecordSession("failed")
		s.notify(log, flushErr)
		return wav.Clip{}, flushErr
	}

	log.Debug().
		Str("container", string(capture.Container)).
		Int("bytes", len(capture.Data)).
		Msg("Capture flushed")

	clip, err := s.processor.Process(capture)
	capture.Data = nil

	next := Completed
	if err != nil {
		next = Failed
	}
	if !s.advance(gen, next, nil) {
		log.Info().Msg("Stop superseded by reset during encoding")
		s.metrics.RecordSession("reset")
		return wav.Clip{}, ErrReset
	}

	if err != nil {
		if errors.Is(err, wav.ErrUnsupportedFormat) {
			log.Error().Err(err).Msg("BUG: pipeline produced a non-canonical buffer")
		} else {
			log.Error().Err(err).Msg("Failed to process capture")
			s.notify(log, err)
		}
		s.metrics.RecordSession("failed")
		return wav.Clip{}, err
	}

	log.Info().
		Dur("duration", clip.Duration()).
		Int("bytes", clip.Len()).
		Msg("Clip ready")
	s.metrics.RecordSession("completed")
	return clip, nil
}

// advance moves to next unless a Reset has run since gen was taken. A
// non-nil failure moves to Failed instead.
func (s *Session) advance(gen uint64, next State, failure error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	if failure != nil {
		next = Failed
	}
	s.state = next
	return true
}

// Reset returns to Idle from any state and releases a held stream,
// including one a Stop is still flushing. A Stop in flight will return
// ErrReset.
func (s *Session) Reset() {
	s.mu.Lock()
	s.gen++
	prev := s.state
	stream := s.stream
	if stream == nil {
		stream = s.draining
	}
	s.stream = nil
	s.draining = nil
	s.state = Idle
	s.acquiring = false
	if stream != nil {
		s.releasing++
	}
	log := s.logger.With().Str("session", s.id).Logger()
	s.mu.Unlock()

	if stream != nil {
		s.handOff(log, stream)
		if prev == Recording {
			s.metrics.RecordSession("reset")
		}
	}
	if prev != Idle {
		log.Info().Str("from", prev.String()).Msg("Session reset")
	}
}

func (s *Session) release(log zerolog.Logger, stream audio.Stream) {
	if err := stream.Release(); err != nil {
		log.Warn().Err(err).Msg("Failed to release audio stream")
	}
}

// handOff releases a stream taken from the session under the mutex, with
// releasing already counted.
func (s *Session) handOff(log zerolog.Logger, stream audio.Stream) {
	s.release(log, stream)
	s.mu.Lock()
	s.releasing--
	s.mu.Unlock()
}

func (s *Session) notify(log zerolog.Logger, err error) {
	if s.notifier == nil {
		return
	}
	msg := UserMessage(err)
	if msg == "" {
		return
	}
	if nerr := s.notifier.Notify("clipwav", msg); nerr != nil {
		log.Warn().Err(nerr).Msg("Failed to show notification")
	}
}

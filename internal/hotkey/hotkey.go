package hotkey

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Manager defines the interface for hotkey management
type Manager interface {
	Register(accel string, callback func(pressed bool)) error
	Unregister(accel string) error
	Close() error
}

// lineManager turns lines read from a terminal into key events. In tap
// mode every line is a press followed by a release; otherwise lines
// alternate between press and release.
type lineManager struct {
	in     io.Reader
	tap    bool
	logger zerolog.Logger

	mu       sync.Mutex
	accel    string
	callback func(pressed bool)
	pressed  bool
	started  bool
	closed   bool
	done     chan struct{}
}

// NewLine creates a line-driven manager reading from in
func NewLine(in io.Reader, tap bool, logger zerolog.Logger) Manager {
	return &lineManager{in: in, tap: tap, logger: logger, done: make(chan struct{})}
}

func (m *lineManager) Register(accel string, callback func(pressed bool)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("hotkey manager closed")
	}
	if m.callback != nil {
		return fmt.Errorf("hotkey already registered: %s", m.accel)
	}
	m.accel = accel
	m.callback = callback

	if !m.started {
		m.started = true
		go m.readLoop()
	}

	m.logger.Info().Str("hotkey", accel).Msg("Press Enter to start and stop recording")
	return nil
}

func (m *lineManager) Unregister(accel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.callback == nil || !strings.EqualFold(m.accel, accel) {
		return fmt.Errorf("hotkey not registered: %s", accel)
	}
	m.callback = nil
	m.accel = ""
	m.pressed = false
	return nil
}

// Done is closed when the input reaches EOF
func (m *lineManager) Done() <-chan struct{} {
	return m.done
}

func (m *lineManager) readLoop() {
	defer close(m.done)

	scanner := bufio.NewScanner(m.in)
	for scanner.Scan() {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		cb := m.callback
		if cb == nil {
			m.mu.Unlock()
			continue
		}
		if m.tap {
			m.mu.Unlock()
			cb(true)
			cb(false)
			continue
		}
		m.pressed = !m.pressed
		pressed := m.pressed
		m.mu.Unlock()

		cb(pressed)
	}
	if err := scanner.Err(); err != nil {
		m.logger.Warn().Err(err).Msg("Hotkey input failed")
	}
}

func (m *lineManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.callback = nil
	return nil
}

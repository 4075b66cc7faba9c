package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileCapture treats an audio file on disk as a captured clip
type FileCapture struct {
	path      string
	container Container
}

// NewFileCapture creates a capture over path. An empty container is
// detected from the extension or the file's magic bytes.
func NewFileCapture(path string, container Container) *FileCapture {
	return &FileCapture{path: path, container: container}
}

func (f *FileCapture) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	container := f.container
	if container == "" {
		container = ContainerFromPath(f.path, data)
	}

	return &fileStream{
		result: CaptureResult{Container: container, Data: data, Requested: c},
	}, nil
}

func (f *FileCapture) ListDevices() ([]AudioDevice, error) {
	return []AudioDevice{{ID: f.path, Name: filepath.Base(f.path), Default: true}}, nil
}

func (f *FileCapture) Close() error { return nil }

type fileStream struct {
	mu      sync.Mutex
	result  CaptureResult
	began   bool
	flushed bool
}

func (s *fileStream) Begin(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.began {
		return fmt.Errorf("stream already started")
	}
	s.began = true
	return nil
}

func (s *fileStream) StopAndFlush(ctx context.Context) (CaptureResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.began || s.flushed {
		return CaptureResult{}, fmt.Errorf("stream not recording")
	}
	s.flushed = true
	res := s.result
	s.result.Data = nil
	return res, nil
}

func (s *fileStream) Release() error {
	s.mu.Lock()
	s.result.Data = nil
	s.mu.Unlock()
	return nil
}

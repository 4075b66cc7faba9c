package whisper

import (
	"context"
	"errors"
	"fmt"

	"github.com/petems/clipwav/internal/config"
	"github.com/petems/clipwav/internal/wav"
	"github.com/rs/zerolog"
)

// ErrTransport wraps every failure to get a transcript for a clip
var ErrTransport = errors.New("transcription transport failed")

// Transcriber turns a finished clip into text
type Transcriber interface {
	Transcribe(ctx context.Context, clip wav.Clip) (string, error)
	Close() error
}

// New creates the transcriber selected by cfg.Backend
func New(cfg config.TranscribeConfig, logger zerolog.Logger) (Transcriber, error) {
	switch cfg.Backend {
	case "native":
		return NewNative(cfg, logger)
	case "server":
		return NewServer(cfg.ServerURL,
			WithLanguage(cfg.Language),
			WithModel(cfg.Model),
			WithTimeout(cfg.Timeout),
		)
	}
	return nil, fmt.Errorf("unknown transcription backend %q", cfg.Backend)
}

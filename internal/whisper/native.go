package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/petems/clipwav/internal/config"
	"github.com/petems/clipwav/internal/wav"
	"github.com/rs/zerolog"
)

type nativeTranscriber struct {
	model     whisper.Model
	modelPath string
	language  string
	threads   int
	logger    zerolog.Logger
	mu        sync.Mutex
}

// NewNative loads a whisper.cpp model, downloading it on first use
func NewNative(cfg config.TranscribeConfig, logger zerolog.Logger) (Transcriber, error) {
	modelPath := filepath.Join(config.ModelsPath(), cfg.Model+".bin")

	// Check if model exists, download if needed
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		if err := downloadModel(context.Background(), logger, cfg.Model, modelPath); err != nil {
			return nil, fmt.Errorf("failed to download model: %w", err)
		}
	}

	// Load model using official bindings
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	logger.Info().Str("model", cfg.Model).Msg("Whisper model loaded")

	return &nativeTranscriber{
		model:     model,
		modelPath: modelPath,
		language:  cfg.Language,
		threads:   cfg.Threads,
		logger:    logger,
	}, nil
}

// Transcribe runs one batch inference over the whole clip
func (w *nativeTranscriber) Transcribe(ctx context.Context, clip wav.Clip) (string, error) {
	samples, err := clip.Samples()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return "", fmt.Errorf("%w: model closed", ErrTransport)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransport, err)
	}

	// Each context is single-use; the model is shared
	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("%w: failed to create context: %v", ErrTransport, err)
	}

	// Set parameters
	if w.threads > 0 {
		wctx.SetThreads(uint(w.threads))
	}
	if w.language != "auto" && w.language != "" {
		if err := wctx.SetLanguage(w.language); err != nil {
			w.logger.Warn().Err(err).Str("language", w.language).Msg("Failed to set language, using default")
		}
	}
	wctx.SetTranslate(false)

	// Process the audio
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("%w: whisper process failed: %v", ErrTransport, err)
	}

	// Get transcription segments
	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: read segment: %v", ErrTransport, err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, " "), nil
}

func (w *nativeTranscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model != nil {
		w.model.Close()
		w.model = nil
	}
	return nil
}

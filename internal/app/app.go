package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petems/clipwav/internal/config"
	"github.com/petems/clipwav/internal/inject"
	"github.com/petems/clipwav/internal/metrics"
	"github.com/petems/clipwav/internal/session"
	"github.com/petems/clipwav/internal/wav"
	"github.com/petems/clipwav/internal/whisper"
	"github.com/rs/zerolog"
)

type Mode int

const (
	PushToTalk Mode = iota
	Toggle
)

// StatusUpdater is an interface for reporting dictation status
type StatusUpdater interface {
	SetIdle()
	SetRecording()
	SetProcessing()
	SetError()
}

// Recorder is the capture session the app drives
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (wav.Clip, error)
	Reset()
	ID() string
}

type Config struct {
	Recorder      Recorder
	Transcriber   whisper.Transcriber // Optional - nil skips transcription
	Injector      inject.Injector     // Optional - nil skips delivery
	Config        *config.Config
	Metrics       *metrics.Metrics
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

type App struct {
	rec     Recorder
	stt     whisper.Transcriber
	inj     inject.Injector
	cfg     *config.Config
	metrics *metrics.Metrics
	log     zerolog.Logger
	status  StatusUpdater

	mu        sync.Mutex
	dictating bool
	// starting is set while Start runs outside the lock; a stop requested
	// meanwhile is held in stopPending.
	starting    bool
	stopPending bool
	round       uint64
	autoStop    *time.Timer
	pending     sync.WaitGroup
}

func New(cfg Config) *App {
	return &App{
		rec:     cfg.Recorder,
		stt:     cfg.Transcriber,
		inj:     cfg.Injector,
		cfg:     cfg.Config,
		metrics: cfg.Metrics,
		log:     cfg.Logger,
		status:  cfg.StatusUpdater,
	}
}

func (a *App) OnHotkey(pressed bool) {
	a.mu.Lock()

	mode := PushToTalk
	if a.cfg.Mode == config.ModeToggle {
		mode = Toggle
	}

	start := false
	var round uint64
	switch mode {
	case PushToTalk:
		if pressed {
			start, round = a.claimStartLocked()
		} else {
			a.stopDictationLocked("released")
		}
	case Toggle:
		if !pressed {
			break
		}
		if !a.dictating && !a.starting {
			start, round = a.claimStartLocked()
		} else {
			a.stopDictationLocked("toggled")
		}
	}
	a.mu.Unlock()

	if start {
		a.startDictation(round)
	}
}

// claimStartLocked marks a start in progress. The recorder is started
// without holding the lock because acquiring a device can block.
func (a *App) claimStartLocked() (bool, uint64) {
	if a.dictating || a.starting {
		return false, 0
	}
	a.starting = true
	a.stopPending = false
	a.round++
	a.pending.Add(1)
	return true, a.round
}

func (a *App) startDictation(round uint64) {
	defer a.pending.Done()

	err := a.rec.Start(context.Background())

	a.mu.Lock()
	a.starting = false
	stopPending := a.stopPending
	a.stopPending = false

	if err != nil {
		a.mu.Unlock()
		if errors.Is(err, session.ErrReset) {
			a.log.Info().Msg("Start abandoned by shutdown")
			return
		}
		a.log.Error().Err(err).Msg("Failed to start dictation")
		a.setStatus(StatusUpdater.SetError)
		return
	}

	if a.round != round {
		// Shutdown ran while the device was opening
		a.mu.Unlock()
		a.rec.Reset()
		return
	}

	a.log.Info().Str("session", a.rec.ID()).Msg("Starting dictation")
	a.dictating = true
	a.setStatus(StatusUpdater.SetRecording)

	if d := a.cfg.Audio.MaxDuration; d > 0 {
		a.autoStop = time.AfterFunc(d, func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if a.round == round {
				a.stopDictationLocked("max duration reached")
			}
		})
	}

	if stopPending {
		a.stopDictationLocked("stopped while starting")
	}
	a.mu.Unlock()
}

func (a *App) stopDictationLocked(reason string) {
	if a.starting {
		a.stopPending = true
		return
	}
	if !a.dictating {
		return
	}

	a.log.Info().Str("reason", reason).Msg("Stopping dictation")
	a.dictating = false
	if a.autoStop != nil {
		a.autoStop.Stop()
		a.autoStop = nil
	}

	a.setStatus(StatusUpdater.SetProcessing)

	id := a.rec.ID()
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		a.finish(context.Background(), id)
	}()
}

// finish stops the session, then transcribes and delivers the clip
func (a *App) finish(ctx context.Context, id string) {
	log := a.log.With().Str("session", id).Logger()

	clip, err := a.rec.Stop(ctx)
	if err != nil {
		if errors.Is(err, session.ErrReset) || errors.Is(err, session.ErrNotRecording) {
			a.setStatus(StatusUpdater.SetIdle)
			return
		}
		a.setStatus(StatusUpdater.SetError)
		return
	}

	if err := a.saveClip(id, clip); err != nil {
		log.Warn().Err(err).Msg("Failed to save clip")
	}

	text, err := a.transcribe(ctx, clip)
	if err != nil {
		log.Error().Err(err).Msg("Transcription failed")
		a.setStatus(StatusUpdater.SetError)
		return
	}

	if err := a.deliver(ctx, text); err != nil {
		log.Error().Err(err).Msg("Delivery failed")
		a.setStatus(StatusUpdater.SetError)
		return
	}

	log.Info().Str("text", text).Msg("Dictation complete")
	a.setStatus(StatusUpdater.SetIdle)
}

func (a *App) transcribe(ctx context.Context, clip wav.Clip) (string, error) {
	if a.stt == nil {
		return "", nil
	}

	if t := a.cfg.Transcribe.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	start := time.Now()
	text, err := a.stt.Transcribe(ctx, clip)
	a.metrics.RecordTranscription(time.Since(start).Seconds(), err)
	return text, err
}

func (a *App) deliver(ctx context.Context, text string) error {
	if a.inj == nil || text == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return a.inj.Deliver(ctx, text)
}

// saveClip writes the clip to the configured save directory, if any
func (a *App) saveClip(id string, clip wav.Clip) error {
	dir := a.cfg.Audio.SaveDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	path := filepath.Join(dir, id+".wav")
	if err := os.WriteFile(path, clip.Bytes(), 0644); err != nil {
		return err
	}
	a.log.Debug().Str("path", path).Msg("Clip saved")
	return nil
}

// Once runs a single capture from start to finish without the hotkey. It
// is used to push a file through the same session and pipeline.
func (a *App) Once(ctx context.Context, transcribe bool) (wav.Clip, string, error) {
	if err := a.rec.Start(ctx); err != nil {
		return wav.Clip{}, "", err
	}

	id := a.rec.ID()

	clip, err := a.rec.Stop(ctx)
	if err != nil {
		return wav.Clip{}, "", err
	}

	if err := a.saveClip(id, clip); err != nil {
		a.log.Warn().Err(err).Str("session", id).Msg("Failed to save clip")
	}

	if !transcribe {
		return clip, "", nil
	}

	text, err := a.transcribe(ctx, clip)
	if err != nil {
		return clip, "", fmt.Errorf("transcribe: %w", err)
	}
	if err := a.deliver(ctx, text); err != nil {
		return clip, text, fmt.Errorf("deliver: %w", err)
	}
	return clip, text, nil
}

func (a *App) setStatus(fn func(StatusUpdater)) {
	if a.status != nil {
		fn(a.status)
	}
}

// Drain stops an active dictation normally and waits for it to be delivered
func (a *App) Drain(ctx context.Context) error {
	a.mu.Lock()
	a.stopDictationLocked("input closed")
	a.mu.Unlock()
	return a.wait(ctx)
}

// Shutdown abandons any capture in flight and waits for pending work
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.dictating = false
	a.stopPending = false
	a.round++
	if a.autoStop != nil {
		a.autoStop.Stop()
		a.autoStop = nil
	}
	a.mu.Unlock()

	a.rec.Reset()
	return a.wait(ctx)
}

func (a *App) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) IsDictating() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dictating
}

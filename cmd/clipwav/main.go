package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petems/clipwav/internal/app"
	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/config"
	"github.com/petems/clipwav/internal/hotkey"
	"github.com/petems/clipwav/internal/inject"
	"github.com/petems/clipwav/internal/logging"
	"github.com/petems/clipwav/internal/metrics"
	"github.com/petems/clipwav/internal/normalize"
	"github.com/petems/clipwav/internal/notify"
	"github.com/petems/clipwav/internal/session"
	"github.com/petems/clipwav/internal/whisper"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

const usage = `Usage: clipwav [flags] [command]

Commands:
  listen    record clips with the terminal hotkey (default)
  convert   normalize an audio file into a canonical WAV
  devices   list audio input devices
  version   print the version

Flags:
`

func main() {
	fs := flag.NewFlagSet("clipwav", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.yaml (defaults to the platform config dir)")
	logLevel := fs.String("log-level", "", "override log_level from the config")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.Parse(os.Args[1:])

	// Load config from XDG/Library/AppData
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	cmd, args := "listen", fs.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "listen":
		err = runListen(cfg, log)
	case "convert":
		err = runConvert(cfg, log, args)
	case "devices":
		err = runDevices(cfg, log)
	case "version":
		fmt.Printf("clipwav %s (%s)\n", Version, Commit)
	default:
		fs.Usage()
		os.Exit(2)
	}

	if err != nil {
		if msg := session.UserMessage(err); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

func constraints(cfg config.AudioConfig) audio.Constraints {
	return audio.Constraints{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		BitDepth:   cfg.BitDepth,
	}
}

func newNotifier(cfg *config.Config, log zerolog.Logger) session.Notifier {
	n := notify.Multi{notify.Console{Logger: log}}
	if cfg.Notify.Desktop {
		n = append(n, notify.Desktop{})
	}
	return n
}

func newTranscriber(cfg *config.Config, log zerolog.Logger) (whisper.Transcriber, error) {
	if cfg.Transcribe.Backend == "none" {
		return nil, nil
	}
	return whisper.New(cfg.Transcribe, log)
}

func runListen(cfg *config.Config, log zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Initialize audio capture
	capture, err := audio.New(cfg.Audio, log)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer capture.Close()

	sess := session.New(session.Config{
		Capture:     capture,
		Processor:   normalize.New(normalize.Config{Metrics: m, Logger: log}),
		Constraints: constraints(cfg.Audio),
		Notifier:    newNotifier(cfg, log),
		Metrics:     m,
		Logger:      log,
	})

	// Initialize whisper
	transcriber, err := newTranscriber(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}
	appCfg := app.Config{
		Recorder:      sess,
		Injector:      inject.New(cfg.Inject, os.Stdout, log),
		Config:        cfg,
		Metrics:       m,
		Logger:        log,
		StatusUpdater: app.LogStatus{Logger: log},
	}
	if transcriber != nil {
		defer transcriber.Close()
		appCfg.Transcriber = transcriber
	}
	application := app.New(appCfg)

	// Initialize hotkey manager
	hk := hotkey.NewLine(os.Stdin, cfg.Mode == config.ModeToggle, log)
	defer hk.Close()
	if err := hk.Register(cfg.Hotkey, application.OnHotkey); err != nil {
		return fmt.Errorf("failed to register hotkey: %w", err)
	}

	var inputDone <-chan struct{}
	if d, ok := hk.(interface{ Done() <-chan struct{} }); ok {
		inputDone = d.Done()
	}

	log.Info().Str("version", Version).Str("mode", cfg.Mode).Msg("clipwav starting...")

	// Setup shutdown signal handling
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Addr, reg, log)
		})
	}

	g.Go(func() error {
		defer cancel()

		select {
		case <-gctx.Done():
			log.Info().Msg("Shutting down...")
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return application.Shutdown(shutdownCtx)
		case <-inputDone:
			log.Info().Msg("Input closed, finishing up...")
			return application.Drain(context.Background())
		}
	})

	return g.Wait()
}

func runConvert(cfg *config.Config, log zerolog.Logger, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	in := fs.String("in", "", "input audio file")
	out := fs.String("out", "", "output WAV path, - for stdout")
	containerTag := fs.String("container", "", "container of the input (wav, mp3, flac, ogg-opus, webm-opus, pcm-s16le); detected when empty")
	transcribe := fs.Bool("transcribe", false, "transcribe the clip and deliver the text")
	fs.Parse(args)

	if *in == "" || *out == "" {
		fs.Usage()
		return fmt.Errorf("convert needs -in and -out")
	}

	var container audio.Container
	if *containerTag != "" {
		c, ok := audio.ParseContainer(*containerTag)
		if !ok {
			return fmt.Errorf("unknown container %q", *containerTag)
		}
		container = c
	}

	sess := session.New(session.Config{
		Capture:     audio.NewFileCapture(*in, container),
		Processor:   normalize.New(normalize.Config{Logger: log}),
		Constraints: constraints(cfg.Audio),
		Notifier:    notify.Console{Logger: log},
		Logger:      log,
	})

	appCfg := app.Config{
		Recorder: sess,
		Injector: inject.New(cfg.Inject, os.Stdout, log),
		Config:   cfg,
		Logger:   log,
	}
	if *transcribe {
		transcriber, err := newTranscriber(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize transcriber: %w", err)
		}
		if transcriber != nil {
			defer transcriber.Close()
			appCfg.Transcriber = transcriber
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clip, _, err := app.New(appCfg).Once(ctx, *transcribe)
	if clip.IsZero() {
		return err
	}

	var w io.Writer = os.Stdout
	if *out != "-" {
		f, ferr := os.Create(*out)
		if ferr != nil {
			return fmt.Errorf("failed to create %s: %w", *out, ferr)
		}
		defer f.Close()
		w = f
	}
	if _, werr := clip.Reader().WriteTo(w); werr != nil {
		return errors.Join(err, fmt.Errorf("failed to write clip: %w", werr))
	}

	log.Info().
		Str("in", *in).
		Str("out", *out).
		Dur("duration", clip.Duration()).
		Int("bytes", clip.Len()).
		Msg("Clip written")
	return err
}

func runDevices(cfg *config.Config, log zerolog.Logger) error {
	capture, err := audio.New(cfg.Audio, log)
	if err != nil {
		return fmt.Errorf("failed to initialize audio: %w", err)
	}
	defer capture.Close()

	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		marker := " "
		if d.Default {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, d.Name)
	}
	return nil
}

package inject

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/petems/clipwav/internal/config"
	"github.com/rs/zerolog"
)

// Injector delivers a transcript to the user
type Injector interface {
	Deliver(ctx context.Context, text string) error
}

type deliveryInjector struct {
	cfg            config.InjectConfig
	out            io.Writer
	logger         zerolog.Logger
	writeClipboard func(string) error
}

// New creates an injector that copies text to the clipboard when enabled
// and echoes it to out when out is non-nil
func New(cfg config.InjectConfig, out io.Writer, logger zerolog.Logger) Injector {
	d := &deliveryInjector{
		cfg:            cfg,
		out:            out,
		logger:         logger,
		writeClipboard: clipboard.WriteAll,
	}
	if cfg.Clipboard && clipboard.Unsupported {
		logger.Warn().Msg("No clipboard utility found, transcripts will only be printed")
		d.cfg.Clipboard = false
	}
	return d
}

func (d *deliveryInjector) Deliver(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text = Prepare(text, d.cfg)
	if strings.TrimSpace(text) == "" {
		d.logger.Debug().Msg("Empty transcript, nothing to deliver")
		return nil
	}

	if d.cfg.Clipboard {
		if err := d.writeClipboard(text); err != nil {
			return fmt.Errorf("failed to copy transcript to clipboard: %w", err)
		}
		d.logger.Debug().Int("chars", len(text)).Msg("Transcript copied to clipboard")
	}

	if d.out != nil {
		if _, err := fmt.Fprintln(d.out, strings.TrimRight(text, " ")); err != nil {
			return fmt.Errorf("failed to write transcript: %w", err)
		}
	}
	return nil
}

// Prepare trims the transcript and applies the configured text filters
func Prepare(text string, cfg config.InjectConfig) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if cfg.Capitalize {
		r, size := utf8.DecodeRuneInString(text)
		text = string(unicode.ToUpper(r)) + text[size:]
	}

	if cfg.AppendSpace {
		text += " "
	}
	return text
}
